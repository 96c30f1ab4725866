package engine

import (
	"context"
	"time"
)

type persistKind int

const (
	persistLoad persistKind = iota
	persistSave
	persistClear
)

func (k persistKind) String() string {
	switch k {
	case persistSave:
		return "save"
	case persistClear:
		return "clear"
	default:
		return "load"
	}
}

type persistOp struct {
	kind persistKind
	id   string
}

const persistTimeout = 5 * time.Second

// enqueuePersist hands a storage operation to the persistence worker.
// Operations run in submission order, so a clear followed by a save of a new
// identifier always leaves the new identifier in place.
func (e *Engine) enqueuePersist(op persistOp) {
	select {
	case e.persist <- op:
	case <-e.ctx.Done():
	}
}

// persistLoop runs storage operations off the engine loop. Writes queued
// before Close are still flushed.
func (e *Engine) persistLoop() {
	for {
		select {
		case op := <-e.persist:
			e.runPersist(op)
		case <-e.ctx.Done():
			for {
				select {
				case op := <-e.persist:
					e.runPersist(op)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) runPersist(op persistOp) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.ctx), persistTimeout)
	defer cancel()

	var err error

	switch op.kind {
	case persistLoad:
		if e.ctx.Err() != nil {
			return
		}
		id, ok, lerr := e.store.Load(ctx)
		_ = e.post(storageLoaded{id: id, ok: ok, err: lerr})
		return
	case persistSave:
		err = e.store.Save(ctx, op.id)
	case persistClear:
		err = e.store.Clear(ctx)
	}

	if err != nil {
		e.logger.Warn("engine: persist device id", "op", op.kind.String(), "error", err)
	}
}
