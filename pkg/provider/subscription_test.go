package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscription_SendReceive(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 1)

	go func() {
		sub.Send(1)
		sub.Send(2)
		sub.Close(nil)
	}()

	var got []int
	for v := range sub.C {
		got = append(got, v)
	}

	assert.Equal(t, []int{1, 2}, got)
	assert.NoError(t, sub.Err())
}

func TestSubscription_CloseWithError(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 0)
	boom := errors.New("boom")

	sub.Close(boom)
	sub.Close(errors.New("ignored"))

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.ErrorIs(t, sub.Err(), boom)

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestSubscription_UnsubscribeStopsProducer(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 0)

	delivered := make(chan bool, 1)
	go func() {
		delivered <- sub.Send(1)
		sub.Close(nil)
	}()

	sub.Unsubscribe()

	select {
	case ok := <-delivered:
		// A concurrent receive is not running, so Send can only return on cancel.
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("producer did not observe unsubscribe")
	}

	<-sub.Done()
}

func TestSubscription_UnsubscribeIdempotent(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 1)

	require.NotPanics(t, func() {
		sub.Unsubscribe()
		sub.Unsubscribe()
		sub.Close(nil)
		sub.Unsubscribe()
	})

	assert.False(t, sub.Send(1), "send after unsubscribe is dropped")
}

func TestSubscription_SendAfterClose(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 4)
	sub.Close(nil)

	require.NotPanics(t, func() {
		assert.False(t, sub.Send(1))
	})
}

func TestSubscription_CloseUnblocksSend(t *testing.T) {
	sub := NewSubscription[int](context.Background(), 0)

	delivered := make(chan bool, 1)
	go func() { delivered <- sub.Send(1) }()

	sub.Close(nil)

	select {
	case ok := <-delivered:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send still blocked after Close")
	}
}

func TestSubscription_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscription[int](ctx, 0)

	cancel()

	select {
	case <-sub.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("subscription context not cancelled with parent")
	}
}

func TestCredentials_Complete(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"both", Credentials{Email: "a@b.com", Password: "secret"}, true},
		{"no email", Credentials{Password: "secret"}, false},
		{"no password", Credentials{Email: "a@b.com"}, false},
		{"empty", Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.creds.Complete())
		})
	}
}
