package cloud

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/JesseRWeigel/stay-focused/pkg/appdir"
	"github.com/JesseRWeigel/stay-focused/pkg/provider"
	"gopkg.in/yaml.v3"
)

// Session is the cached login state of one device.
type Session struct {
	Token string        `yaml:"token"`
	User  provider.User `yaml:"user"`
}

// SessionCache persists sessions per device identifier in a YAML file so a
// restarted process can restore them. The file is written with 0600
// permissions and replaced atomically.
type SessionCache struct {
	mu   sync.Mutex
	path string
}

type sessionFile struct {
	Sessions map[string]Session `yaml:"sessions"`
}

// NewSessionCache creates a cache backed by path.
func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// Load returns the cached session for deviceID.
func (c *SessionCache) Load(deviceID string) (Session, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sf, err := c.read()
	if err != nil {
		return Session{}, false, err
	}

	s, ok := sf.Sessions[deviceID]

	return s, ok && s.Token != "", nil
}

// Save stores the session for deviceID.
func (c *SessionCache) Save(deviceID string, s Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sf, err := c.read()
	if err != nil {
		return err
	}

	sf.Sessions[deviceID] = s

	return c.write(sf)
}

// Delete removes the session for deviceID if it still holds token. A newer
// login for the same device is left in place.
func (c *SessionCache) Delete(deviceID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sf, err := c.read()
	if err != nil {
		return err
	}

	if s, ok := sf.Sessions[deviceID]; !ok || s.Token != token {
		return nil
	}

	delete(sf.Sessions, deviceID)

	return c.write(sf)
}

func (c *SessionCache) read() (sessionFile, error) {
	sf := sessionFile{Sessions: make(map[string]Session)}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return sf, nil
	}
	if err != nil {
		return sf, fmt.Errorf("cloud: read sessions: %w", err)
	}

	if err := yaml.Unmarshal(data, &sf); err != nil {
		return sf, fmt.Errorf("cloud: parse sessions: %w", err)
	}

	if sf.Sessions == nil {
		sf.Sessions = make(map[string]Session)
	}

	return sf, nil
}

func (c *SessionCache) write(sf sessionFile) error {
	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("cloud: marshal sessions: %w", err)
	}

	if err := appdir.WriteFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("cloud: %w", err)
	}

	return nil
}
