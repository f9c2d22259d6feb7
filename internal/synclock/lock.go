// Package synclock implements the advisory lock protocol used to guard the
// remote WebDAV store during a sync: a JSON lock object with a TTL, read
// and written with no compare-and-set, because the store offers none.
package synclock

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/webdav"
)

// TTL is the fixed lifetime of an acquired lock.
const TTL = 120 * time.Second

// ErrLockHeld is returned by Acquire when another live client holds the
// lock.
var ErrLockHeld = errors.New("lock held by another client")

// Lock is the JSON document stored at the remote lock URL.
type Lock struct {
	Version   int    `json:"version"`
	ClientID  string `json:"clientId"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Manager acquires and releases the remote lock over a webdav.Client.
type Manager struct {
	Transport *webdav.Client
}

// NewManager builds a Manager bound to the given transport.
func NewManager(transport *webdav.Client) *Manager {
	return &Manager{Transport: transport}
}

// Acquire implements the read-then-write protocol documented in the engine's
// component design: absent, self-held, or expired locks are all acquired by
// overwriting them; a live foreign lock is reported as ErrLockHeld.
//
// There is an inherent race between the read and the write below — this is
// advisory locking over a store with no compare-and-set, and the engine
// accepts the residual risk rather than pretending otherwise.
func (m *Manager) Acquire(lockURL, clientID string, now time.Time) error {
	body, err := m.Transport.GET(lockURL)
	switch {
	case errors.Is(err, webdav.ErrNotFound):
		// no existing lock; proceed to write one
	case err != nil:
		return fmt.Errorf("read lock: %w", err)
	default:
		var existing Lock
		if jsonErr := json.Unmarshal(body, &existing); jsonErr == nil {
			if existing.ClientID != clientID && now.UnixMilli() < existing.ExpiresAt {
				return ErrLockHeld
			}
		}
		// unparseable, self-held, or expired: fall through and overwrite
	}

	fresh := Lock{
		Version:   1,
		ClientID:  clientID,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(TTL).UnixMilli(),
	}
	data, err := json.MarshalIndent(fresh, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}
	if err := m.Transport.PUT(lockURL, data, "application/json"); err != nil {
		return fmt.Errorf("write lock: %w", err)
	}
	return nil
}

// Release deletes the remote lock. It is best-effort by contract: callers
// must not fail the enclosing sync operation on a release error, only log
// it.
func (m *Manager) Release(lockURL string) {
	if err := m.Transport.DELETE(lockURL); err != nil {
		debug.Logf("release lock %s failed: %v", lockURL, err)
	}
}
