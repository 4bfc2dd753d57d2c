package registry

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrFull is returned by Reserve when every slot is active.
var ErrFull = errors.New("registry full")

// Conn is the part of a client connection the registry needs: broadcast only
// writes. Closing stays with the session that owns the connection.
type Conn interface {
	Write(p []byte) (int, error)
}

// DeliveryError reports a failed write to one broadcast target.
type DeliveryError struct {
	Slot int
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to slot %d: %v", e.Slot, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// SlotInfo is a point-in-time copy of one slot, safe to hand out.
type SlotInfo struct {
	Index  int    `json:"index"`
	Active bool   `json:"active"`
	Peer   string `json:"peer,omitempty"`
}

// ChangeFunc observes slot transitions. It runs with the registry lock held,
// so observers see claims and releases in table order. It must not block or
// call back into the registry.
type ChangeFunc func(index int, peer string, active bool)

type slot struct {
	conn   Conn
	active bool
	peer   string
}

// Registry is a fixed-size table of client slots. Every read and write of the
// table, broadcast included, happens under mu.
type Registry struct {
	mu       sync.Mutex
	slots    []slot
	occupied int
	onChange ChangeFunc
}

func New(capacity int) (*Registry, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("invalid capacity %d", capacity)
	}
	return &Registry{slots: make([]slot, capacity)}, nil
}

func (r *Registry) Capacity() int { return len(r.slots) }

// OnChange installs fn as the slot transition observer, replacing any
// previous one. A nil fn removes it.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Occupied returns the number of active slots.
func (r *Registry) Occupied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.occupied
}

// Reserve claims the lowest-numbered free slot for conn. On ErrFull the table
// is left untouched and the caller still owns conn.
func (r *Registry) Reserve(conn Conn, peer string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.occupied >= len(r.slots) {
		return -1, ErrFull
	}
	for i := range r.slots {
		if r.slots[i].active {
			continue
		}
		r.slots[i] = slot{conn: conn, active: true, peer: peer}
		r.occupied++
		if r.onChange != nil {
			r.onChange(i, peer, true)
		}
		return i, nil
	}
	// occupied disagreed with the table; should be unreachable.
	zap.L().Error("registry.count_mismatch", zap.Int("occupied", r.occupied))
	return -1, ErrFull
}

// Release deactivates slot index. It does not close the connection: callers
// close it after Release returns so no broadcast can reach a closed handle.
func (r *Registry) Release(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.slots) {
		zap.L().Warn("registry.release_out_of_range", zap.Int("slot", index))
		return
	}
	if !r.slots[index].active {
		zap.L().Warn("registry.double_release", zap.Int("slot", index))
		return
	}
	peer := r.slots[index].peer
	r.slots[index].active = false
	r.slots[index].conn = nil
	r.occupied--
	if r.onChange != nil {
		r.onChange(index, peer, false)
	}
}

// Broadcast writes msg to every active slot, in index order, holding the lock
// for the whole scan. A failed write neither stops the scan nor deactivates
// the target; the target's own session notices on its next read.
//
// It returns how many targets accepted the message and the combined
// *DeliveryError values of those that did not.
func (r *Registry) Broadcast(sender int, msg []byte, excludeSender bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		delivered int
		errs      error
	)
	for i := range r.slots {
		s := &r.slots[i]
		if !s.active || (excludeSender && i == sender) {
			continue
		}
		if _, err := s.conn.Write(msg); err != nil {
			zap.L().Warn("registry.write_failed",
				zap.Int("slot", i),
				zap.Int("sender", sender),
				zap.Error(err),
			)
			errs = multierr.Append(errs, &DeliveryError{Slot: i, Err: err})
			continue
		}
		delivered++
	}
	return delivered, errs
}

// Snapshot copies the whole table.
func (r *Registry) Snapshot() []SlotInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SlotInfo, len(r.slots))
	for i, s := range r.slots {
		out[i] = SlotInfo{Index: i, Active: s.active}
		if s.active {
			out[i].Peer = s.peer
		}
	}
	return out
}
