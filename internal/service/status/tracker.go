// Package status tracks whether an interview is currently running and in
// which room. It is best-effort: overlapping sessions overwrite each other.
package status

import (
	"log"
	"sync/atomic"
	"time"
)

// Snapshot is the value served by the status endpoint.
type Snapshot struct {
	Running       bool      `json:"running"`
	ConnectedRoom *string   `json:"connected_room"`
	Since         time.Time `json:"-"`

	owner string
}

var idle = &Snapshot{}

// Tracker holds the process-wide status. The zero value is ready to use.
type Tracker struct {
	current atomic.Pointer[Snapshot]
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.current.Store(idle)
	return t
}

// Begin marks session as the running one in room. session identifies the
// owner for End, so two sessions in the same room stay distinct.
func (t *Tracker) Begin(room, session string) {
	r := room
	t.current.Store(&Snapshot{Running: true, ConnectedRoom: &r, Since: time.Now().UTC(), owner: session})
	log.Printf("[status] running room=%s session=%s", room, session)
}

// End clears the status if session still owns it and reports whether it did.
func (t *Tracker) End(session string) bool {
	for {
		cur := t.current.Load()
		if cur == nil || !cur.Running || cur.owner != session {
			return false
		}
		if t.current.CompareAndSwap(cur, idle) {
			log.Printf("[status] idle, session=%s ended", session)
			return true
		}
	}
}

// Snapshot returns a copy of the current status.
func (t *Tracker) Snapshot() Snapshot {
	cur := t.current.Load()
	if cur == nil {
		return Snapshot{}
	}
	snap := *cur
	if cur.ConnectedRoom != nil {
		room := *cur.ConnectedRoom
		snap.ConnectedRoom = &room
	}
	return snap
}
