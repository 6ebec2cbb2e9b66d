// Package gateway implements the public-facing request router (spec.md
// §4.E), the token-exchange and error-redirect handlers (§4.F, §4.G),
// and the rebindable listener lifecycle (§4.I).
package gateway

import (
	"sync/atomic"

	"github.com/oauthmw/redirect-gateway/registry"
)

// Snapshot is the read-mostly (registry, port) pair a request observes
// for its entire lifetime, per spec.md §5: the snapshot current at
// dispatch time is used even if a reload completes mid-request.
type Snapshot struct {
	Registry *registry.Registry
	Port     int
}

// snapshotHolder publishes Snapshot values atomically. A single pointer
// swap is the whole publication protocol — no per-tenant locks, per
// spec.md §9's "state publication" design note.
type snapshotHolder struct {
	ptr atomic.Pointer[Snapshot]
}

func (h *snapshotHolder) store(s Snapshot) {
	h.ptr.Store(&s)
}

func (h *snapshotHolder) load() Snapshot {
	p := h.ptr.Load()
	if p == nil {
		return Snapshot{Registry: registry.Build(nil)}
	}
	return *p
}
