package snapshot

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultRetireGrace is how long a replaced snapshot stays open so in-flight
// requests holding it can finish.
const DefaultRetireGrace = 30 * time.Second

// Holder is the process-wide reference to the current snapshot.
// Readers call Current once per request and use that snapshot throughout.
type Holder struct {
	current atomic.Pointer[Snapshot]
	grace   atomic.Int64
}

// NewHolder creates a holder. initial may be nil.
func NewHolder(initial *Snapshot) *Holder {
	h := &Holder{}
	h.grace.Store(int64(DefaultRetireGrace))
	if initial != nil {
		h.current.Store(initial)
	}
	return h
}

// SetRetireGrace changes how long replaced snapshots are kept open.
// It is safe to call while another goroutine calls Replace.
func (h *Holder) SetRetireGrace(d time.Duration) {
	h.grace.Store(int64(d))
}

// Current returns the current snapshot, or nil when none is loaded.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}

// Swap installs next and returns the previous snapshot without closing it.
func (h *Holder) Swap(next *Snapshot) *Snapshot {
	return h.current.Swap(next)
}

// Replace installs next and closes the previous snapshot after the grace period.
func (h *Holder) Replace(next *Snapshot) {
	old := h.Swap(next)
	if old == nil || old == next {
		return
	}
	h.retire(old)
}

func (h *Holder) retire(old *Snapshot) {
	closeOld := func() {
		if err := old.Close(); err != nil {
			slog.Warn("failed to close retired snapshot",
				slog.String("generation", old.Generation()),
				slog.String("error", err.Error()))
		}
	}
	grace := time.Duration(h.grace.Load())
	if grace <= 0 {
		closeOld()
		return
	}
	time.AfterFunc(grace, closeOld)
}

// Close closes the current snapshot and clears the holder.
func (h *Holder) Close() error {
	old := h.current.Swap(nil)
	return old.Close()
}
