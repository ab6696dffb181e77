package vkc

import (
	"errors"
	"time"
)

// SubmitHandle is a single-use completion token for work submitted without
// blocking. Waiting on it to completion consumes it: the fence is destroyed
// and the transient command buffer, when there is one, is returned to its
// pool. There is no cancellation.
type SubmitHandle struct {
	device  *Device
	fence   *Fence
	command *CommandBuffer
	pool    *CommandPool
	done    bool
}

// Wait blocks until the submitted work completes, up to timeout; a negative
// timeout waits forever. On completion the handle is consumed and further
// calls fail with StateError. ErrTimeout leaves the handle live so the caller
// can wait again.
func (h *SubmitHandle) Wait(timeout time.Duration) error {
	if h.done {
		return &StateError{Op: "Wait", State: "handle already consumed"}
	}

	err := h.fence.Wait(timeout)
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if err != nil {
		return err
	}

	h.fence.Destroy()
	h.fence = nil
	if h.command != nil && h.pool != nil {
		h.pool.FreeBuffer(h.command)
		h.command = nil
	}
	h.done = true
	return nil
}

// Poll checks for completion without blocking. It returns ErrNotReady while
// the work is still in flight; once the fence has signaled it consumes the
// handle exactly as a successful Wait would.
func (h *SubmitHandle) Poll() error {
	if h.done {
		return &StateError{Op: "Poll", State: "handle already consumed"}
	}
	if !h.fence.Signaled() {
		return ErrNotReady
	}
	return h.Wait(0)
}

// Done reports whether the handle has been consumed by a successful Wait.
func (h *SubmitHandle) Done() bool {
	return h.done
}
