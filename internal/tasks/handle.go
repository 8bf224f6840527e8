package tasks

import "context"

// Handle refers to a submitted task.
type Handle struct {
	ID       string
	done     chan struct{}
	registry *Registry
}

// Done is closed once the task reached a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finished or ctx is done and returns the latest snapshot.
func (h *Handle) Wait(ctx context.Context) (*Record, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	rec, _ := h.registry.Get(h.ID)
	return rec, nil
}

func (h *Handle) Cancel() bool {
	return h.registry.Cancel(h.ID)
}
