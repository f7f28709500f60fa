package flow

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/accord/src/ledger"
)

// Handle is the caller's side of a running flow. It resolves once, with
// either the finalized transaction or the error that rejected the flow.
type Handle struct {
	ID string

	l      sync.RWMutex
	state  State
	result *ledger.SignedTransaction
	err    error

	once   sync.Once
	doneCh chan struct{}
}

// NewHandle creates a Handle in the Initiated state. An empty id is replaced
// by a random one.
func NewHandle(id string) *Handle {
	if id == "" {
		id = uuid.New().String()
	}
	return &Handle{
		ID:     id,
		state:  Initiated,
		doneCh: make(chan struct{}),
	}
}

// State returns the current state of the flow.
func (h *Handle) State() State {
	h.l.RLock()
	defer h.l.RUnlock()
	return h.state
}

// Advance moves the flow to a non-terminal state. It is ignored once the flow
// is resolved.
func (h *Handle) Advance(s State) {
	h.l.Lock()
	defer h.l.Unlock()
	if !h.state.Terminal() {
		h.state = s
	}
}

// Finalize resolves the flow successfully. The handle keeps its own copy of
// stx.
func (h *Handle) Finalize(stx *ledger.SignedTransaction) {
	res, err := stx.Copy()
	if err != nil {
		h.resolve(Rejected, nil, err)
		return
	}
	h.resolve(Finalized, res, nil)
}

// Reject resolves the flow with an error.
func (h *Handle) Reject(err error) {
	h.resolve(Rejected, nil, err)
}

func (h *Handle) resolve(s State, stx *ledger.SignedTransaction, err error) {
	h.once.Do(func() {
		h.l.Lock()
		h.state = s
		h.result = stx
		h.err = err
		h.l.Unlock()
		close(h.doneCh)
	})
}

// Done is closed when the flow is resolved.
func (h *Handle) Done() <-chan struct{} {
	return h.doneCh
}

// Result blocks until the flow is resolved or ctx is done.
func (h *Handle) Result(ctx context.Context) (*ledger.SignedTransaction, error) {
	select {
	case <-h.doneCh:
		h.l.RLock()
		defer h.l.RUnlock()
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
