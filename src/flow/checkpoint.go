package flow

import (
	"bytes"
	"sync"
	"time"

	"github.com/mosaicnetworks/accord/src/ledger"
	"github.com/ugorji/go/codec"
)

// Checkpoint is a snapshot of a flow taken at a transition.
type Checkpoint struct {
	FlowID       string
	Role         Role
	State        State
	TxID         string
	Tx           *ledger.SignedTransaction `json:",omitempty"`
	Counterparty string
	Error        string `json:",omitempty"`
	Timestamp    int64
}

// NewCheckpoint ...
func NewCheckpoint(flowID string, role Role, state State, counterparty string) Checkpoint {
	return Checkpoint{
		FlowID:       flowID,
		Role:         role,
		State:        state,
		Counterparty: counterparty,
		Timestamp:    time.Now().UnixNano(),
	}
}

// WithTx sets the transaction of the checkpoint to a copy of stx.
func (c Checkpoint) WithTx(stx *ledger.SignedTransaction) Checkpoint {
	c.Tx = nil
	if stx != nil {
		c.TxID, _ = stx.ID()
		c.Tx, _ = stx.Copy()
	}
	return c
}

// detached returns c with its own copy of the transaction.
func (c Checkpoint) detached() Checkpoint {
	if c.Tx != nil {
		c.Tx, _ = c.Tx.Copy()
	}
	return c
}

// WithError sets the error of the checkpoint.
func (c Checkpoint) WithError(err error) Checkpoint {
	if err != nil {
		c.Error = err.Error()
	}
	return c
}

// Marshal ...
func (c *Checkpoint) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(c); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (c *Checkpoint) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(c)
}

// Tracker keeps the checkpoints of all the flows a node took part in.
type Tracker struct {
	sync.RWMutex
	order   []string
	history map[string][]Checkpoint
}

// NewTracker ...
func NewTracker() *Tracker {
	return &Tracker{
		order:   []string{},
		history: make(map[string][]Checkpoint),
	}
}

// Checkpoint appends c to the history of its flow.
func (t *Tracker) Checkpoint(c Checkpoint) {
	t.Lock()
	defer t.Unlock()

	if _, ok := t.history[c.FlowID]; !ok {
		t.order = append(t.order, c.FlowID)
	}
	t.history[c.FlowID] = append(t.history[c.FlowID], c)
}

// Latest returns the last checkpoint of every flow, oldest flow first.
func (t *Tracker) Latest() []Checkpoint {
	t.RLock()
	defer t.RUnlock()

	res := make([]Checkpoint, 0, len(t.order))
	for _, id := range t.order {
		h := t.history[id]
		res = append(res, h[len(h)-1].detached())
	}
	return res
}

// History returns the checkpoints of a flow in order.
func (t *Tracker) History(flowID string) []Checkpoint {
	t.RLock()
	defer t.RUnlock()
	res := make([]Checkpoint, 0, len(t.history[flowID]))
	for _, c := range t.history[flowID] {
		res = append(res, c.detached())
	}
	return res
}

// Active returns the number of flows whose last checkpoint is not terminal.
func (t *Tracker) Active() int {
	t.RLock()
	defer t.RUnlock()

	n := 0
	for _, h := range t.history {
		if !h[len(h)-1].State.Terminal() {
			n++
		}
	}
	return n
}

// WithState returns a copy of c in state s, stamped now.
func (c Checkpoint) WithState(s State) Checkpoint {
	c.State = s
	c.Timestamp = time.Now().UnixNano()
	return c
}
