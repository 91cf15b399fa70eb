package asset

import "fmt"

// Inbox tracks in-flight inbound transfers by asset id.
// Not safe for concurrent use.
type Inbox struct {
	pending map[string]*Assembler
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{pending: make(map[string]*Assembler)}
}

// Start registers a transfer. A repeated start for the same id restarts it.
func (in *Inbox) Start(h Header) error {
	if err := h.Validate(); err != nil {
		return err
	}
	in.pending[h.AssetID] = NewAssembler(h)
	return nil
}

// Chunk adds a chunk. When it completes a transfer whose terminal message already
// arrived, the blob is returned with done set.
func (in *Inbox) Chunk(assetID string, c Chunk) (h Header, blob []byte, done bool, err error) {
	a, ok := in.pending[assetID]
	if !ok {
		return Header{}, nil, false, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	if err := a.Header().CheckChunk(c); err != nil {
		return a.Header(), nil, false, err
	}
	if !a.AddChunk(c) {
		return a.Header(), nil, false, nil
	}
	delete(in.pending, assetID)
	return a.Header(), a.Blob(), true, nil
}

// Complete handles the terminal message. ErrIncomplete means the transfer stays
// pending until the missing chunks arrive, if ever.
func (in *Inbox) Complete(assetID string) (Header, []byte, error) {
	a, ok := in.pending[assetID]
	if !ok {
		return Header{}, nil, fmt.Errorf("%w: %s", ErrUnknownAsset, assetID)
	}
	blob, err := a.Complete()
	if err != nil {
		return a.Header(), nil, err
	}
	delete(in.pending, assetID)
	return a.Header(), blob, nil
}

// Header returns the header of a pending transfer.
func (in *Inbox) Header(assetID string) (Header, bool) {
	a, ok := in.pending[assetID]
	if !ok {
		return Header{}, false
	}
	return a.Header(), true
}

// State reports the lifecycle state of a pending transfer.
func (in *Inbox) State(assetID string) (State, bool) {
	a, ok := in.pending[assetID]
	if !ok {
		return 0, false
	}
	return a.State(), true
}

// Drop forgets a pending transfer.
func (in *Inbox) Drop(assetID string) {
	delete(in.pending, assetID)
}

// Len returns the number of pending transfers.
func (in *Inbox) Len() int {
	return len(in.pending)
}
