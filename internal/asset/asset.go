package asset

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultChunkSize is used when a sender doesn't specify one.
const DefaultChunkSize = 32 * 1024

var (
	// ErrUnknownAsset is returned for chunks or completes without a prior start.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrIncomplete is returned when reassembly is attempted with chunks missing.
	ErrIncomplete = errors.New("asset incomplete")
	// ErrInvalidHeader is returned for a start header that can't describe a transfer.
	ErrInvalidHeader = errors.New("invalid asset header")
	// ErrInvalidChunk is returned for a chunk whose sequence number can't belong to the transfer.
	ErrInvalidChunk = errors.New("invalid asset chunk")
)

// Header announces a transfer.
type Header struct {
	AssetID    string
	Mime       string
	TotalBytes int64
	ChunkSize  int
}

// Validate checks the header can be used for reassembly.
func (h Header) Validate() error {
	if h.AssetID == "" {
		return fmt.Errorf("%w: asset id is required", ErrInvalidHeader)
	}
	if h.TotalBytes < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidHeader)
	}
	if h.TotalBytes > 0 && h.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size is required", ErrInvalidHeader)
	}
	return nil
}

// Chunks returns how many chunks the transfer carries.
func (h Header) Chunks() int {
	if h.TotalBytes == 0 || h.ChunkSize <= 0 {
		return 0
	}
	return int((h.TotalBytes + int64(h.ChunkSize) - 1) / int64(h.ChunkSize))
}

// CheckChunk rejects negative sequence numbers and, when the size is known,
// sequence numbers past the last chunk.
func (h Header) CheckChunk(c Chunk) error {
	if c.Seq < 0 {
		return fmt.Errorf("%w: negative seq %d", ErrInvalidChunk, c.Seq)
	}
	if n := h.Chunks(); n > 0 && c.Seq >= n {
		return fmt.Errorf("%w: seq %d of %d chunks", ErrInvalidChunk, c.Seq, n)
	}
	return nil
}

// Chunk is one sequenced slice of an asset.
type Chunk struct {
	Seq   int
	Bytes []byte
}

// Split cuts data into chunkSize pieces numbered from zero.
func Split(data []byte, chunkSize int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (len(data)+chunkSize-1)/chunkSize)
	for seq, off := 0, 0; off < len(data); seq, off = seq+1, off+chunkSize {
		end := min(off+chunkSize, len(data))
		chunks = append(chunks, Chunk{Seq: seq, Bytes: data[off:end]})
	}
	return chunks
}

// State is the receiver-side lifecycle of one asset.
type State int

const (
	StateAwaiting State = iota
	StateAssembling
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting"
	case StateAssembling:
		return "assembling"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Assembler buffers chunks of one asset by sequence number. Arrival order doesn't
// matter; a missing chunk leaves it assembling forever.
type Assembler struct {
	header         Header
	chunks         map[int][]byte
	completeSignal bool
	blob           []byte
	state          State
}

// NewAssembler starts an empty assembler for h.
func NewAssembler(h Header) *Assembler {
	return &Assembler{
		header: h,
		chunks: make(map[int][]byte),
		state:  StateAwaiting,
	}
}

// Header returns the transfer header.
func (a *Assembler) Header() Header {
	return a.header
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	return a.state
}

// Blob returns the reassembled bytes once complete.
func (a *Assembler) Blob() []byte {
	return a.blob
}

// AddChunk stores a chunk. If the terminal message already arrived, the chunk may
// finish the asset; done reports that. Chunks failing CheckChunk are ignored.
func (a *Assembler) AddChunk(c Chunk) (done bool) {
	if a.state == StateComplete {
		return true
	}
	if a.header.CheckChunk(c) != nil {
		return false
	}
	a.chunks[c.Seq] = append([]byte(nil), c.Bytes...)
	a.state = StateAssembling
	if a.completeSignal {
		return a.tryFinish() == nil
	}
	return false
}

// Complete handles the terminal message. It returns ErrIncomplete when chunks are
// still missing; the assembler then keeps waiting.
func (a *Assembler) Complete() ([]byte, error) {
	if a.state == StateComplete {
		return a.blob, nil
	}
	a.completeSignal = true
	if err := a.tryFinish(); err != nil {
		return nil, err
	}
	return a.blob, nil
}

func (a *Assembler) tryFinish() error {
	expected := a.header.Chunks()
	if a.header.TotalBytes == 0 && a.header.ChunkSize <= 0 {
		// size unknown: trust the highest sequence seen and require no gaps
		for seq := range a.chunks {
			expected = max(expected, seq+1)
		}
	}
	if len(a.chunks) < expected {
		return fmt.Errorf("%w: %d of %d chunks", ErrIncomplete, len(a.chunks), expected)
	}

	seqs := make([]int, 0, len(a.chunks))
	for seq := range a.chunks {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	for i := 0; i < expected; i++ {
		if seqs[i] != i {
			return fmt.Errorf("%w: missing chunk %d", ErrIncomplete, i)
		}
	}

	var size int64
	for i := 0; i < expected; i++ {
		size += int64(len(a.chunks[i]))
	}
	if a.header.TotalBytes > 0 && size != a.header.TotalBytes {
		return fmt.Errorf("%w: %d of %d bytes", ErrIncomplete, size, a.header.TotalBytes)
	}

	blob := make([]byte, 0, size)
	for i := 0; i < expected; i++ {
		blob = append(blob, a.chunks[i]...)
	}
	a.blob = blob
	a.chunks = nil
	a.state = StateComplete
	return nil
}
