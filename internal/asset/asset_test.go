package asset

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBlob(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

func TestRoundTripReversedChunks(t *testing.T) {
	const chunkSize = 512

	for _, k := range []int{1, 2, 50} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			// last chunk is short to exercise the tail
			original := randomBlob(t, chunkSize*(k-1)+chunkSize/3)
			chunks := Split(original, chunkSize)
			require.Len(t, chunks, k)

			h := Header{AssetID: "a1", Mime: "application/octet-stream", TotalBytes: int64(len(original)), ChunkSize: chunkSize}
			in := NewInbox()
			require.NoError(t, in.Start(h))

			for i := len(chunks) - 1; i >= 0; i-- {
				_, _, done, err := in.Chunk("a1", chunks[i])
				require.NoError(t, err)
				assert.False(t, done)
			}

			_, blob, err := in.Complete("a1")
			require.NoError(t, err)
			assert.True(t, bytes.Equal(original, blob))
			assert.Zero(t, in.Len())
		})
	}
}

func TestMissingChunkStallsAssembly(t *testing.T) {
	original := randomBlob(t, 300)
	chunks := Split(original, 100)

	in := NewInbox()
	require.NoError(t, in.Start(Header{AssetID: "a", TotalBytes: 300, ChunkSize: 100}))

	_, _, _, err := in.Chunk("a", chunks[0])
	require.NoError(t, err)
	_, _, _, err = in.Chunk("a", chunks[2])
	require.NoError(t, err)

	_, _, err = in.Complete("a")
	require.ErrorIs(t, err, ErrIncomplete)

	state, ok := in.State("a")
	require.True(t, ok)
	assert.Equal(t, StateAssembling, state)

	// a late chunk after the terminal message finishes the asset
	_, blob, done, err := in.Chunk("a", chunks[1])
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, original, blob)
}

func TestChunkWithoutStart(t *testing.T) {
	in := NewInbox()
	_, _, _, err := in.Chunk("nope", Chunk{Seq: 0, Bytes: []byte("x")})
	assert.ErrorIs(t, err, ErrUnknownAsset)

	_, _, err = in.Complete("nope")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestAssemblerStates(t *testing.T) {
	a := NewAssembler(Header{AssetID: "a", TotalBytes: 4, ChunkSize: 2})
	assert.Equal(t, StateAwaiting, a.State())

	a.AddChunk(Chunk{Seq: 1, Bytes: []byte("cd")})
	assert.Equal(t, StateAssembling, a.State())

	a.AddChunk(Chunk{Seq: 0, Bytes: []byte("ab")})
	blob, err := a.Complete()
	require.NoError(t, err)
	assert.Equal(t, StateComplete, a.State())
	assert.Equal(t, "abcd", string(blob))
}

func TestEmptyAsset(t *testing.T) {
	in := NewInbox()
	require.NoError(t, in.Start(Header{AssetID: "empty"}))
	_, blob, err := in.Complete("empty")
	require.NoError(t, err)
	assert.Empty(t, blob)
}

func TestHeaderValidate(t *testing.T) {
	assert.ErrorIs(t, Header{}.Validate(), ErrInvalidHeader)
	assert.ErrorIs(t, Header{AssetID: "a", TotalBytes: 10}.Validate(), ErrInvalidHeader)
	assert.NoError(t, Header{AssetID: "a", TotalBytes: 10, ChunkSize: 4}.Validate())
	assert.Equal(t, 3, Header{AssetID: "a", TotalBytes: 10, ChunkSize: 4}.Chunks())
}

func TestCheckChunk(t *testing.T) {
	h := Header{AssetID: "a", TotalBytes: 8, ChunkSize: 4}
	assert.ErrorIs(t, h.CheckChunk(Chunk{Seq: -1}), ErrInvalidChunk)
	assert.ErrorIs(t, h.CheckChunk(Chunk{Seq: 2}), ErrInvalidChunk)
	assert.NoError(t, h.CheckChunk(Chunk{Seq: 1}))

	// size unknown: only negative seqs are rejected
	unknown := Header{AssetID: "b"}
	assert.ErrorIs(t, unknown.CheckChunk(Chunk{Seq: -3}), ErrInvalidChunk)
	assert.NoError(t, unknown.CheckChunk(Chunk{Seq: 40}))
}

func TestOutOfRangeChunksDontBlockAssembly(t *testing.T) {
	data := []byte("abcdefgh")
	h := Header{AssetID: "a1", Mime: "text/plain", TotalBytes: int64(len(data)), ChunkSize: 4}

	in := NewInbox()
	require.NoError(t, in.Start(h))

	_, _, _, err := in.Chunk("a1", Chunk{Seq: -1, Bytes: []byte("zz")})
	require.ErrorIs(t, err, ErrInvalidChunk)
	_, _, _, err = in.Chunk("a1", Chunk{Seq: 5, Bytes: []byte("zz")})
	require.ErrorIs(t, err, ErrInvalidChunk)

	for _, c := range Split(data, 4) {
		_, _, _, err := in.Chunk("a1", c)
		require.NoError(t, err)
	}
	_, blob, err := in.Complete("a1")
	require.NoError(t, err)
	assert.Equal(t, data, blob)

	// the assembler alone ignores them too
	a := NewAssembler(h)
	assert.False(t, a.AddChunk(Chunk{Seq: -1, Bytes: []byte("zz")}))
	for _, c := range Split(data, 4) {
		a.AddChunk(c)
	}
	got, err := a.Complete()
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPacerSendsInOrderAndStopsOnCancel(t *testing.T) {
	chunks := Split(randomBlob(t, 100), 10)

	var seen []int
	p := Pacer{ChunksPerYield: 3}
	err := p.Send(context.Background(), chunks, func(c Chunk) error {
		seen = append(seen, c.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)

	ctx, cancel := context.WithCancel(context.Background())
	sent := 0
	err = p.Send(ctx, chunks, func(c Chunk) error {
		sent++
		if sent == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sent)
}

func TestDecodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 7, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	d, err := Decode("a", "image/png", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 7, d.Width)
	assert.Equal(t, 3, d.Height)

	_, err = Decode("a", "image/jpeg", buf.Bytes())
	assert.ErrorIs(t, err, ErrMimeMismatch)

	d, err = Decode("a", "", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/png", d.Mime)
}
