package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

// recorder is an Outbox that keeps everything sent.
type recorder struct {
	mu   sync.Mutex
	sent []proto.Inbound
}

func (r *recorder) Send(_ context.Context, msg proto.Inbound) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recorder) ofType(typ string) []proto.Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []proto.Inbound
	for _, msg := range r.sent {
		if msg.Type == typ {
			out = append(out, msg)
		}
	}
	return out
}

func (r *recorder) all() []proto.Inbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]proto.Inbound(nil), r.sent...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

func lastMutation(t *testing.T, r *recorder) proto.MutationData {
	t.Helper()
	msgs := r.ofType(proto.InboundTypeMutation)
	require.NotEmpty(t, msgs, "no mutation sent")
	var data proto.MutationData
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Data, &data))
	return data
}

func eventFrame(t *testing.T, event string, data any) proto.Frame {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return proto.Frame{Type: proto.OutboundTypeEvent, Event: event, Data: raw}
}

func stroke(id string) canvas.Object {
	return canvas.NewStroke(id, canvas.Stroke{Tool: "pen", Color: "#000", Size: 1, Points: []canvas.Point{{X: 0, Y: 0}, {X: 4, Y: 4}}})
}

func ids(objs []canvas.Object) []string {
	out := make([]string, len(objs))
	for i := range objs {
		out[i] = objs[i].ID
	}
	return out
}

// joinedEngine returns an engine admitted to canvasID with the given baseline.
func joinedEngine(t *testing.T, canvasID string, baseline ...canvas.Object) (*Engine, *recorder, *clock.Mock) {
	t.Helper()
	return joinedEngineOpts(t, Options{}, canvasID, baseline...)
}

func joinedEngineOpts(t *testing.T, opts Options, canvasID string, baseline ...canvas.Object) (*Engine, *recorder, *clock.Mock) {
	t.Helper()

	out := &recorder{}
	mock := clock.NewMock()
	opts.DisplayName = "me"
	opts.Clock = mock
	e := NewEngine(out, opts)
	require.NoError(t, e.Join(context.Background(), canvasID))

	if baseline == nil {
		baseline = []canvas.Object{}
	}
	require.NoError(t, e.Handle(context.Background(), eventFrame(t, proto.EventSnapshot, proto.EventSnapshotData{
		CanvasID:     canvasID,
		ConnectionID: "me-1",
		Objects:      baseline,
		Members:      []proto.Member{{ConnectionID: "me-1", DisplayName: "me"}},
	})))
	out.reset()
	return e, out, mock
}

func remoteMutation(t *testing.T, canvasID, from string, m canvas.Mutation) proto.Frame {
	t.Helper()
	return eventFrame(t, proto.EventMutation, proto.MutationData{
		CanvasID:     canvasID,
		ConnectionID: from,
		Op:           m.Op,
		Objects:      m.Objects,
		IDs:          m.IDs,
		Timestamp:    1,
	})
}
