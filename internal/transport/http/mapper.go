package http

import (
	"encoding/json"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/core"
	"github.com/vovakirdan/wireboard-server/internal/proto"
)

var presenceKinds = map[string]core.PresenceKind{
	proto.InboundTypeCursor:            core.PresenceCursor,
	proto.InboundTypeCursorStop:        core.PresenceCursorStop,
	proto.InboundTypeStrokeProgress:    core.PresenceStrokeProgress,
	proto.InboundTypeStrokeProgressEnd: core.PresenceStrokeProgressEnd,
	proto.InboundTypeEraserPreview:     core.PresenceEraserPreview,
	proto.InboundTypeEraserPreviewEnd:  core.PresenceEraserPreviewEnd,
	proto.InboundTypeMovePreview:       core.PresenceMovePreview,
	proto.InboundTypeMovePreviewEnd:    core.PresenceMovePreviewEnd,
}

var presenceNames = func() map[core.PresenceKind]string {
	names := make(map[core.PresenceKind]string, len(presenceKinds))
	for name, kind := range presenceKinds {
		names[kind] = name
	}
	return names
}()

var assetCommandKinds = map[string]core.CommandKind{
	proto.InboundTypeAssetUploadStart:    core.CommandAssetStart,
	proto.InboundTypeAssetUploadChunk:    core.CommandAssetChunk,
	proto.InboundTypeAssetUploadComplete: core.CommandAssetComplete,
	proto.InboundTypeAssetRequest:        core.CommandAssetRequest,
}

func invalidPayload(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeInvalidPayload, Msg: err.Error()}
}

// inboundToCommand maps a decoded envelope to a hub command. Malformed payloads
// yield a protocol error for the sender; the connection stays open.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		join, err := proto.ParseJoin(inbound.Data)
		if err != nil {
			return nil, invalidPayload(err)
		}
		if join.CanvasID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "canvas_id is required"}
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Room: join.CanvasID,
			Name: join.DisplayName,
		}, nil
	case proto.InboundTypeLeave:
		var leave proto.LeaveData
		if len(inbound.Data) > 0 {
			if err := json.Unmarshal(inbound.Data, &leave); err != nil {
				return nil, invalidPayload(err)
			}
		}
		return &core.Command{
			Kind: core.CommandLeaveRoom,
			Room: leave.CanvasID,
		}, nil
	case proto.InboundTypeMutation:
		var msg proto.MutationData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, invalidPayload(err)
		}
		return &core.Command{
			Kind:     core.CommandMutate,
			Room:     msg.CanvasID,
			Mutation: msg.Mutation(),
		}, nil
	}

	if kind, ok := presenceKinds[inbound.Type]; ok {
		room, p, err := decodePresence(kind, inbound.Data)
		if err != nil {
			return nil, invalidPayload(err)
		}
		return &core.Command{Kind: core.CommandPresence, Room: room, Presence: p}, nil
	}

	if kind, ok := assetCommandKinds[inbound.Type]; ok {
		var data proto.AssetData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, invalidPayload(err)
		}
		return &core.Command{
			Kind: kind,
			Room: data.CanvasID,
			Asset: &core.AssetFrame{
				Header: asset.Header{
					AssetID:    data.AssetID,
					Mime:       data.Mime,
					TotalBytes: data.TotalBytes,
					ChunkSize:  data.ChunkSize,
				},
				Chunk: asset.Chunk{Seq: data.Seq, Bytes: data.Bytes},
				To:    data.To,
			},
		}, nil
	}

	return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
}

func decodePresence(kind core.PresenceKind, raw json.RawMessage) (string, *core.Presence, error) {
	p := &core.Presence{Kind: kind}
	switch kind {
	case core.PresenceCursor, core.PresenceCursorStop:
		var data proto.CursorData
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", nil, err
		}
		p.Position, p.Drawing, p.Tool = data.Position, data.Drawing, data.Tool
		return data.CanvasID, p, nil
	case core.PresenceStrokeProgress, core.PresenceStrokeProgressEnd:
		var data proto.StrokeProgressData
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", nil, err
		}
		p.TempStrokeID, p.Stroke = data.TempStrokeID, data.Stroke
		return data.CanvasID, p, nil
	case core.PresenceEraserPreview, core.PresenceEraserPreviewEnd:
		var data proto.EraserPreviewData
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", nil, err
		}
		p.CandidateIDs = data.CandidateIDs
		return data.CanvasID, p, nil
	default:
		var data proto.MovePreviewData
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", nil, err
		}
		p.Objects = data.Objects
		return data.CanvasID, p, nil
	}
}

func eventFrame(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSnapshot:
		members := make([]proto.Member, 0, len(event.Members))
		for _, m := range event.Members {
			members = append(members, proto.Member{ConnectionID: m.ID, DisplayName: m.Name})
		}
		objects := event.Objects
		if objects == nil {
			objects = []canvas.Object{}
		}
		return eventFrame(proto.EventSnapshot, proto.EventSnapshotData{
			CanvasID:     event.Room,
			ConnectionID: event.From,
			Objects:      objects,
			Members:      members,
		})
	case core.EventUserJoined, core.EventUserLeft:
		name := proto.EventUserJoined
		if event.Kind == core.EventUserLeft {
			name = proto.EventUserLeft
		}
		return eventFrame(name, proto.EventMemberData{
			CanvasID:     event.Room,
			ConnectionID: event.From,
			DisplayName:  event.User,
		})
	case core.EventMutation:
		return eventFrame(proto.EventMutation, proto.MutationData{
			CanvasID:     event.Room,
			ConnectionID: event.From,
			Op:           event.Mutation.Op,
			Objects:      event.Mutation.Objects,
			IDs:          event.Mutation.IDs,
			Timestamp:    event.Mutation.Timestamp,
		})
	case core.EventPresence:
		if event.Presence == nil {
			break
		}
		return eventFrame(presenceNames[event.Presence.Kind], presenceData(event))
	case core.EventAssetUploadStart, core.EventAssetUploadChunk, core.EventAssetUploadComplete,
		core.EventAssetAvailable, core.EventAssetChunk, core.EventAssetComplete, core.EventAssetRequest:
		if event.Asset == nil {
			break
		}
		return eventFrame(assetEventNames[event.Kind], assetData(event))
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	}
	return proto.Outbound{Type: proto.OutboundTypeEvent}
}

var assetEventNames = map[core.EventKind]string{
	core.EventAssetUploadStart:    proto.InboundTypeAssetUploadStart,
	core.EventAssetUploadChunk:    proto.InboundTypeAssetUploadChunk,
	core.EventAssetUploadComplete: proto.InboundTypeAssetUploadComplete,
	core.EventAssetAvailable:      proto.EventAssetAvailable,
	core.EventAssetChunk:          proto.EventAssetChunk,
	core.EventAssetComplete:       proto.EventAssetComplete,
	core.EventAssetRequest:        proto.EventAssetRequest,
}

func presenceData(event *core.Event) any {
	p := event.Presence
	switch p.Kind {
	case core.PresenceCursor, core.PresenceCursorStop:
		return proto.CursorData{CanvasID: event.Room, ConnectionID: event.From, Position: p.Position, Drawing: p.Drawing, Tool: p.Tool}
	case core.PresenceStrokeProgress, core.PresenceStrokeProgressEnd:
		return proto.StrokeProgressData{CanvasID: event.Room, ConnectionID: event.From, TempStrokeID: p.TempStrokeID, Stroke: p.Stroke}
	case core.PresenceEraserPreview, core.PresenceEraserPreviewEnd:
		return proto.EraserPreviewData{CanvasID: event.Room, ConnectionID: event.From, CandidateIDs: p.CandidateIDs}
	default:
		return proto.MovePreviewData{CanvasID: event.Room, ConnectionID: event.From, Objects: p.Objects}
	}
}

func assetData(event *core.Event) proto.AssetData {
	a := event.Asset
	return proto.AssetData{
		CanvasID:     event.Room,
		ConnectionID: event.From,
		AssetID:      a.Header.AssetID,
		Mime:         a.Header.Mime,
		TotalBytes:   a.Header.TotalBytes,
		ChunkSize:    a.Header.ChunkSize,
		Seq:          a.Chunk.Seq,
		Bytes:        a.Chunk.Bytes,
	}
}
