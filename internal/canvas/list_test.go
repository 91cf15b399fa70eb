package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stroke(id string) Object {
	return NewStroke(id, Stroke{Tool: "pen", Color: "#000000", Size: 2, Points: []Point{{X: 1, Y: 1}, {X: 2, Y: 3}}})
}

func TestListAddIsIdempotent(t *testing.T) {
	l := NewList(nil)

	assert.True(t, l.Add(stroke("x")))
	assert.False(t, l.Add(stroke("x")))

	require.Equal(t, 1, l.Len())
	assert.Equal(t, []string{"x"}, l.IDs())
}

func TestListUpdateReplacesOrAppends(t *testing.T) {
	l := NewList([]Object{stroke("a"), stroke("b")})

	moved := stroke("a")
	moved.Stroke.Points = []Point{{X: 10, Y: 10}}
	assert.True(t, l.Update(moved))

	got, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, []Point{{X: 10, Y: 10}}, got.Stroke.Points)
	assert.Equal(t, []string{"a", "b"}, l.IDs(), "update keeps position")

	assert.False(t, l.Update(stroke("c")), "missing id is created")
	assert.Equal(t, []string{"a", "b", "c"}, l.IDs())
}

func TestListRemove(t *testing.T) {
	l := NewList([]Object{stroke("a"), stroke("b"), stroke("c")})

	removed := l.Remove("b", "ghost")
	require.Len(t, removed, 1)
	assert.Equal(t, "b", removed[0].ID)
	assert.Equal(t, []string{"a", "c"}, l.IDs())

	assert.Empty(t, l.Remove("b"), "removing an absent id is a no-op")
	assert.Equal(t, []string{"a", "c"}, l.IDs())
}

func TestListObjectsAreCopies(t *testing.T) {
	l := NewList([]Object{stroke("a")})

	objs := l.Objects()
	objs[0].Stroke.Points[0].X = 99

	got, _ := l.Get("a")
	assert.Equal(t, float64(1), got.Stroke.Points[0].X)
}

func TestNewListDropsDuplicateIDs(t *testing.T) {
	l := NewList([]Object{stroke("a"), stroke("a"), stroke("b")})
	assert.Equal(t, []string{"a", "b"}, l.IDs())
}

func TestApplyFoldsSequence(t *testing.T) {
	ops := []Mutation{
		{Op: OpAdd, Objects: []Object{stroke("a"), stroke("b")}},
		{Op: OpAdd, Objects: []Object{stroke("a")}},
		{Op: OpUpdate, Objects: []Object{stroke("c")}},
		{Op: OpRemove, IDs: []string{"b"}},
		{Op: OpRemove, IDs: []string{"b"}},
	}

	l := NewList(nil)
	for _, m := range ops {
		require.NoError(t, m.Validate())
		l.Apply(m)
	}
	assert.Equal(t, []string{"a", "c"}, l.IDs())

	res := l.Apply(Mutation{Op: OpClear})
	assert.Len(t, res.Removed, 2)
	assert.Zero(t, l.Len())
}

func TestApplyResult(t *testing.T) {
	l := NewList([]Object{stroke("a")})

	assert.False(t, l.Apply(Mutation{Op: OpAdd, Objects: []Object{stroke("a")}}).Changed())
	assert.False(t, l.Apply(Mutation{Op: OpRemove, IDs: []string{"zzz"}}).Changed())

	res := l.Apply(Mutation{Op: OpUpdate, Objects: []Object{stroke("a"), stroke("b")}})
	assert.Len(t, res.Replaced, 1)
	assert.Len(t, res.Added, 1)
}

func TestMutationValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Mutation
		wantErr bool
	}{
		{name: "add ok", m: Mutation{Op: OpAdd, Objects: []Object{stroke("a")}}},
		{name: "add empty", m: Mutation{Op: OpAdd}, wantErr: true},
		{name: "add missing id", m: Mutation{Op: OpAdd, Objects: []Object{stroke("")}}, wantErr: true},
		{name: "update ok", m: Mutation{Op: OpUpdate, Objects: []Object{stroke("a")}}},
		{name: "remove ok", m: Mutation{Op: OpRemove, IDs: []string{"a"}}},
		{name: "remove empty", m: Mutation{Op: OpRemove}, wantErr: true},
		{name: "remove blank id", m: Mutation{Op: OpRemove, IDs: []string{""}}, wantErr: true},
		{name: "clear", m: Mutation{Op: OpClear}},
		{name: "unknown op", m: Mutation{Op: "rotate"}, wantErr: true},
		{name: "image without asset", m: Mutation{Op: OpAdd, Objects: []Object{NewImage("i", Image{})}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMutation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestObjectWireForm(t *testing.T) {
	img := NewImage("img-1", Image{AssetID: "asset-1", Mime: "image/png", X: 5, Y: 6, Width: 100, Height: 50, CreatedAt: 1700000000000})

	data, err := json.Marshal(img)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"img-1","type":"image","asset_id":"asset-1","mime":"image/png","x":5,"y":6,"width":100,"height":50,"created_at":1700000000000}`, string(data))

	var decoded Object
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s","type":"stroke","tool":"pen","color":"red","size":3,"points":[{"x":1,"y":2}]}`), &decoded))
	require.NoError(t, decoded.Validate())
	assert.Equal(t, KindStroke, decoded.Kind)
	assert.Equal(t, "red", decoded.Stroke.Color)
	assert.Nil(t, decoded.Image)

	var unknown Object
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q","type":"blob"}`), &unknown))
	assert.ErrorIs(t, unknown.Validate(), ErrInvalidObject)
}
