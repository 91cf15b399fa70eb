package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates the object union.
type Kind string

const (
	KindStroke Kind = "stroke"
	KindImage  Kind = "image"
)

// ErrInvalidObject is returned when an object fails shape validation.
var ErrInvalidObject = errors.New("invalid object")

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is a freehand path drawn with a tool.
type Stroke struct {
	Tool   string  `json:"tool"`
	Color  string  `json:"color"`
	Size   float64 `json:"size"`
	Points []Point `json:"points"`
}

// Image is a placeholder for a binary asset placed on the canvas.
type Image struct {
	AssetID   string  `json:"asset_id"`
	Mime      string  `json:"mime"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	CreatedAt int64   `json:"created_at"`
}

// Object is a drawing primitive. Exactly one of Stroke or Image is set, matching Kind.
// ID is generated by the creating client and is the only identity.
type Object struct {
	ID     string
	Kind   Kind
	Stroke *Stroke
	Image  *Image
}

// NewStroke builds a stroke object.
func NewStroke(id string, s Stroke) Object {
	return Object{ID: id, Kind: KindStroke, Stroke: &s}
}

// NewImage builds an image object.
func NewImage(id string, img Image) Object {
	return Object{ID: id, Kind: KindImage, Image: &img}
}

// Validate checks the object is a well-formed member of the union.
func (o Object) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidObject)
	}
	switch o.Kind {
	case KindStroke:
		if o.Stroke == nil {
			return fmt.Errorf("%w: stroke %s has no stroke data", ErrInvalidObject, o.ID)
		}
	case KindImage:
		if o.Image == nil {
			return fmt.Errorf("%w: image %s has no image data", ErrInvalidObject, o.ID)
		}
		if o.Image.AssetID == "" {
			return fmt.Errorf("%w: image %s has no asset id", ErrInvalidObject, o.ID)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidObject, o.Kind)
	}
	return nil
}

// Clone returns a deep copy so callers can't alias list internals.
func (o Object) Clone() Object {
	out := Object{ID: o.ID, Kind: o.Kind}
	if o.Stroke != nil {
		s := *o.Stroke
		s.Points = append([]Point(nil), o.Stroke.Points...)
		out.Stroke = &s
	}
	if o.Image != nil {
		img := *o.Image
		out.Image = &img
	}
	return out
}

// wireObject is the flat JSON form: {"id","type", ...variant fields}.
type wireObject struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`

	Tool   string  `json:"tool,omitempty"`
	Color  string  `json:"color,omitempty"`
	Size   float64 `json:"size,omitempty"`
	Points []Point `json:"points,omitempty"`

	AssetID   string  `json:"asset_id,omitempty"`
	Mime      string  `json:"mime,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	CreatedAt int64   `json:"created_at,omitempty"`
}

// MarshalJSON encodes the object in its flat wire form.
func (o Object) MarshalJSON() ([]byte, error) {
	w := wireObject{ID: o.ID, Type: o.Kind}
	switch {
	case o.Stroke != nil:
		w.Tool = o.Stroke.Tool
		w.Color = o.Stroke.Color
		w.Size = o.Stroke.Size
		w.Points = o.Stroke.Points
	case o.Image != nil:
		w.AssetID = o.Image.AssetID
		w.Mime = o.Image.Mime
		w.X = o.Image.X
		w.Y = o.Image.Y
		w.Width = o.Image.Width
		w.Height = o.Image.Height
		w.CreatedAt = o.Image.CreatedAt
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the flat wire form. Unknown types decode with no variant
// set and are rejected later by Validate.
func (o *Object) UnmarshalJSON(data []byte) error {
	var w wireObject
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Object{ID: w.ID, Kind: w.Type}
	switch w.Type {
	case KindStroke:
		o.Stroke = &Stroke{Tool: w.Tool, Color: w.Color, Size: w.Size, Points: w.Points}
	case KindImage:
		o.Image = &Image{
			AssetID:   w.AssetID,
			Mime:      w.Mime,
			X:         w.X,
			Y:         w.Y,
			Width:     w.Width,
			Height:    w.Height,
			CreatedAt: w.CreatedAt,
		}
	}
	return nil
}
