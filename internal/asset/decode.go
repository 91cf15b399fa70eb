package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrMimeMismatch is returned when a blob's content doesn't match its declared type.
var ErrMimeMismatch = errors.New("asset content does not match declared mime")

// Decoded is an assembled blob interpreted per its MIME type.
type Decoded struct {
	AssetID string
	Mime    string
	Width   int
	Height  int
	Data    []byte
}

// Detect sniffs the MIME type of data.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

// Decode checks the blob against the declared MIME type and, for images, reads
// the dimensions. An empty declared type is replaced by the sniffed one.
func Decode(assetID, declared string, blob []byte) (*Decoded, error) {
	detected := mimetype.Detect(blob)
	if declared == "" {
		declared = detected.String()
	}
	if !detected.Is(declared) {
		return nil, fmt.Errorf("%w: declared %s, detected %s", ErrMimeMismatch, declared, detected.String())
	}

	d := &Decoded{AssetID: assetID, Mime: declared, Data: blob}
	if strings.HasPrefix(declared, "image/") {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
		if err == nil {
			d.Width = cfg.Width
			d.Height = cfg.Height
		}
	}
	return d, nil
}
