// Package imaging ships reference processors that rotate and resize
// derivative images.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"clipper/internal/processor"
)

// FixRotation applies the EXIF orientation of JPEG derivatives.
type FixRotation struct {
	processor.Base
}

// NewFixRotation returns the rotation processor.
func NewFixRotation() processor.Processor { return FixRotation{} }

func (FixRotation) RegisteredMimes() []string { return []string{"image/jpeg"} }

func (FixRotation) OnSave(_ context.Context, r io.Reader, pc processor.Context) (io.Reader, error) {
	if !pc.IsDerivative() {
		return r, nil
	}
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("fix rotation: decode: %w", err)
	}
	return encode(img, imaging.JPEG)
}

// Resize scales derivatives to the width and height options. With
// preserve_ratio the image is fitted inside the box; otherwise it is
// stretched to it, or scaled proportionally when one side is zero.
type Resize struct {
	processor.Base
}

// NewResize returns the resize processor.
func NewResize() processor.Processor { return Resize{} }

func (Resize) RegisteredMimes() []string {
	return []string{"image/jpeg", "image/png", "image/gif"}
}

// OnBeforeSave rejects malformed dimensions before any decoding happens.
func (Resize) OnBeforeSave(_ context.Context, r io.Reader, pc processor.Context) (io.Reader, error) {
	if _, err := parseBox(pc); err != nil {
		return nil, err
	}
	return r, nil
}

func (Resize) OnSave(_ context.Context, r io.Reader, pc processor.Context) (io.Reader, error) {
	b, err := parseBox(pc)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return r, nil
	}
	format, err := formatFor(pc.File.MimeType)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("resize: decode: %w", err)
	}
	if b.preserveRatio && b.width > 0 && b.height > 0 {
		img = imaging.Fit(img, b.width, b.height, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, b.width, b.height, imaging.Lanczos)
	}
	return encode(img, format)
}

type box struct {
	width         int
	height        int
	preserveRatio bool
}

// parseBox reads the resize options. It returns nil when the options carry
// no resize request at all.
func parseBox(pc processor.Context) (*box, error) {
	if !pc.IsDerivative() {
		return nil, nil
	}
	width, hasWidth, err := dimension(pc.Options, "width")
	if err != nil {
		return nil, err
	}
	height, hasHeight, err := dimension(pc.Options, "height")
	if err != nil {
		return nil, err
	}
	preserve, hasPreserve := flag(pc.Options, "preserve_ratio", "preserveRatio")
	if !hasWidth && !hasHeight {
		if hasPreserve {
			return nil, fmt.Errorf("resize: width or height is required")
		}
		return nil, nil
	}
	if width == 0 && height == 0 {
		return nil, fmt.Errorf("resize: width or height must be positive")
	}
	return &box{width: width, height: height, preserveRatio: preserve}, nil
}

func dimension(opts map[string]any, key string) (int, bool, error) {
	raw, ok := opts[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var value int64
	switch v := raw.(type) {
	case int:
		value = int64(v)
	case int32:
		value = int64(v)
	case int64:
		value = v
	case uint:
		value = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("resize: %s must be an integer, got %v", key, v)
		}
		value = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("resize: %s must be an integer, got %q", key, v)
		}
		value = parsed
	default:
		return 0, false, fmt.Errorf("resize: %s must be an integer, got %T", key, raw)
	}
	if value < 0 || value > math.MaxInt32 {
		return 0, false, fmt.Errorf("resize: %s out of range: %d", key, value)
	}
	return int(value), true, nil
}

func flag(opts map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		raw, ok := opts[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			parsed, err := strconv.ParseBool(v)
			return err == nil && parsed, true
		case int:
			return v != 0, true
		case int64:
			return v != 0, true
		default:
			return raw != nil, true
		}
	}
	return false, false
}

func formatFor(mimeType string) (imaging.Format, error) {
	switch mimeType {
	case "image/jpeg":
		return imaging.JPEG, nil
	case "image/png":
		return imaging.PNG, nil
	case "image/gif":
		return imaging.GIF, nil
	default:
		return 0, fmt.Errorf("resize: unsupported mime type %q", mimeType)
	}
}

func encode(img image.Image, format imaging.Format) (io.Reader, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return &buf, nil
}
