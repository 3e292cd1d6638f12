package entities

import (
	"encoding/json"
)

// CanvasElementsKey is the extra_data key holding the positioned elements of a slide
const CanvasElementsKey = "canvas_elements"

// Default size of an image element when the caller gives no placement
const (
	DefaultImageWidth  = 400.0
	DefaultImageHeight = 300.0
)

// ElementType identifies the kind of a canvas element
type ElementType string

const (
	ElementImage ElementType = "image"
	ElementText  ElementType = "text"
)

// CanvasElement is one positioned item on a slide. It stays an open map so
// type-specific fields written by the editor survive a load/save cycle.
type CanvasElement map[string]interface{}

// Type returns the element type
func (e CanvasElement) Type() ElementType {
	t, _ := e["type"].(string)
	return ElementType(t)
}

// IsImage reports whether the element is an image
func (e CanvasElement) IsImage() bool {
	return e.Type() == ElementImage
}

// FilePath returns the stored path of the backing image file
func (e CanvasElement) FilePath() string {
	p, _ := e["file_path"].(string)
	return p
}

// RelativePath returns the image file name relative to the slide images directory
func (e CanvasElement) RelativePath() string {
	p, _ := e["relative_path"].(string)
	return p
}

// Number reads a numeric field, accepting the shapes JSON and YAML decoders produce
func (e CanvasElement) Number(key string, def float64) float64 {
	switch v := e[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return def
}

// Clone returns a deep copy of the element
func (e CanvasElement) Clone() CanvasElement {
	if e == nil {
		return nil
	}
	return CanvasElement(deepCopyMap(e))
}

// Placement positions an image element on the canvas
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// DefaultPlacement puts an element at the origin with the default image size
func DefaultPlacement() Placement {
	return Placement{Width: DefaultImageWidth, Height: DefaultImageHeight}
}

// PlacementOf reads the placement of an existing element, defaulting missing fields
func PlacementOf(e CanvasElement) Placement {
	return Placement{
		X:      e.Number("x", 0),
		Y:      e.Number("y", 0),
		Width:  e.Number("width", DefaultImageWidth),
		Height: e.Number("height", DefaultImageHeight),
	}
}

func (p *Placement) orDefault() Placement {
	if p == nil {
		return DefaultPlacement()
	}
	out := *p
	if out.Width <= 0 {
		out.Width = DefaultImageWidth
	}
	if out.Height <= 0 {
		out.Height = DefaultImageHeight
	}
	return out
}

// apply writes the placement into the element
func (p Placement) apply(e CanvasElement) {
	e["x"] = p.X
	e["y"] = p.Y
	e["width"] = p.Width
	e["height"] = p.Height
}

// canvasElementsOf normalizes the canvas list stored in extra data. Items
// that are not objects are dropped from the view.
func canvasElementsOf(extra map[string]interface{}) []CanvasElement {
	raw, ok := extra[CanvasElementsKey]
	if !ok || raw == nil {
		return nil
	}

	var out []CanvasElement
	switch list := raw.(type) {
	case []interface{}:
		for _, item := range list {
			switch m := item.(type) {
			case map[string]interface{}:
				out = append(out, CanvasElement(m))
			case CanvasElement:
				out = append(out, m)
			}
		}
	case []CanvasElement:
		out = append(out, list...)
	case []map[string]interface{}:
		for _, m := range list {
			out = append(out, CanvasElement(m))
		}
	}
	return out
}

// canvasItems returns a fresh copy of the raw canvas list. ok is false when
// the key holds something other than a list.
func canvasItems(raw interface{}) ([]interface{}, bool) {
	switch list := raw.(type) {
	case []interface{}:
		return append([]interface{}(nil), list...), true
	case []CanvasElement:
		out := make([]interface{}, 0, len(list))
		for _, e := range list {
			out = append(out, map[string]interface{}(e))
		}
		return out, true
	case []map[string]interface{}:
		out := make([]interface{}, 0, len(list))
		for _, m := range list {
			out = append(out, m)
		}
		return out, true
	}
	return nil, false
}

// rewriteCanvas passes each object element through fn, which returns the
// element to keep or false to drop it. Items that are not objects stay in
// place untouched. The list is written back in the shape a JSON decoder
// produces.
func rewriteCanvas(extra map[string]interface{}, fn func(CanvasElement) (CanvasElement, bool)) {
	items, ok := canvasItems(extra[CanvasElementsKey])
	if !ok {
		return
	}

	out := make([]interface{}, 0, len(items))
	for _, item := range items {
		var e CanvasElement
		switch m := item.(type) {
		case map[string]interface{}:
			e = CanvasElement(m)
		case CanvasElement:
			e = m
		default:
			out = append(out, item)
			continue
		}
		if kept, keep := fn(e); keep {
			out = append(out, map[string]interface{}(kept))
		}
	}
	extra[CanvasElementsKey] = out
}

// appendCanvasElement adds e after the existing items
func appendCanvasElement(extra map[string]interface{}, e CanvasElement) {
	items, _ := canvasItems(extra[CanvasElementsKey])
	extra[CanvasElementsKey] = append(items, map[string]interface{}(e))
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case CanvasElement:
		return map[string]interface{}(deepCopyMap(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case []CanvasElement:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = deepCopyMap(item)
		}
		return out
	default:
		return v
	}
}

// CloneData returns a deep copy of an open data map, never nil
func CloneData(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return make(map[string]interface{})
	}
	return deepCopyMap(m)
}
