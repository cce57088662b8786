package models

import (
	"maps"
	"slices"
	"time"
)

// Location points at the stored bytes of one rendered format.
type Location struct {
	Key         string `json:"key"`
	SizeBytes   int64  `json:"sizeBytes"`
	ContentType string `json:"contentType"`
	Extension   string `json:"extension"`
}

// Artifact is the registry's record of one generation. Only formats whose
// bytes were rendered and stored appear in Formats.
type Artifact struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	CreatedAt   time.Time           `json:"createdAt"`
	Formats     map[Format]Location `json:"formats"`
	Preview     string              `json:"-"`
	Metadata    map[string]any      `json:"metadata"`
	AccessCount int64               `json:"accessCount"`
}

// Clone returns a copy that shares no maps or metadata slices with the
// receiver.
func (a Artifact) Clone() Artifact {
	out := a
	out.Formats = maps.Clone(a.Formats)
	if out.Formats == nil {
		out.Formats = map[Format]Location{}
	}
	out.Metadata = CloneMetadata(a.Metadata)
	return out
}

// CloneMetadata copies m, including the slice and map values it holds, so
// the result can be mutated freely.
func CloneMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t)
	case []Format:
		return slices.Clone(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		return CloneMetadata(t)
	default:
		return v
	}
}

// HasFormat reports whether the artifact still holds bytes for f.
func (a Artifact) HasFormat(f Format) bool {
	_, ok := a.Formats[f]
	return ok
}
