package transcript

import "encoding/json"

// MappingResult adapts a dict-shaped result (the MLX backend) decoded from JSON.
// Missing or mistyped keys read as zero values.
type MappingResult map[string]any

func (m MappingResult) Text() string { return stringKey(m, "text") }

func (m MappingResult) Language() string { return stringKey(m, "language") }

func (m MappingResult) LanguageProbability() float64 {
	return floatKey(m, "language_probability")
}

func (m MappingResult) Segments() []SegmentView {
	items, _ := m["segments"].([]any)
	out := make([]SegmentView, 0, len(items))
	for _, item := range items {
		out = append(out, SegmentOf(item))
	}
	return out
}

type mappingSegment map[string]any

func (s mappingSegment) Start() float64 { return floatKey(s, "start") }
func (s mappingSegment) End() float64   { return floatKey(s, "end") }
func (s mappingSegment) Text() string   { return stringKey(s, "text") }

func (s mappingSegment) Words() []WordView {
	items, _ := s["words"].([]any)
	out := make([]WordView, 0, len(items))
	for _, item := range items {
		out = append(out, WordOf(item))
	}
	return out
}

type mappingWord map[string]any

func (w mappingWord) Start() float64 { return floatKey(w, "start") }
func (w mappingWord) End() float64   { return floatKey(w, "end") }

// MLX words carry "word"; some exporters use "text".
func (w mappingWord) Text() string {
	if v, ok := w["word"].(string); ok {
		return v
	}
	return stringKey(w, "text")
}

func stringKey(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func floatKey(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
