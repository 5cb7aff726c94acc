package transcript

// WordView is the uniform read-only view over a backend's word object.
type WordView interface {
	Start() float64
	End() float64
	Text() string
}

// SegmentView is the uniform view over a backend's segment object.
type SegmentView interface {
	WordView
	Words() []WordView
}

// RawResult is the uniform view over a backend's native result. Normalize
// only ever talks to these interfaces; each backend ships one adapter.
type RawResult interface {
	Text() string
	Segments() []SegmentView
	Language() string
	LanguageProbability() float64
}

// WordOf returns an attribute-style view when v already implements
// WordView, a mapping view when v is a map, and an empty word otherwise.
func WordOf(v any) WordView {
	switch w := v.(type) {
	case WordView:
		return w
	case map[string]any:
		return mappingWord(w)
	}
	return emptyWord{}
}

// SegmentOf is the segment counterpart of WordOf.
func SegmentOf(v any) SegmentView {
	switch s := v.(type) {
	case SegmentView:
		return s
	case map[string]any:
		return mappingSegment(s)
	}
	return emptySegment{}
}

type emptyWord struct{}

func (emptyWord) Start() float64 { return 0 }
func (emptyWord) End() float64   { return 0 }
func (emptyWord) Text() string   { return "" }

type emptySegment struct{ emptyWord }

func (emptySegment) Words() []WordView { return nil }
