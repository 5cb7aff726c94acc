package transcript

// AttrResult adapts an object-shaped result (the faster-whisper backend),
// whose fields the worker flattens one attribute at a time. Absent attributes
// decode to nil pointers and read as zero values.
type AttrResult struct {
	Content  *string       `json:"text"`
	Items    []AttrSegment `json:"segments"`
	Lang     *string       `json:"language"`
	LangProb *float64      `json:"language_probability"`
}

func (r *AttrResult) Text() string                 { return str(r.Content) }
func (r *AttrResult) Language() string             { return str(r.Lang) }
func (r *AttrResult) LanguageProbability() float64 { return num(r.LangProb) }

func (r *AttrResult) Segments() []SegmentView {
	out := make([]SegmentView, 0, len(r.Items))
	for i := range r.Items {
		out = append(out, &r.Items[i])
	}
	return out
}

// AttrSegment is one faster-whisper segment.
type AttrSegment struct {
	StartSec *float64   `json:"start"`
	EndSec   *float64   `json:"end"`
	Content  *string    `json:"text"`
	WordList []AttrWord `json:"words"`
}

func (s *AttrSegment) Start() float64 { return num(s.StartSec) }
func (s *AttrSegment) End() float64   { return num(s.EndSec) }
func (s *AttrSegment) Text() string   { return str(s.Content) }

func (s *AttrSegment) Words() []WordView {
	out := make([]WordView, 0, len(s.WordList))
	for i := range s.WordList {
		out = append(out, &s.WordList[i])
	}
	return out
}

// AttrWord is one faster-whisper word.
type AttrWord struct {
	StartSec *float64 `json:"start"`
	EndSec   *float64 `json:"end"`
	Content  *string  `json:"word"`
}

func (w *AttrWord) Start() float64 { return num(w.StartSec) }
func (w *AttrWord) End() float64   { return num(w.EndSec) }
func (w *AttrWord) Text() string   { return str(w.Content) }

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
