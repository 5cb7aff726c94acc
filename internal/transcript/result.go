// Package transcript holds the canonical transcription result, the adapters
// that normalize backend output into it, and its JSON/SRT renderings.
package transcript

// Word is a single timed word.
type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"word"`
}

// Segment is a timed span of transcribed text. Start <= End always holds
// after normalization.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Result is the canonical transcription result every backend is normalized to.
// It is created per request and never cached.
type Result struct {
	Text                string
	Segments            []Segment
	Language            string
	LanguageProbability float64
}

// DetectedLanguage returns the language or "unknown" when the backend did not
// report one.
func (r Result) DetectedLanguage() string {
	if r.Language == "" {
		return "unknown"
	}
	return r.Language
}
