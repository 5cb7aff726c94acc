package transcript

import (
	"math"
	"strings"
)

// Normalize converts a backend result into the canonical Result. It never
// fails: missing fields degrade to zero values. Segment and word order is
// preserved, and Words is always a non-nil slice.
func Normalize(raw RawResult) Result {
	if raw == nil {
		return Result{Segments: []Segment{}}
	}

	views := raw.Segments()
	segments := make([]Segment, 0, len(views))
	texts := make([]string, 0, len(views))
	for _, sv := range views {
		seg := normalizeSegment(SegmentOf(sv))
		segments = append(segments, seg)
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}

	text := strings.TrimSpace(raw.Text())
	if text == "" {
		text = strings.Join(texts, " ")
	}

	return Result{
		Text:                text,
		Segments:            segments,
		Language:            strings.TrimSpace(raw.Language()),
		LanguageProbability: clampUnit(raw.LanguageProbability()),
	}
}

func normalizeSegment(sv SegmentView) Segment {
	start, end := span(sv.Start(), sv.End())
	wordViews := sv.Words()
	words := make([]Word, 0, len(wordViews))
	for _, wv := range wordViews {
		w := WordOf(wv)
		ws, we := span(w.Start(), w.End())
		words = append(words, Word{Start: ws, End: we, Text: w.Text()})
	}
	return Segment{
		Start: start,
		End:   end,
		Text:  strings.TrimSpace(sv.Text()),
		Words: words,
	}
}

// span sanitizes a time range so that 0 <= start <= end.
func span(start, end float64) (float64, float64) {
	start = finite(start)
	end = finite(end)
	if start < 0 {
		start = 0
	}
	if end < start {
		end = start
	}
	return start, end
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampUnit(v float64) float64 {
	v = finite(v)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
