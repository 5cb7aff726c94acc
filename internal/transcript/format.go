package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Kind selects an output rendering.
type Kind string

const (
	KindText Kind = "text"
	KindJSON Kind = "json"
	KindSRT  Kind = "srt"
)

// ParseKind maps a user-supplied format name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindJSON, KindSRT:
		return k, nil
	case "":
		return KindText, nil
	}
	return "", fmt.Errorf("unsupported output format: %s (must be text, json or srt)", s)
}

// Format renders r in the requested kind.
func Format(r Result, kind Kind) (string, error) {
	switch kind {
	case KindJSON:
		return FormatJSON(r)
	case KindSRT:
		return FormatSRT(r), nil
	case KindText, "":
		return r.Text, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", kind)
}

// FormatJSON renders the segment list with 2-space indentation and
// non-ASCII text left unescaped.
func FormatJSON(r Result) (string, error) {
	segments := r.Segments
	if segments == nil {
		segments = []Segment{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(segments); err != nil {
		return "", fmt.Errorf("encode segments: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// FormatSRT renders one numbered subtitle entry per segment.
func FormatSRT(r Result) string {
	var b strings.Builder
	for i, seg := range r.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatSRTTime(seg.Start), FormatSRTTime(seg.End), strings.TrimSpace(seg.Text))
	}
	return b.String()
}

// FormatSRTTime formats seconds as HH:MM:SS,mmm. Milliseconds are truncated.
func FormatSRTTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	hours := int(math.Floor(seconds / 3600))
	minutes := int(math.Floor(math.Mod(seconds, 3600) / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	millis := int(math.Mod(seconds, 1) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
