package transcript

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatSRTSingleSegment(t *testing.T) {
	r := Result{Segments: []Segment{{Start: 1.5, End: 3.25, Text: "hi"}}}

	got, err := Format(r, KindSRT)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	want := "1\n00:00:01,500 --> 00:00:03,250\nhi\n\n"
	if got != want {
		t.Errorf("Format(srt) = %q, want %q", got, want)
	}
}

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{59.9999, "00:00:59,999"},
		{61.25, "00:01:01,250"},
		{3600, "01:00:00,000"},
		{3725.125, "01:02:05,125"},
		{-2, "00:00:00,000"},
	}

	for _, tt := range tests {
		if got := FormatSRTTime(tt.seconds); got != tt.want {
			t.Errorf("FormatSRTTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatSRTNumbering(t *testing.T) {
	r := Result{Segments: []Segment{
		{Start: 0, End: 1, Text: " first "},
		{Start: 1, End: 2, Text: "second"},
	}}

	got := FormatSRT(r)
	entries := strings.Split(strings.TrimSuffix(got, "\n\n"), "\n\n")
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2:\n%s", len(entries), got)
	}
	if !strings.HasPrefix(entries[0], "1\n") || !strings.HasPrefix(entries[1], "2\n") {
		t.Errorf("entries should be numbered from 1:\n%s", got)
	}
	if !strings.HasSuffix(entries[0], "\nfirst") {
		t.Errorf("entry text should be trimmed: %q", entries[0])
	}
}

func TestFormatJSONRoundTrip(t *testing.T) {
	r := Result{Segments: []Segment{
		{Start: 0, End: 1.25, Text: "héllo \"wörld\" <tag>", Words: []Word{
			{Start: 0, End: 0.5, Text: " héllo"},
			{Start: 0.5, End: 1.25, Text: " wörld"},
		}},
		{Start: 1.25, End: 2, Text: "日本語", Words: []Word{{Start: 1.25, End: 2, Text: "日本語"}}},
	}}

	out, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	var back []Segment
	if err := json.Unmarshal([]byte(out), &back); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if len(back) != len(r.Segments) {
		t.Fatalf("got %d segments back, want %d", len(back), len(r.Segments))
	}
	for i := range back {
		a, b := back[i], r.Segments[i]
		if a.Start != b.Start || a.End != b.End || a.Text != b.Text || len(a.Words) != len(b.Words) {
			t.Errorf("segment %d: got %+v, want %+v", i, a, b)
			continue
		}
		for j := range a.Words {
			if a.Words[j] != b.Words[j] {
				t.Errorf("segment %d word %d: got %+v, want %+v", i, j, a.Words[j], b.Words[j])
			}
		}
	}

	if !strings.Contains(out, "日本語") || !strings.Contains(out, "<tag>") {
		t.Errorf("non-ASCII and HTML characters should not be escaped:\n%s", out)
	}
	if !strings.Contains(out, "\n  {\n    \"start\"") {
		t.Errorf("expected 2-space indentation:\n%s", out)
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("output should not end with a newline")
	}
}

func TestFormatJSONFieldOrderAndOptionalWords(t *testing.T) {
	r := Result{Segments: []Segment{{Start: 0, End: 1, Text: "a", Words: []Word{}}}}

	out, err := FormatJSON(r)
	if err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}
	want := "[\n  {\n    \"start\": 0,\n    \"end\": 1,\n    \"text\": \"a\"\n  }\n]"
	if out != want {
		t.Errorf("FormatJSON() = %q, want %q", out, want)
	}

	empty, _ := FormatJSON(Result{})
	if empty != "[]" {
		t.Errorf("empty result should render [], got %q", empty)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"json", KindJSON, false},
		{"SRT", KindSRT, false},
		{" text ", KindText, false},
		{"", KindText, false},
		{"vtt", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatText(t *testing.T) {
	got, err := Format(Result{Text: "plain"}, KindText)
	if err != nil || got != "plain" {
		t.Errorf("Format(text) = %q, %v", got, err)
	}
	if _, err := Format(Result{}, Kind("xml")); err == nil {
		t.Error("Format(xml) should fail")
	}
}
