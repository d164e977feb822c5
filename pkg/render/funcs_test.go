package render

import (
	"strings"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	seven := 7
	tests := []struct {
		in   any
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234567, "1,234,567"},
		{int64(50000), "50,000"},
		{&seven, "7"},
		{(*int)(nil), Missing},
		{nil, Missing},
		{"12", Missing},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text string
		max  int
		want string
	}{
		{"", 10, Missing},
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long title", 10, "this is..."},
		{"ñandú ñandú ñandú", 8, "ñandú..."},
	}

	for _, tt := range tests {
		if got := Truncate(tt.text, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
		}
	}
}

func TestSummarySanitizes(t *testing.T) {
	got := string(Summary(`<p>Harry <b>returns</b></p><script>alert(1)</script>`))
	if strings.Contains(got, "<script>") {
		t.Fatalf("script tag survived sanitizing: %q", got)
	}
	if !strings.Contains(got, "<b>returns</b>") {
		t.Fatalf("expected safe markup to be kept, got %q", got)
	}
}

func TestSummaryPlainText(t *testing.T) {
	got := string(Summary("line one & more\nline two"))
	want := "line one &amp; more<br>line two"
	if got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}

	if got := string(Summary("  ")); got != Missing {
		t.Fatalf("Summary(blank) = %q, want %q", got, Missing)
	}
}

func TestTitle(t *testing.T) {
	if got := Title("complete story"); got != "Complete Story" {
		t.Fatalf("Title() = %q", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
