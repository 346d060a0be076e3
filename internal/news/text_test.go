package news

import "testing"

func TestCleanHTMLToText(t *testing.T) {
	input := `<p>Hello &amp; welcome</p><script>evil()</script><div>World</div>`
	got := cleanHTMLToText(input)
	want := "Hello & welcome World"
	if got != want {
		t.Fatalf("cleanHTMLToText() = %q, want %q", got, want)
	}
}

func TestCleanHTMLToTextCollapsesNewlines(t *testing.T) {
	input := "line one\n\n\n\nline two"
	got := cleanHTMLToText(input)
	want := "line one\n\nline two"
	if got != want {
		t.Fatalf("cleanHTMLToText() = %q, want %q", got, want)
	}
}

func TestCleanHTMLToTextEmpty(t *testing.T) {
	if got := cleanHTMLToText(""); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	got := truncateText("abcdefgh", 5)
	want := "abcde..."
	if got != want {
		t.Fatalf("truncateText() = %q, want %q", got, want)
	}
}

func TestTruncateTextNoTruncationNeeded(t *testing.T) {
	got := truncateText("short", 50)
	if got != "short" {
		t.Fatalf("truncateText() = %q, want %q", got, "short")
	}
}
