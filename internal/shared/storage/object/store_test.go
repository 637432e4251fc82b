package object

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestNewKeyNamespacesByOwner(t *testing.T) {
	a, err := NewKey("guest:abc", "My CV.pdf")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	b, err := NewKey("guest:abc", "My CV.pdf")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	if a == b {
		t.Fatalf("keys for separate uploads must differ")
	}
	prefix := "resumes/" + OwnerDir("guest:abc") + "/"
	if !strings.HasPrefix(a, prefix) || !strings.HasSuffix(a, "_My CV.pdf") {
		t.Fatalf("unexpected key %q", a)
	}
	if strings.Contains(a, "guest:abc") {
		t.Fatalf("raw user id leaked into key %q", a)
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got, err := SanitizeFileName(" a/b\\c.docx "); err != nil || got != "a_b_c.docx" {
		t.Fatalf("got %q, %v", got, err)
	}
	for _, bad := range []string{"", "  ", "../etc/passwd", "x..y"} {
		if _, err := SanitizeFileName(bad); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("%q: expected ErrInvalidName, got %v", bad, err)
		}
	}
}

func TestSniffKeepsStream(t *testing.T) {
	body := "%PDF-1.4 " + strings.Repeat("x", 1000)
	mime, r, err := Sniff(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if mime != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", mime)
	}
	got, _ := io.ReadAll(r)
	if string(got) != body {
		t.Fatalf("stream truncated: %d of %d bytes", len(got), len(body))
	}
}
