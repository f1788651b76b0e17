package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/agentcloak/mailproxy/types"
)

func TestSanitizerHTMLFallback(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "hi", "")
	m.HTMLBody = "<p>Hello <b>world</b></p><p>Second paragraph</p>"
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if v.Action != ActionPass {
		t.Fatalf("sanitizer must always pass, got %v", v.Action)
	}
	if v.Message.HTMLBody != "" {
		t.Errorf("HTMLBody not cleared: %q", v.Message.HTMLBody)
	}
	if !strings.Contains(v.Message.Body, "Hello world") {
		t.Errorf("body = %q, want it to contain %q", v.Message.Body, "Hello world")
	}
	if !strings.Contains(v.Message.Body, "Second paragraph") {
		t.Errorf("body missing second paragraph: %q", v.Message.Body)
	}
}

func TestSanitizerLinkCollapsing(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "hi", "")
	m.HTMLBody = `<p><a href="https://example.com">https://example.com</a></p>`
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if strings.Count(v.Message.Body, "https://example.com") != 1 {
		t.Errorf("href-equals-text link should collapse, got %q", v.Message.Body)
	}
}

func TestSanitizerLinkWithDifferentText(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "hi", "")
	m.HTMLBody = `<p><a href="https://example.com/x">click here</a></p>`
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if !strings.Contains(v.Message.Body, "click here") || !strings.Contains(v.Message.Body, "https://example.com/x") {
		t.Errorf("expected both link text and href, got %q", v.Message.Body)
	}
}

func TestSanitizerSkipsImgScriptStyle(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "hi", "")
	m.HTMLBody = `<style>body{color:red}</style><script>alert(1)</script><img src="x.png">Visible text`
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if strings.Contains(v.Message.Body, "alert") || strings.Contains(v.Message.Body, "color:red") {
		t.Errorf("script/style leaked into body: %q", v.Message.Body)
	}
	if !strings.Contains(v.Message.Body, "Visible text") {
		t.Errorf("visible text missing: %q", v.Message.Body)
	}
}

func TestSanitizerStripsInvisible(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "subject​", "hidden​text")
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if strings.ContainsRune(v.Message.Subject, '​') || strings.ContainsRune(v.Message.Body, '​') {
		t.Errorf("zero-width space not stripped: subject=%q body=%q", v.Message.Subject, v.Message.Body)
	}
}

func TestSanitizerPreservesPlainBody(t *testing.T) {
	s := NewSanitizer()
	m := msgWith("a@example.com", "hi", "plain text body, no html here")
	v := s.Process(context.Background(), m, types.DefaultFilterConfig())
	if v.Message.Body != "plain text body, no html here" {
		t.Errorf("plain body changed unexpectedly: %q", v.Message.Body)
	}
}
