package notify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemplate(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lead_magnet.html.liquid")
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func TestTemplate_RenderBindings(t *testing.T) {
	path := writeTemplate(t, `<p>Hi {{ email }}, grab <a href="{{ document_url }}">the guide</a>. — {{ from_name }}</p>`)
	tpl := NewTemplate(path)

	out, err := tpl.Render(Bindings{
		Email:       "user@example.com",
		FromName:    "10automations",
		DocumentURL: "https://cdn.example.com/guide.pdf",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"user@example.com", "https://cdn.example.com/guide.pdf", "10automations"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestTemplate_MissingFile(t *testing.T) {
	tpl := NewTemplate(filepath.Join(t.TempDir(), "nope.liquid"))
	if _, err := tpl.Render(Bindings{}); err == nil {
		t.Error("expected error for missing template file")
	}
}

func TestTemplate_ParseErrorSticksAcrossRenders(t *testing.T) {
	path := writeTemplate(t, `{% if %}broken`)
	tpl := NewTemplate(path)

	_, err1 := tpl.Render(Bindings{})
	_, err2 := tpl.Render(Bindings{})
	if err1 == nil || err2 == nil {
		t.Error("expected parse error on every render")
	}
}

func TestPlainText_StripsMarkup(t *testing.T) {
	got := PlainText(`<p>Hello <b>there</b></p><p>Second<br>line</p>`)
	if strings.Contains(got, "<") || strings.Contains(got, ">") {
		t.Errorf("tags survived: %q", got)
	}
	if !strings.Contains(got, "Hello there") || !strings.Contains(got, "Second\nline") {
		t.Errorf("unexpected text: %q", got)
	}
}
