package notify

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// Template renders the lead-magnet email body from a Liquid source.
// Parsing happens once; Render is safe for concurrent use.
type Template struct {
	engine *liquid.Engine
	once   sync.Once
	path   string
	tpl    *liquid.Template
	err    error
}

// NewTemplate creates a template backed by the Liquid file at path. The
// file is parsed lazily on first render so the server can boot even while
// templates are being deployed.
func NewTemplate(path string) *Template {
	return &Template{engine: liquid.NewEngine(), path: path}
}

// Bindings are the variables exposed to the email template.
type Bindings struct {
	Email       string
	FromName    string
	DocumentURL string
}

// Render produces the HTML body for one recipient.
func (t *Template) Render(b Bindings) (string, error) {
	t.once.Do(func() {
		src, err := os.ReadFile(t.path)
		if err != nil {
			t.err = fmt.Errorf("read template %s: %w", t.path, err)
			return
		}
		tpl, err := t.engine.ParseTemplate(src)
		if err != nil {
			t.err = fmt.Errorf("parse template %s: %w", t.path, err)
			return
		}
		t.tpl = tpl
	})
	if t.err != nil {
		return "", t.err
	}

	out, err := t.tpl.RenderString(map[string]any{
		"email":        b.Email,
		"from_name":    b.FromName,
		"document_url": b.DocumentURL,
	})
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// PlainText derives a crude text alternative from the rendered HTML so the
// message carries a text part for clients that want one.
func PlainText(html string) string {
	replacer := strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n")
	s := replacer.Replace(html)
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
