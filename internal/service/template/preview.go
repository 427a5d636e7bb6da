package template

import (
	"fmt"

	"github.com/osteele/liquid"
)

// Previewer renders template content with sample bindings so editors can
// see what a recipient would receive before a campaign goes out. It uses
// full Liquid syntax; the dispatch path deliberately does not, so a
// preview that exercises Liquid features beyond {{name}} renders here
// but passes through delivery verbatim.
type Previewer struct {
	engine *liquid.Engine
}

// NewPreviewer creates a preview renderer.
func NewPreviewer() *Previewer {
	e := liquid.NewEngine()
	e.RegisterFilter("default", func(value, fallback interface{}) interface{} {
		if value == nil || value == "" {
			return fallback
		}
		return value
	})
	return &Previewer{engine: e}
}

// Render renders subject and content against the given bindings.
func (p *Previewer) Render(t CreateInput, bindings map[string]interface{}) (subject, content string, err error) {
	subject, err = p.engine.ParseAndRenderString(t.Subject, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render subject: %w", err)
	}
	content, err = p.engine.ParseAndRenderString(t.Content, bindings)
	if err != nil {
		return "", "", fmt.Errorf("render content: %w", err)
	}
	return subject, content, nil
}
