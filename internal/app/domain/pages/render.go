// Package pages holds the portal's templ components.
package pages

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

// htmlWriter collects the first write error so components read top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) rawf(format string, args ...any) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(ctx context.Context, c templ.Component) {
	if hw.err != nil || c == nil {
		return
	}
	hw.err = c.Render(ctx, hw.w)
}

func attr(s string) string {
	return templ.EscapeString(s)
}

func component(fn func(ctx context.Context, hw *htmlWriter)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		fn(ctx, hw)
		return hw.err
	})
}

// RoleLabel is the human name of a role, e.g. "Customer".
func RoleLabel(r models.Role) string {
	if r == models.RoleNone {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(string(r)))
}
