package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// theme defines the terminal colors.
type theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color
}

func defaultTheme() theme {
	return theme{
		Primary: lipgloss.Color("12"),  // Blue
		Success: lipgloss.Color("10"),  // Green
		Warning: lipgloss.Color("11"),  // Yellow
		Error:   lipgloss.Color("9"),   // Red
		Muted:   lipgloss.Color("240"), // Gray
	}
}

// printer writes styled command output.
type printer struct {
	w, errw io.Writer

	title, ok, warn, fail, muted, key lipgloss.Style
}

func newPrinter(w, errw io.Writer, color bool) *printer {
	p := &printer{w: w, errw: errw}
	if !color {
		plain := lipgloss.NewStyle()
		p.title, p.ok, p.warn, p.fail, p.muted, p.key = plain, plain, plain, plain, plain, plain
		return p
	}
	t := defaultTheme()
	p.title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	p.ok = lipgloss.NewStyle().Foreground(t.Success)
	p.warn = lipgloss.NewStyle().Foreground(t.Warning)
	p.fail = lipgloss.NewStyle().Foreground(t.Error)
	p.muted = lipgloss.NewStyle().Foreground(t.Muted)
	p.key = lipgloss.NewStyle().Bold(true)
	return p
}

func (p *printer) heading(text string) {
	fmt.Fprintf(p.w, "\n  %s\n\n", p.title.Render(text))
}

func (p *printer) success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.ok.Render("✓"), fmt.Sprintf(format, args...))
}

func (p *printer) info(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s\n", fmt.Sprintf(format, args...))
}

func (p *printer) warning(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.warn.Render("⚠"), fmt.Sprintf(format, args...))
}

func (p *printer) errorMsg(format string, args ...any) {
	fmt.Fprintf(p.errw, "%s %s\n", p.fail.Render("✗"), fmt.Sprintf(format, args...))
}

// fields prints aligned key/value pairs.
func (p *printer) fields(kv ...any) {
	width := 0
	for i := 0; i+1 < len(kv); i += 2 {
		width = max(width, len(fmt.Sprint(kv[i])))
	}
	for i := 0; i+1 < len(kv); i += 2 {
		k := fmt.Sprint(kv[i])
		fmt.Fprintf(p.w, "  %s%s  %v\n", p.key.Render(k+":"), strings.Repeat(" ", width-len(k)), kv[i+1])
	}
}

// line prints a line as is.
func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
