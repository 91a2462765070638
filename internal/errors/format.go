package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string    { return color(colorRed, text) }
func yellow(text string) string { return color(colorYellow, text) }
func cyan(text string) string   { return color(colorCyan, text) }
func white(text string) string  { return color(colorWhite, text) }
func gray(text string) string   { return color(colorGray, text) }
func bold(text string) string   { return color(colorBold, text) }

// Format returns a multi-line error message for terminal display.
func (e *BridgeError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	label := "ERROR "
	if !e.Fatal {
		label = "WARN "
	}
	if e.Fatal {
		b.WriteString(red(bold(label)))
	} else {
		b.WriteString(yellow(bold(label)))
	}
	if e.Code != "" {
		b.WriteString(white(bold(e.Code + ": ")))
	}
	b.WriteString(white(e.Message))
	b.WriteString("\n")
	if e.Category != "" {
		b.WriteString("  ")
		b.WriteString(gray("[" + string(e.Category) + "]"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		b.WriteString("  ")
		b.WriteString(gray("Cause: "))
		b.WriteString(e.Wrapped.Error())
		b.WriteString("\n\n")
	}

	if e.Suggestion != "" {
		b.WriteString("  ")
		b.WriteString(cyan("Hint: "))
		b.WriteString(e.Suggestion)
		b.WriteString("\n\n")
	}

	return b.String()
}

// FormatCompact returns a compact single-line error format.
func (e *BridgeError) FormatCompact() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Detail != "" && e.Detail != registry[e.Code].Detail {
		b.WriteString(" (")
		b.WriteString(e.Detail)
		b.WriteString(")")
	}
	return b.String()
}

type jsonError struct {
	Code       string   `json:"code,omitempty"`
	Category   Category `json:"category,omitempty"`
	Message    string   `json:"message"`
	Detail     string   `json:"detail,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
	Fatal      bool     `json:"fatal,omitempty"`
	Cause      string   `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *BridgeError) FormatJSON() string {
	je := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		Fatal:      e.Fatal,
	}
	if e.Wrapped != nil {
		je.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(je)
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

// Style selects how WriteError renders an error.
type Style int

const (
	// StyleText is the multi-line terminal format.
	StyleText Style = iota
	// StyleCompact is one line per error.
	StyleCompact
	// StyleJSON is one JSON object per line.
	StyleJSON
)

// WriteError writes err to w in the given style. Errors that are not
// BridgeErrors are written with their message only.
func WriteError(w io.Writer, err error, style Style) {
	be, ok := err.(*BridgeError)
	switch style {
	case StyleJSON:
		if !ok {
			data, _ := json.Marshal(jsonError{Message: err.Error()})
			fmt.Fprintf(w, "%s\n", data)
			return
		}
		fmt.Fprintf(w, "%s\n", be.FormatJSON())
	case StyleCompact:
		if !ok {
			fmt.Fprintf(w, "error: %s\n", err)
			return
		}
		fmt.Fprintf(w, "error: %s\n", be.FormatCompact())
	default:
		if !ok {
			fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
			return
		}
		fmt.Fprint(w, be.Format())
	}
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	WriteError(os.Stderr, err, StyleText)
}
