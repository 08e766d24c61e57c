package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// emit writes v as indented JSON in json mode, or calls text otherwise.
func (a *App) emit(w io.Writer, v any, text func(w io.Writer) error) error {
	if a.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}

// emitLine is emit for results that read as a single line of text.
func (a *App) emitLine(w io.Writer, v any, format string, args ...any) error {
	return a.emit(w, v, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, format+"\n", args...)
		return err
	})
}
