package cli

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func yesNo(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
