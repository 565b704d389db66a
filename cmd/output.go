package cmd

import (
	"fmt"
	"io"

	"github.com/haven-ai/toolhostd/internal/cmd"
	"github.com/haven-ai/toolhostd/internal/cmd/output"
	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/printer"
)

const outputIndentSpaces = 2

// entryOutputHandler selects the output handler for server entry results based
// on the requested format.
func entryOutputHandler(format cmd.OutputFormat, w io.Writer) (output.Handler[config.ServerEntry], error) {
	switch format {
	case cmd.FormatJSON:
		return output.NewJSONHandler[config.ServerEntry](w, outputIndentSpaces), nil
	case cmd.FormatYAML:
		return output.NewYAMLHandler[config.ServerEntry](w, outputIndentSpaces), nil
	case cmd.FormatText:
		return output.NewTextHandler(w, &printer.ServerEntryPrinter{}), nil
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
}
