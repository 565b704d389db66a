// Package printer contains text renderers for CLI command output.
package printer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/haven-ai/toolhostd/internal/cmd/output"
	"github.com/haven-ai/toolhostd/internal/config"
)

var _ output.Printer[config.ServerEntry] = (*ServerEntryPrinter)(nil)

// ServerEntryPrinter renders configured tool server entries as text.
type ServerEntryPrinter struct {
	headerFunc output.WriteFunc[config.ServerEntry]
	footerFunc output.WriteFunc[config.ServerEntry]
}

func (p *ServerEntryPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *ServerEntryPrinter) SetHeader(fn output.WriteFunc[config.ServerEntry]) {
	p.headerFunc = fn
}

func (p *ServerEntryPrinter) Item(w io.Writer, elem config.ServerEntry) error {
	command := elem.Command
	if len(elem.Args) > 0 {
		command = fmt.Sprintf("%s %s", elem.Command, strings.Join(elem.Args, " "))
	}

	_, _ = fmt.Fprintf(w, "✓ Server '%s'\n  command: %s\n", elem.Name, command)

	if elem.Shell {
		_, _ = fmt.Fprint(w, "  shell: true\n")
	}

	if len(elem.Env) > 0 {
		keys := make([]string, 0, len(elem.Env))
		for k := range elem.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		_, _ = fmt.Fprintf(w, "  env: %s\n", strings.Join(keys, ", "))
	}

	return nil
}

func (p *ServerEntryPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *ServerEntryPrinter) SetFooter(fn output.WriteFunc[config.ServerEntry]) {
	p.footerFunc = fn
}
