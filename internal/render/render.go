// Package render prints identification records for the CLI.
package render

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/mattn/go-isatty"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// JSON writes the record as indented JSON.
func JSON(w io.Writer, record models.IdentificationRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

// Table writes the record as a human-friendly table.
func Table(w io.Writer, record models.IdentificationRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	if record.Failed() {
		t.AppendHeader(table.Row{"Error"})
		t.AppendRow(table.Row{text.FgRed.Sprint(record.Error)})
		t.Render()
		return
	}

	t.SetTitle("Plant Information")
	t.AppendRows([]table.Row{
		{"Common Name", record.CommonName},
		{"Scientific Name", text.Italic.Sprint(record.ScientificName)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Water", record.Care.Water},
		{"Sunlight", record.Care.Sunlight},
		{"Soil", record.Care.Soil},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Interesting Facts", record.Facts})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 72}})
	t.Render()
}
