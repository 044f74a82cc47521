package export

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary renders the per-resource export outcomes as a table for CLI
// output.
func Summary(results []Result) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Resource", "Records", "File", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Records", Align: text.AlignRight},
	})

	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		t.AppendRow(table.Row{res.Resource.Plural(), res.Count, res.Path, status})
	}

	return t.Render()
}
