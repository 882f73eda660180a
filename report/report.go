// Package report renders the run summary page.
package report

import (
	"io"
	"sort"

	"github.com/gmaffy/klp/ledger"
	"github.com/gmaffy/klp/reconcile"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// RenderSummary writes an HTML page with the per-project reconciliation
// counts and the number of failed samples per stage.
func RenderSummary(w io.Writer, results []reconcile.Result, failures []ledger.Row) error {
	page := components.NewPage()
	page.PageTitle = "Run summary"
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(reconcileChart(results), failureChart(failures))
	return page.Render(w)
}

func reconcileChart(results []reconcile.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Samples per project"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Samples"}),
	)

	projects := make([]string, len(results))
	var local, missing, registered []opts.BarData
	for i, r := range results {
		projects[i] = r.Project
		local = append(local, opts.BarData{Value: r.LocalSampleCount})
		missing = append(missing, opts.BarData{Value: len(r.SamplesNotInRegistry)})
		registered = append(registered, opts.BarData{Value: r.RegistrySampleCount})
	}
	bar.SetXAxis(projects).
		AddSeries("local", local).
		AddSeries("not in registry", missing).
		AddSeries("in registry", registered)
	return bar
}

func failureChart(failures []ledger.Row) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Failed samples per stage"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Samples"}),
	)

	counts := StageCounts(failures)
	stages := make([]string, 0, len(counts))
	for s := range counts {
		stages = append(stages, s)
	}
	sort.Strings(stages)

	data := make([]opts.BarData, len(stages))
	for i, s := range stages {
		data[i] = opts.BarData{Value: counts[s]}
	}
	bar.SetXAxis(stages).AddSeries("failed", data)
	return bar
}

// StageCounts returns the number of failed samples per stage.
func StageCounts(failures []ledger.Row) map[string]int {
	counts := make(map[string]int)
	for _, f := range failures {
		counts[f.FailedAt]++
	}
	return counts
}
