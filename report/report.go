// Package report renders an evaluation run as a standalone HTML page:
// the detection ROC over the threshold sweep plus the bootstrap
// summaries.
package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	sedeval "github.com/truongskyo/dcase20-task4"
	"github.com/truongskyo/dcase20-task4/score"
)

// Run collects everything one evaluation produced.
type Run struct {
	ID     string
	F1     sedeval.Result
	PSDS   sedeval.Result
	Points []score.OperatingPoint
}

// Render writes the run as an HTML page to path.
func Render(path string, run Run) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Sound Event Detection Evaluation",
			Width:     "900px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Detection ROC (threshold sweep)",
			Subtitle: fmt.Sprintf("run %s | F1 %s | PSDS %s",
				run.ID, run.F1, run.PSDS),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "eFPR (events/hour)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "TPR", Min: 0, Max: 1}),
	)

	data := make([]opts.LineData, 0, len(run.Points))
	for _, pt := range run.Points {
		data = append(data, opts.LineData{
			Value: []interface{}{pt.EFPR, pt.TPR},
			Name:  fmt.Sprintf("threshold %.3f", pt.Threshold),
		})
	}
	line.AddSeries("operating points", data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := line.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}
