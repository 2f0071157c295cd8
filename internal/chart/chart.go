// Package chart maps aggregated launch data onto ECharts figures.
package chart

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"launchdash/internal/aggregate"
)

// Element ids of the two charts on the dashboard.
const (
	PieID     = "success-pie-chart"
	ScatterID = "success-payload-scatter-chart"
)

// Axis names of the scatter chart.
const (
	PayloadAxis = "Payload Mass (kg)"
	OutcomeAxis = "Outcome"
)

// Figure is a go-echarts chart that can export its ECharts option.
type Figure interface {
	Validate()
	JSON() map[string]interface{}
}

// NewPie builds the pie figure.
func NewPie(d aggregate.PieData) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: PieID}),
		charts.WithTitleOpts(opts.Title{Title: d.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "item"}),
	)

	items := make([]opts.PieData, 0, len(d.Slices))
	for _, s := range d.Slices {
		items = append(items, opts.PieData{Name: s.Label, Value: s.Value})
	}
	pie.AddSeries("class", items)
	return pie
}

// NewScatter builds the scatter figure. Each booster version is its own
// series so the colour of a point encodes the booster. The y axis is a
// category axis over d.YLabels, so class 0 draws as "Failure" and class 1
// as "Success".
func NewScatter(d aggregate.ScatterData) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{ChartID: ScatterID}),
		charts.WithTitleOpts(opts.Title{Title: d.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "item"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: PayloadAxis,
			Type: "value",
		}),
		// No AxisLabel: its zero value serializes show=false and hides the
		// outcome names.
		charts.WithYAxisOpts(opts.YAxis{
			Name: OutcomeAxis,
			Type: "category",
			Data: d.YLabels,
		}),
	)

	byCategory := make(map[string][]opts.ScatterData, len(d.Categories))
	for _, p := range d.Points {
		byCategory[p.Category] = append(byCategory[p.Category], opts.ScatterData{
			Value: []interface{}{p.X, p.Y},
		})
	}
	for _, c := range d.Categories {
		sc.AddSeries(c, byCategory[c])
	}
	return sc
}

// Option returns the ECharts option of f as JSON, ready for setOption.
func Option(f Figure) (json.RawMessage, error) {
	f.Validate()
	b, err := json.Marshal(f.JSON())
	if err != nil {
		return nil, errors.Wrap(err, "marshal chart option")
	}
	return b, nil
}

// RenderPage writes a standalone HTML page holding both figures.
func RenderPage(w io.Writer, title string, pie *charts.Pie, scatter *charts.Scatter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(pie, scatter)
	return errors.Wrap(page.Render(w), "render page")
}
