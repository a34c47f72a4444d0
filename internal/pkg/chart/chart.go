package chart

import (
	"encoding/json"
	"strings"

	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/go-echarts/go-echarts/v2/charts"
	echartsopts "github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultFontSize = 12
	xAxisLabelAngle = 30
	axisNameGap     = 32

	// color of the bars left out by the filter of their own chart
	unselectedColor = "lightgray"
)

// Series represents a named data series in a chart.
//
// Texts are printed on top of the bars, in the order of the data.
type Series struct {
	Name  string
	Data  []echartsopts.BarData
	Texts []string
}

// Chart represents a bar chart of the dashboard.
type Chart struct {
	options

	Series []Series
}

// NewChart creates a new chart.
func NewChart(opts ...Option) *Chart {
	return &Chart{
		options: optionsWithDefaults(opts),
	}
}

// AddBars adds the bars of a chart of the dashboard as a named series.
//
// Each bar carries its own color and tooltip. Bars left out by the filter of their chart are greyed out.
func (c *Chart) AddBars(name string, bars []dashboard.Bar) {
	data := make([]echartsopts.BarData, 0, len(bars))
	texts := make([]string, 0, len(bars))

	for _, bar := range bars {
		item := echartsopts.BarData{
			Name:  bar.Label,
			Value: bar.Value,
			Tooltip: &echartsopts.Tooltip{
				Show:      echartsopts.Bool(true),
				Formatter: types.FuncStr(strings.Join(bar.Tooltip, "<br/>")),
			},
		}

		switch {
		case !bar.Selected:
			item.ItemStyle = &echartsopts.ItemStyle{Color: unselectedColor}
		case bar.Color != "":
			item.ItemStyle = &echartsopts.ItemStyle{Color: bar.Color}
		}

		data = append(data, item)
		texts = append(texts, bar.Text)
	}

	c.Series = append(c.Series, Series{Name: name, Data: data, Texts: texts})
}

// Build creates the ECharts bar chart from the accumulated configuration.
func (c *Chart) Build() *charts.Bar {
	bar := charts.NewBar()

	// Title options
	titleOpts := echartsopts.Title{
		Title: c.Title,
	}
	if c.Subtitle != "" {
		titleOpts.Subtitle = c.Subtitle
		titleOpts.SubtitleStyle = &echartsopts.TextStyle{
			FontStyle: "italic",
			FontSize:  defaultFontSize,
		}
	}

	xAxisOpts, yAxisOpts := c.setAxes()

	// Grid options
	gridOpts := echartsopts.Grid{
		Bottom: "100",
		Top:    "100",
	}

	// Toolbox options
	toolboxOpts := echartsopts.Toolbox{
		Left: "right",
		Feature: &echartsopts.ToolBoxFeature{
			SaveAsImage: &echartsopts.ToolBoxFeatureSaveAsImage{
				Title: "Save as image",
			},
		},
	}

	globalOpts := []charts.GlobalOpts{
		charts.WithInitializationOpts(echartsopts.Initialization{
			Theme:  c.Theme,
			Width:  c.Width,
			Height: c.Height,
		}),
		charts.WithToolboxOpts(toolboxOpts),
		charts.WithTitleOpts(titleOpts),
		charts.WithLegendOpts(echartsopts.Legend{Show: echartsopts.Bool(false)}),
		charts.WithGridOpts(gridOpts),
		charts.WithXAxisOpts(xAxisOpts),
		charts.WithYAxisOpts(yAxisOpts),
		charts.WithTooltipOpts(echartsopts.Tooltip{
			Show:    echartsopts.Bool(true),
			Trigger: "item",
		}),
	}

	if c.Zoom {
		globalOpts = append(globalOpts, charts.WithDataZoomOpts(echartsopts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}))
	}

	bar.SetGlobalOptions(globalOpts...)

	// Set categories
	bar.SetXAxis(c.XAxisLabels)

	// Add all series
	for _, s := range c.Series {
		bar.AddSeries(s.Name, s.Data, charts.WithLabelOpts(echartsopts.Label{
			Show:      echartsopts.Bool(true),
			Position:  c.labelPosition(),
			Formatter: textFormatter(s.Texts),
		}))
	}

	if c.Horizontal {
		return bar.XYReversal()
	}

	return bar
}

func (c *Chart) labelPosition() string {
	if c.Horizontal {
		return "right"
	}

	return "top"
}

// valueFormatter formats the values of the value axis with the unit of the chart.
func (c *Chart) valueFormatter() types.FuncStr {
	suffix, _ := json.Marshal(" " + c.Unit)
	if c.Unit == "" {
		suffix = []byte(`""`)
	}

	if c.Ratio {
		return echartsopts.FuncOpts("function (value,index) { return (value * 100).toFixed(0).toString() + " + string(suffix) + ";}")
	}

	return echartsopts.FuncOpts("function (value,index) { return value.toFixed(0).toString() + " + string(suffix) + ";}")
}

// textFormatter prints the precomputed text of each bar.
func textFormatter(texts []string) types.FuncStr {
	literal, err := json.Marshal(texts)
	if err != nil {
		literal = []byte("[]")
	}

	return echartsopts.FuncOpts("function (params) { return " + string(literal) + "[params.dataIndex]; }")
}

func (c *Chart) setAxes() (echartsopts.XAxis, echartsopts.YAxis) {
	const (
		xType        = "category"
		yType        = "value"
		axisPosition = "bottom"
	)
	valueFormatter := c.valueFormatter()

	if !c.Horizontal {
		// X-axis options
		xAxisOpts := echartsopts.XAxis{
			Name:         c.XAxisLabel,
			Type:         xType,
			Position:     axisPosition,
			NameLocation: "center",
			NameGap:      axisNameGap,
			AxisTick: &echartsopts.AxisTick{
				AlignWithLabel: echartsopts.Bool(true),
			},
			AxisLabel: &echartsopts.AxisLabel{
				Rotate:       xAxisLabelAngle,
				ShowMinLabel: echartsopts.Bool(true),
				ShowMaxLabel: echartsopts.Bool(true),
				HideOverlap:  echartsopts.Bool(true),
			},
		}

		// Y-axis options
		yAxisOpts := echartsopts.YAxis{
			Name: c.YAxisLabel,
			Type: yType,
			AxisLabel: &echartsopts.AxisLabel{
				Formatter: valueFormatter,
			},
		}

		return xAxisOpts, yAxisOpts
	}

	// horizontal bar layout
	yAxisOpts := echartsopts.YAxis{
		Name:         c.XAxisLabel,
		Type:         xType,
		Position:     axisPosition,
		NameLocation: "end",
		AxisLabel: &echartsopts.AxisLabel{
			Interval:     "0",
			ShowMinLabel: echartsopts.Bool(true),
			ShowMaxLabel: echartsopts.Bool(true),
			HideOverlap:  echartsopts.Bool(false),
		},
	}

	xAxisOpts := echartsopts.XAxis{
		Name:         c.YAxisLabel,
		NameLocation: "center",
		NameGap:      axisNameGap,
		Type:         yType,
		AxisTick: &echartsopts.AxisTick{
			AlignWithLabel: echartsopts.Bool(true),
		},
		AxisLabel: &echartsopts.AxisLabel{
			Formatter: valueFormatter,
		},
	}

	return xAxisOpts, yAxisOpts
}
