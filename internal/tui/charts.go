package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlab/perch/internal/model"
)

// asFloat normalizes chart cell values. JSON decoding yields float64;
// rows built in-process may carry int64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

func seriesStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)])
}

// renderGroupChart renders one field group. Line-family hints use a
// braille time series chart; bar uses grouped bars of the most recent
// rows.
func renderGroupChart(chart model.GroupChart, width, height int) string {
	if len(chart.Data) == 0 {
		return dimStyle.Render("no samples in window")
	}
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}

	series := chart.Legends
	if len(series) > 0 {
		series = series[1:]
	}

	var body string
	if chart.Type == model.HintBar {
		body = renderBars(chart, series, width, height)
	} else {
		body = renderTimeSeries(chart, series, width, height)
	}

	legend := make([]string, 0, len(series))
	for i, name := range series {
		legend = append(legend, seriesStyle(i).Render("■ "+name))
	}
	footer := strings.Join(legend, "  ")
	if latest := summarize(chart, series); latest != "" {
		footer += "  " + dimStyle.Render(latest)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func renderTimeSeries(chart model.GroupChart, series []string, width, height int) string {
	tslc := timeserieslinechart.New(width, height)

	// Stack hints draw cumulative values so each band sits on the
	// previous one.
	stacked := chart.Type == model.HintStack || chart.Type == model.HintFullStack

	for _, row := range chart.Data {
		if len(row) < 2 {
			continue
		}
		epoch, ok := asFloat(row[0])
		if !ok {
			continue
		}
		at := time.Unix(int64(epoch), 0)

		acc := 0.0
		for i, name := range series {
			if i+1 >= len(row) {
				break
			}
			v, ok := asFloat(row[i+1])
			if !ok {
				continue
			}
			if stacked {
				acc += v
				v = acc
			}
			tslc.PushDataSet(name, timeserieslinechart.TimePoint{Time: at, Value: v})
		}
	}

	for i, name := range series {
		tslc.SetDataSetStyle(name, seriesStyle(i))
	}

	tslc.DrawBrailleAll()
	return tslc.View()
}

func renderBars(chart model.GroupChart, series []string, width, height int) string {
	bc := barchart.New(width, height, barchart.WithBarGap(1))

	// One bar group per row, most recent rows only.
	maxGroups := width / (len(series) + 2)
	if maxGroups < 1 {
		maxGroups = 1
	}
	rows := chart.Data
	if len(rows) > maxGroups {
		rows = rows[len(rows)-maxGroups:]
	}

	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		epoch, _ := asFloat(row[0])
		label := time.Unix(int64(epoch), 0).Format("15:04")

		values := make([]barchart.BarValue, 0, len(series))
		for i, name := range series {
			if i+1 >= len(row) {
				break
			}
			v, ok := asFloat(row[i+1])
			if !ok {
				continue
			}
			values = append(values, barchart.BarValue{
				Name:  name,
				Value: v,
				Style: seriesStyle(i),
			})
		}
		if len(values) == 0 {
			continue
		}
		bc.Push(barchart.BarData{Label: label, Values: values})
	}

	bc.Draw()
	return bc.View()
}

// summarize renders the latest row as "name=value" pairs for narrow
// terminals.
func summarize(chart model.GroupChart, series []string) string {
	if len(chart.Data) == 0 {
		return ""
	}
	last := chart.Data[len(chart.Data)-1]
	parts := make([]string, 0, len(series))
	for i, name := range series {
		if i+1 >= len(last) {
			break
		}
		if v, ok := asFloat(last[i+1]); ok {
			parts = append(parts, fmt.Sprintf("%s=%g", name, v))
		}
	}
	return strings.Join(parts, " ")
}
