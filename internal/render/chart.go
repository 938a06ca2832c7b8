// Package render draws a detection result as a self-contained HTML page: a
// candlestick chart with pivot markers stacked over the oscillator line.
package render

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"stockscreen/internal/analysis/pivot"
	"stockscreen/internal/market"
)

// ChartInput is everything one chart page needs. Pivot positions refer to bar
// positions of the series, the same coordinates detection reports.
type ChartInput struct {
	Symbol          string
	Interval        string
	Series          *market.Series
	Indicator       []float64
	IndicatorName   string
	PricePivots     []pivot.Pivot
	IndicatorPivots []pivot.Pivot
	Title           string
}

// BuildPage assembles the chart page without rendering it.
func BuildPage(in ChartInput) (*components.Page, error) {
	if in.Series == nil || in.Series.Len() == 0 {
		return nil, fmt.Errorf("render: empty series")
	}
	if len(in.Indicator) != 0 && len(in.Indicator) != in.Series.Len() {
		return nil, fmt.Errorf("render: indicator length %d != series length %d", len(in.Indicator), in.Series.Len())
	}
	if in.IndicatorName == "" {
		in.IndicatorName = "RSI"
	}

	labels := axisLabels(in.Series)

	kline := charts.NewKLine()
	title := in.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", in.Symbol, in.Interval)
	}
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	klineData := make([]opts.KlineData, in.Series.Len())
	for i := 0; i < in.Series.Len(); i++ {
		c := in.Series.Candle(i)
		open, high, low := c.Open, c.High, c.Low
		if !market.IsFinite(open) {
			open = c.Close
		}
		if !market.IsFinite(high) {
			high = c.Close
		}
		if !market.IsFinite(low) {
			low = c.Close
		}
		klineData[i] = opts.KlineData{Value: [4]float64{open, c.Close, low, high}}
	}
	kline.SetXAxis(labels).AddSeries("price", klineData)

	if len(in.PricePivots) > 0 {
		scatter := charts.NewScatter()
		scatter.SetXAxis(labels).AddSeries("pivots", pivotSeries(in.Series, in.PricePivots))
		kline.Overlap(scatter)
	}

	page := components.NewPage()
	page.AddCharts(kline)

	if len(in.Indicator) > 0 {
		line := charts.NewLine()
		line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: in.IndicatorName}))
		lineData := make([]opts.LineData, len(in.Indicator))
		for i, v := range in.Indicator {
			if market.IsFinite(v) {
				lineData[i] = opts.LineData{Value: v}
			} else {
				lineData[i] = opts.LineData{Value: "-"}
			}
		}
		line.SetXAxis(labels).AddSeries(in.IndicatorName, lineData)
		if len(in.IndicatorPivots) > 0 {
			scatter := charts.NewScatter()
			scatter.SetXAxis(labels).AddSeries("pivots", indicatorPivotSeries(in.Series, in.IndicatorPivots))
			line.Overlap(scatter)
		}
		page.AddCharts(line)
	}
	return page, nil
}

// WriteHTML renders the page to w.
func WriteHTML(in ChartInput, w io.Writer) error {
	page, err := BuildPage(in)
	if err != nil {
		return err
	}
	return page.Render(w)
}

// WriteHTMLFile renders the page to a file.
func WriteHTMLFile(in ChartInput, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteHTML(in, f)
}

func axisLabels(s *market.Series) []string {
	labels := make([]string, s.Len())
	for i := range labels {
		c := s.Candle(i)
		if c.OpenTime > 0 {
			labels[i] = time.UnixMilli(c.OpenTime).UTC().Format("2006-01-02 15:04")
		} else {
			labels[i] = fmt.Sprintf("%d", s.Position(i))
		}
	}
	return labels
}

// pivotSeries marks pivot bars with their price value; every other bar is an
// echarts gap.
func pivotSeries(s *market.Series, pivots []pivot.Pivot) []opts.ScatterData {
	data := make([]opts.ScatterData, s.Len())
	for i := range data {
		data[i] = opts.ScatterData{Value: "-"}
	}
	for _, p := range pivots {
		if off, ok := s.Locate(p.Pos); ok {
			data[off] = opts.ScatterData{Value: p.Value, SymbolSize: 12}
		}
	}
	return data
}

func indicatorPivotSeries(s *market.Series, pivots []pivot.Pivot) []opts.ScatterData {
	return pivotSeries(s, pivots)
}
