// Package chart renders trend datasets as PNG line charts.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/mslinn/perftrend/pkg/trend"
)

// ErrNoData is returned for a dataset without points
var ErrNoData = errors.New("dataset has no data")

// Options sets the image size; zero values use 800x400
type Options struct {
	Width  int
	Height int
}

// Render draws every series of ds against its run labels and writes a PNG to w.
// Numeric labels are plotted in ascending order whatever order ds holds them in.
func Render(ds *trend.Dataset, w io.Writer, opts Options) error {
	if ds == nil || ds.Empty() {
		return ErrNoData
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}

	labels := orderLabels(ds.Labels())
	xOf := make(map[string]float64, len(labels))
	ticks := make([]chart.Tick, 0, len(labels)+1)
	for i, l := range labels {
		xOf[l] = float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: l})
	}

	maxR := float64(len(labels))
	if len(labels) == 1 {
		// go-chart needs a non-zero x range
		maxR = 2
		ticks = append(ticks, chart.Tick{Value: 2, Label: ""})
	}

	maxY := 0.0
	var series []chart.Series
	for i, name := range ds.Names() {
		points := ds.Series(name)
		sort.SliceStable(points, func(a, b int) bool { return xOf[points[a].Label] < xOf[points[b].Label] })

		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for j, p := range points {
			xs[j] = xOf[p.Label]
			ys[j] = p.Value
			if p.Value > maxY {
				maxY = p.Value
			}
		}
		if len(xs) == 1 {
			xs = append(xs, xs[0])
			ys = append(ys, ys[0])
		}

		color := chart.GetDefaultColor(i)
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: 2,
				StrokeColor: color,
				DotWidth:    3,
				DotColor:    color,
			},
		})
	}

	yMax := maxY * 1.1
	if ds.Unit == "%" {
		yMax = 100
	} else if yMax < 1 {
		yMax = 1
	}

	ch := chart.Chart{
		Title:      ds.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		XAxis: chart.XAxis{
			Name:  "Run",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: 0.5, Max: maxR + 0.5},
		},
		YAxis: chart.YAxis{
			Name:  ds.Unit,
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// orderLabels sorts labels numerically when all of them are run numbers
func orderLabels(labels []string) []string {
	nums := make([]int, len(labels))
	for i, l := range labels {
		n, err := strconv.Atoi(l)
		if err != nil {
			return labels
		}
		nums[i] = n
	}
	sort.Ints(nums)
	out := make([]string, len(nums))
	for i, n := range nums {
		out[i] = strconv.Itoa(n)
	}
	return out
}
