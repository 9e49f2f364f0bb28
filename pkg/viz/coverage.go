package viz

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/norasector/nrfjam/pkg/engine"
)

// CoveragePlotter draws channel register writes per channel as a bar chart.
type CoveragePlotter struct {
	coverage    *engine.Coverage
	plotOptions []PlotOptions
}

func NewCoveragePlotter(c *engine.Coverage) *CoveragePlotter {
	return &CoveragePlotter{coverage: c}
}

func (cp *CoveragePlotter) AddPlotOption(opt PlotOptions) {
	cp.plotOptions = append(cp.plotOptions, opt)
}

// CoverageSummary is the mean and standard deviation of the write count over
// the channels that were visited at all.
type CoverageSummary struct {
	Visited int     `json:"visited"`
	Total   uint64  `json:"total"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
}

func Summarize(counts []uint64) CoverageSummary {
	var sum CoverageSummary
	visited := make([]float64, 0, len(counts))
	for _, n := range counts {
		if n == 0 {
			continue
		}
		visited = append(visited, float64(n))
		sum.Total += n
	}
	sum.Visited = len(visited)
	if len(visited) > 1 {
		sum.Mean, sum.StdDev = stat.MeanStdDev(visited, nil)
	} else if len(visited) == 1 {
		sum.Mean = visited[0]
	}
	return sum
}

// Render returns the chart as PNG bytes.
func (cp *CoveragePlotter) Render() ([]byte, error) {
	counts := cp.coverage.Snapshot()
	summary := Summarize(counts)

	p := plotWithDefaults()
	p.Title.Text = fmt.Sprintf("channel writes (visited %d, mean %.1f, stddev %.1f)",
		summary.Visited, summary.Mean, summary.StdDev)
	p.Y.Label.Text = "writes"
	p.X.Label.Text = "channel"

	for _, opt := range cp.plotOptions {
		opt(p)
	}

	values := make(plotter.Values, len(counts))
	for i, n := range counts {
		values[i] = float64(n)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(3))
	if err != nil {
		return nil, err
	}
	bars.Color = color.RGBA{R: 0x33, G: 0xcc, B: 0x66, A: 0xff}
	bars.LineStyle.Width = 0
	p.Add(plotter.NewGrid(), bars)
	p.NominalX(channelLabels(len(counts))...)

	w, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return nil, err
	}
	var imageData bytes.Buffer
	if _, err := w.WriteTo(&imageData); err != nil {
		return nil, err
	}
	return imageData.Bytes(), nil
}

// channelLabels labels every tenth channel so the axis stays readable.
func channelLabels(n int) []string {
	ret := make([]string, n)
	for i := 0; i < n; i += 10 {
		ret[i] = fmt.Sprint(i)
	}
	return ret
}
