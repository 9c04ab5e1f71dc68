// Package charts renders model and usage charts as PNG files and finds the
// ones already on disk. Year charts live under <graphs>/<Label>/<year>/ with
// the file names each utility profile defines.
package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/utility"
)

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// Renderer writes chart images under a graphs directory
type Renderer struct {
	graphsDir string
	logger    *logging.Logger
}

// NewRenderer creates a renderer rooted at graphsDir
func NewRenderer(graphsDir string, logger *logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Renderer{
		graphsDir: graphsDir,
		logger:    logger.WithComponent("charts"),
	}
}

// UtilityDir returns the chart directory of a utility
func (r *Renderer) UtilityDir(p utility.Profile) string {
	return filepath.Join(r.graphsDir, p.Label)
}

// YearDir returns the chart directory of one year
func (r *Renderer) YearDir(p utility.Profile, year int) string {
	return filepath.Join(r.UtilityDir(p), strconv.Itoa(year))
}

// RenderYear draws actual against predicted values for one fitted year: an
// annual chart plus one chart per month that has data. Returns the written paths.
func (r *Renderer) RenderYear(p utility.Profile, target forecast.Target, ym forecast.YearModel) ([]string, error) {
	dir := r.YearDir(p, ym.Year)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating chart directory: %w", err)
	}

	ylabel := fmt.Sprintf("%s (%s)", target, target.Unit(p))
	data := ym.Data

	var written []string
	annual := filepath.Join(dir, p.Charts.Annual)
	title := fmt.Sprintf("%s %s %d (R² %.3f)", p.Label, target, ym.Year, ym.Score.R2)
	if err := savePlot(annual, title, ylabel, "Jan", data.Dates, data.Y, ym.Predicted); err != nil {
		return nil, fmt.Errorf("rendering annual chart: %w", err)
	}
	written = append(written, annual)

	for month := time.January; month <= time.December; month++ {
		var dates []time.Time
		var actual, predicted []float64
		for i, d := range data.Dates {
			if d.Month() == month {
				dates = append(dates, d)
				actual = append(actual, data.Y[i])
				predicted = append(predicted, ym.Predicted[i])
			}
		}
		if len(dates) == 0 {
			continue
		}

		path := filepath.Join(dir, p.Charts.Month(int(month)))
		title := fmt.Sprintf("%s %s %s %d", p.Label, target, month, ym.Year)
		if err := savePlot(path, title, ylabel, "Jan 2", dates, actual, predicted); err != nil {
			return written, fmt.Errorf("rendering %s chart: %w", month, err)
		}
		written = append(written, path)
	}

	r.logger.Debug("Rendered year charts", "utility", p.Kind, "year", ym.Year, "files", len(written))
	return written, nil
}

func savePlot(path, title, ylabel, tickFormat string, dates []time.Time, actual, predicted []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: tickFormat}
	p.Legend.Top = true

	actualXY := make(plotter.XYs, len(dates))
	predictedXY := make(plotter.XYs, len(dates))
	for i, d := range dates {
		x := float64(d.Unix())
		actualXY[i] = plotter.XY{X: x, Y: actual[i]}
		predictedXY[i] = plotter.XY{X: x, Y: predicted[i]}
	}

	actualLine, actualPoints, err := plotter.NewLinePoints(actualXY)
	if err != nil {
		return err
	}
	actualLine.Color = plotutil.Color(0)
	actualPoints.GlyphStyle.Color = plotutil.Color(0)
	actualPoints.GlyphStyle.Radius = vg.Points(2)

	predictedLine, err := plotter.NewLine(predictedXY)
	if err != nil {
		return err
	}
	predictedLine.Color = plotutil.Color(1)
	predictedLine.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}

	p.Add(plotter.NewGrid(), actualLine, actualPoints, predictedLine)
	p.Legend.Add("Actual", actualLine, actualPoints)
	p.Legend.Add("Predicted", predictedLine)

	return p.Save(chartWidth, chartHeight, path)
}
