package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	gocharts "github.com/vicanso/go-charts/v2"

	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// OverviewFile is the name of the all-time chart in a utility's chart directory
const OverviewFile = "overview.png"

// RenderOverview draws monthly totals of every target across the global dataset
func (r *Renderer) RenderOverview(p utility.Profile, records []models.Record) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no %s records to chart", p.Kind)
	}

	targets := forecast.Targets(p)
	totals := make(map[time.Time][]float64)
	for _, rec := range records {
		month := time.Date(rec.Date.Year(), rec.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		sums, ok := totals[month]
		if !ok {
			sums = make([]float64, len(targets))
			totals[month] = sums
		}
		for i, t := range targets {
			sums[i] += rec.Sum(t.Columns(p)...)
		}
	}

	months := make([]time.Time, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	labels := make([]string, len(months))
	values := make([][]float64, len(targets))
	for i, m := range months {
		labels[i] = m.Format("Jan 2006")
		for j := range targets {
			values[j] = append(values[j], totals[m][j])
		}
	}

	legend := make([]string, len(targets))
	for i, t := range targets {
		legend[i] = fmt.Sprintf("%s (%s)", t, t.Unit(p))
	}

	chart, err := gocharts.LineRender(
		values,
		gocharts.PNGTypeOption(),
		gocharts.TitleTextOptionFunc(fmt.Sprintf("%s monthly totals", p.Label)),
		gocharts.XAxisDataOptionFunc(labels),
		gocharts.LegendLabelsOptionFunc(legend, gocharts.PositionRight),
		gocharts.WidthOptionFunc(1200),
		gocharts.HeightOptionFunc(400),
		gocharts.PaddingOptionFunc(gocharts.Box{
			Top:    20,
			Right:  20,
			Bottom: 20,
			Left:   20,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("rendering overview chart: %w", err)
	}

	buf, err := chart.Bytes()
	if err != nil {
		return "", fmt.Errorf("encoding overview chart: %w", err)
	}

	dir := r.UtilityDir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating chart directory: %w", err)
	}
	path := filepath.Join(dir, OverviewFile)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("writing overview chart: %w", err)
	}

	r.logger.Debug("Rendered overview chart", "utility", p.Kind, "months", len(months))
	return path, nil
}
