// Package report exports canonical datasets to an Excel workbook.
package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

const (
	summarySheet = "Summary"
	allSheet     = "All"
	modelsSheet  = "Models"
)

// ScoreRow is one stored model score
type ScoreRow struct {
	Model  string
	Target string
	Year   int
	MSE    float64
	R2     float64
	Good   bool
}

// Data is everything written to a workbook
type Data struct {
	Profile    utility.Profile
	Partitions map[int][]models.Record
	Global     []models.Record
	Scores     []ScoreRow
}

// YearTotals summarizes one partition
type YearTotals struct {
	Year      int
	Rows      int
	FirstDate string
	LastDate  string
	Totals    []decimal.Decimal // Aligned with forecast.Targets(profile)
}

// Summarize totals each target per year, rounded to cents
func Summarize(p utility.Profile, partitions map[int][]models.Record) []YearTotals {
	targets := forecast.Targets(p)

	years := make([]int, 0, len(partitions))
	for y := range partitions {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearTotals, 0, len(years))
	for _, year := range years {
		records := partitions[year]
		yt := YearTotals{Year: year, Rows: len(records), Totals: make([]decimal.Decimal, len(targets))}
		if len(records) > 0 {
			yt.FirstDate = records[0].DateKey()
			yt.LastDate = records[len(records)-1].DateKey()
		}
		for i, t := range targets {
			total := decimal.Zero
			for _, r := range records {
				for _, col := range t.Columns(p) {
					if v, ok := r.Value(col); ok {
						total = total.Add(decimal.NewFromFloat(v))
					}
				}
			}
			yt.Totals[i] = total.Round(2)
		}
		out = append(out, yt)
	}
	return out
}

// Export writes the workbook to path
func Export(path string, data Data) error {
	f := excelize.NewFile()
	defer f.Close()

	p := data.Profile

	// The default sheet becomes the summary
	if err := f.SetSheetName(f.GetSheetName(0), summarySheet); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	if err := writeSummary(f, p, Summarize(p, data.Partitions)); err != nil {
		return err
	}

	years := make([]int, 0, len(data.Partitions))
	for y := range data.Partitions {
		years = append(years, y)
	}
	sort.Ints(years)

	for _, year := range years {
		if err := writeRecords(f, strconv.Itoa(year), p, data.Partitions[year]); err != nil {
			return err
		}
	}

	if err := writeRecords(f, allSheet, p, data.Global); err != nil {
		return err
	}

	if len(data.Scores) > 0 {
		if err := writeScores(f, data.Scores); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, p utility.Profile, totals []YearTotals) error {
	header := []interface{}{"Year", "Rows", "First date", "Last date"}
	for _, t := range forecast.Targets(p) {
		header = append(header, fmt.Sprintf("Total %s (%s)", t, t.Unit(p)))
	}
	if err := setRow(f, summarySheet, 1, header); err != nil {
		return err
	}

	for i, yt := range totals {
		row := []interface{}{yt.Year, yt.Rows, yt.FirstDate, yt.LastDate}
		for _, total := range yt.Totals {
			row = append(row, total.InexactFloat64())
		}
		if err := setRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRecords(f *excelize.File, sheet string, p utility.Profile, records []models.Record) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", sheet, err)
	}

	header := make([]interface{}, 0, len(p.Columns)+1)
	for _, h := range p.Header() {
		header = append(header, h)
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, r := range records {
		row := make([]interface{}, 0, len(p.Columns)+1)
		row = append(row, r.DateKey())
		for _, col := range p.Columns {
			if v, ok := r.Value(col); ok {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeScores(f *excelize.File, scores []ScoreRow) error {
	if _, err := f.NewSheet(modelsSheet); err != nil {
		return fmt.Errorf("creating sheet %s: %w", modelsSheet, err)
	}
	if err := setRow(f, modelsSheet, 1, []interface{}{"Model", "Target", "Year", "MSE", "R²", "Good"}); err != nil {
		return err
	}
	for i, s := range scores {
		if err := setRow(f, modelsSheet, i+2, []interface{}{s.Model, s.Target, s.Year, s.MSE, s.R2, s.Good}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
