// Package ingest turns raw utility exports into normalized records.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// Result holds the records parsed from one export and the rows that were skipped
type Result struct {
	Path    string
	Records []models.Record
	Skipped []error
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
}

// ParseFile reads one export from disk
func ParseFile(path string, profile utility.Profile) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	return Parse(f, path, profile)
}

// Parse reads an export from r. name is the export's file name, which carries
// the month and year for water exports.
func Parse(r io.Reader, name string, profile utility.Profile) (*Result, error) {
	var (
		month time.Month
		year  int
	)
	if profile.DateStrategy == utility.DateFromDayAndFilename {
		var err error
		month, year, err = ParseFilename(name)
		if err != nil {
			return nil, err
		}
	}

	br := bufio.NewReader(r)
	for i := 0; i < profile.SkipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("export %s ended before header", name)
			}
			return nil, fmt.Errorf("skipping leading rows: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	// Read header to find column indices
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeHeader(col)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	dateCol, ok := index[normalizeHeader(profile.DateColumn)]
	if !ok {
		return nil, fmt.Errorf("could not find %q column in %s. Header: %v", profile.DateColumn, name, header)
	}

	valueCols := make(map[string]int, len(profile.Columns))
	for _, col := range profile.Columns {
		if i, ok := index[normalizeHeader(col)]; ok {
			valueCols[col] = i
		}
	}

	result := &Result{Path: name}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Skipped = append(result.Skipped, err)
				continue
			}
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		line += profile.SkipRows

		if dateCol >= len(row) {
			result.Skipped = append(result.Skipped, fmt.Errorf("line %d: missing %q cell", line, profile.DateColumn))
			continue
		}
		cell := strings.TrimSpace(row[dateCol])

		var date time.Time
		switch profile.DateStrategy {
		case utility.DateFromDayAndFilename:
			day, err := ParseDay(cell)
			if err == nil {
				date, err = dateFromParts(year, month, day, cell)
			}
			if err != nil {
				var dayErr *MalformedDayError
				if errors.As(err, &dayErr) {
					dayErr.Line = line
				}
				result.Skipped = append(result.Skipped, err)
				continue
			}
		default:
			date, err = parseDate(cell)
			if err != nil {
				result.Skipped = append(result.Skipped, &MalformedDateError{Line: line, Value: cell, Err: err})
				continue
			}
		}

		record := models.NewRecord(date)
		for col, i := range valueCols {
			if i >= len(row) {
				continue
			}
			if v, ok := ParseMeasurement(row[i]); ok {
				record.Values[col] = v
			}
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}

// parseDate accepts YYYY-MM-DD, optionally followed by a time of day
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return models.Day(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}
