package models

import "time"

// DateLayout is the canonical on-disk date format
const DateLayout = "2006-01-02"

// Record represents a single day's meter reading for one utility
type Record struct {
	Date   time.Time          `json:"date"` // Calendar day, UTC midnight
	Year   int                `json:"year"` // Partition key
	Values map[string]float64 `json:"values"`
}

// NewRecord creates a record for the given day with its year key derived from the date
func NewRecord(date time.Time) Record {
	day := Day(date)
	return Record{
		Date:   day,
		Year:   day.Year(),
		Values: make(map[string]float64),
	}
}

// Day truncates a timestamp to UTC midnight of its calendar day
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Value returns the named measurement and whether it is present
func (r Record) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Sum adds the named measurements, counting missing ones as zero
func (r Record) Sum(columns ...string) float64 {
	var total float64
	for _, c := range columns {
		total += r.Values[c]
	}
	return total
}

// DateKey returns the record's date formatted for storage
func (r Record) DateKey() string {
	return r.Date.Format(DateLayout)
}
