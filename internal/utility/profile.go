// Package utility describes the per-utility differences between the electricity
// and water pipelines: which columns an export carries, how the date is recovered,
// and how canonical files and charts are named.
package utility

import (
	"fmt"
	"strings"
)

// Kind identifies a utility type
type Kind string

const (
	Electricity Kind = "electricity"
	Water       Kind = "water"
)

// DateStrategy selects how a record's date is recovered from an export row
type DateStrategy int

const (
	// DateFromColumn parses a well-formed YYYY-MM-DD column
	DateFromColumn DateStrategy = iota
	// DateFromDayAndFilename combines a day-of-month cell with the month and
	// year encoded in the export's file name
	DateFromDayAndFilename
)

// Canonical column names
const (
	ColDate    = "Date"
	ColDayOfMo = "Day of Month"

	ColWaterTemp   = "Outside Temperature (°C)"
	ColWaterPrecip = "Precipitation (mm)"
	ColWaterUse    = "Water Use (m³)"

	ColUsageOffPeak = "Usage TOU off-peak (kWh)"
	ColUsageMidPeak = "Usage TOU mid-peak (kWh)"
	ColUsageOnPeak  = "Usage TOU on-peak (kWh)"
	ColCostOffPeak  = "Cost TOU off-peak ($)"
	ColCostMidPeak  = "Cost TOU mid-peak ($)"
	ColCostOnPeak   = "Cost TOU on-peak ($)"
	ColAvgTemp      = "Average temperature (C)"
)

// ChartNaming holds the file names the dashboard listing expects
type ChartNaming struct {
	Annual       string
	MonthPattern string // fmt pattern taking the month number
}

// Month returns the chart file name for a month (1-12)
func (c ChartNaming) Month(month int) string {
	return fmt.Sprintf(c.MonthPattern, month)
}

// Profile is the configuration for one utility pipeline
type Profile struct {
	Kind         Kind
	Label        string // Used in directory and file names
	SkipRows     int    // Leading lines to discard before the header
	DateColumn   string
	DateStrategy DateStrategy
	Columns      []string // Measurement columns in canonical order
	Snapshot     bool     // Also write a binary array snapshot per partition
	Charts       ChartNaming
}

var profiles = map[Kind]Profile{
	Electricity: {
		Kind:         Electricity,
		Label:        "Electricity",
		SkipRows:     1,
		DateColumn:   ColDate,
		DateStrategy: DateFromColumn,
		Columns: []string{
			ColUsageOffPeak, ColUsageMidPeak, ColUsageOnPeak,
			ColCostOffPeak, ColCostMidPeak, ColCostOnPeak,
			ColAvgTemp,
		},
		Charts: ChartNaming{
			Annual:       "annual_electricity_usage.png",
			MonthPattern: "month_%d_electricity_usage.png",
		},
	},
	Water: {
		Kind:         Water,
		Label:        "Water",
		DateColumn:   ColDayOfMo,
		DateStrategy: DateFromDayAndFilename,
		Columns:      []string{ColWaterTemp, ColWaterPrecip, ColWaterUse},
		Snapshot:     true,
		Charts: ChartNaming{
			Annual:       "annual.png",
			MonthPattern: "%d.png",
		},
	},
}

// Lookup returns the profile for a utility name ("electricity", "water" or "hydro")
func Lookup(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "electricity", "electric":
		return profiles[Electricity], nil
	case "water", "hydro":
		return profiles[Water], nil
	default:
		return Profile{}, fmt.Errorf("unknown utility: %s (available: electricity, water)", name)
	}
}

// MustLookup returns the profile for a known kind
func MustLookup(kind Kind) Profile {
	p, ok := profiles[kind]
	if !ok {
		panic(fmt.Sprintf("utility: no profile for %q", kind))
	}
	return p
}

// All returns every profile in a stable order
func All() []Profile {
	return []Profile{profiles[Electricity], profiles[Water]}
}

// PartitionPrefix returns the common prefix of canonical file names
func (p Profile) PartitionPrefix() string {
	return fmt.Sprintf("Combined_%s_Use_", p.Label)
}

// PartitionFile returns the canonical file name for a year partition
func (p Profile) PartitionFile(year int) string {
	return fmt.Sprintf("%s%d.csv", p.PartitionPrefix(), year)
}

// SnapshotFile returns the binary snapshot file name for a year partition
func (p Profile) SnapshotFile(year int) string {
	return fmt.Sprintf("%s%d.npy", p.PartitionPrefix(), year)
}

// GlobalFile returns the file name of the all-time dataset
func (p Profile) GlobalFile() string {
	return p.PartitionPrefix() + "All.csv"
}

// Header returns the canonical CSV header
func (p Profile) Header() []string {
	return append([]string{ColDate}, p.Columns...)
}
