package forecast

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// Target is the quantity a model predicts
type Target string

const (
	TargetUsage Target = "usage"
	TargetCost  Target = "cost"
)

// Feature names
const (
	FeatureDayOfYear = "Day of Year"
	FeatureYear      = "Year"
	FeatureMonth     = "Month"
	FeatureDay       = "Day"
	FeatureWeekday   = "Weekday"
	FeatureTemp      = "Temperature"
)

// ModelKind is a regression family
type ModelKind string

const (
	ModelLinear ModelKind = "linear"
	ModelForest ModelKind = "forest"
)

// ForestThreshold is the R² a forest year must exceed to count as good
const ForestThreshold = 0.4

// ModelKinds lists the supported regression families
func ModelKinds() []ModelKind {
	return []ModelKind{ModelLinear, ModelForest}
}

// ParseModelKind resolves a model name. Empty means linear.
func ParseModelKind(name string) (ModelKind, error) {
	k := ModelKind(strings.ToLower(strings.TrimSpace(name)))
	switch k {
	case "":
		return ModelLinear, nil
	case ModelLinear, ModelForest:
		return k, nil
	}
	return "", fmt.Errorf("unknown model %q (available: linear, forest)", name)
}

// GoodThreshold returns the family's default good-year cut
func (k ModelKind) GoodThreshold() float64 {
	if k == ModelForest {
		return ForestThreshold
	}
	return DefaultThreshold
}

// FeatureNames returns the family's inputs for a utility. The electricity
// forest uses only day of year and temperature; water uses the same inputs
// for both families.
func (k ModelKind) FeatureNames(p utility.Profile) []string {
	if k == ModelForest && p.Kind == utility.Electricity {
		return []string{FeatureDayOfYear, FeatureTemp}
	}
	return FeatureNames(p)
}

// Dataset builds the family's inputs from partition records
func (k ModelKind) Dataset(p utility.Profile, target Target, records []models.Record) *Dataset {
	if k != ModelForest || p.Kind != utility.Electricity {
		return BuildDataset(p, target, records)
	}

	// Missing temperature counts as zero here
	d := &Dataset{Features: k.FeatureNames(p)}
	cols := target.Columns(p)
	for _, r := range records {
		d.add(r.Date, forestElectricityRow(r.Date, r.Values[utility.ColAvgTemp]), r.Sum(cols...))
	}
	return d
}

// Row builds the family's feature row for forecast conditions
func (k ModelKind) Row(p utility.Profile, c Conditions) []float64 {
	if k == ModelForest && p.Kind == utility.Electricity {
		return forestElectricityRow(c.Date, c.TemperatureC)
	}
	return Row(p, c)
}

// Targets lists what can be modeled for a utility
func Targets(p utility.Profile) []Target {
	if p.Kind == utility.Electricity {
		return []Target{TargetUsage, TargetCost}
	}
	return []Target{TargetUsage}
}

// ParseTarget resolves a target name for a utility
func ParseTarget(p utility.Profile, name string) (Target, error) {
	t := Target(strings.ToLower(strings.TrimSpace(name)))
	if t == "" {
		return TargetUsage, nil
	}
	for _, known := range Targets(p) {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown target %q for %s", name, p.Kind)
}

// Columns returns the measurement columns summed to form the target
func (t Target) Columns(p utility.Profile) []string {
	switch {
	case p.Kind == utility.Water:
		return []string{utility.ColWaterUse}
	case t == TargetCost:
		return []string{utility.ColCostOffPeak, utility.ColCostMidPeak, utility.ColCostOnPeak}
	default:
		return []string{utility.ColUsageOffPeak, utility.ColUsageMidPeak, utility.ColUsageOnPeak}
	}
}

// Unit returns the display unit of the target
func (t Target) Unit(p utility.Profile) string {
	switch {
	case p.Kind == utility.Water:
		return "m³"
	case t == TargetCost:
		return "$"
	default:
		return "kWh"
	}
}

// FeatureNames returns the linear model inputs for a utility
func FeatureNames(p utility.Profile) []string {
	if p.Kind == utility.Electricity {
		return []string{FeatureYear, FeatureMonth, FeatureDay, FeatureWeekday, utility.ColAvgTemp}
	}
	return []string{FeatureDayOfYear, utility.ColWaterTemp, utility.ColWaterPrecip}
}

// Conditions are the weather inputs for a forecast
type Conditions struct {
	Date            time.Time
	TemperatureC    float64
	PrecipitationMM float64
}

// Dataset is the feature matrix and target vector for one partition
type Dataset struct {
	Features []string
	Dates    []time.Time
	X        [][]float64
	Y        []float64
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Y)
}

// BuildDataset turns partition records into linear model inputs. Water rows without a
// recorded use are dropped and missing weather counts as zero. Electricity rows
// with no temperature take the partition's mean temperature.
func BuildDataset(p utility.Profile, target Target, records []models.Record) *Dataset {
	d := &Dataset{Features: FeatureNames(p)}
	cols := target.Columns(p)

	switch p.Kind {
	case utility.Electricity:
		var temps []float64
		for _, r := range records {
			if v, ok := r.Value(utility.ColAvgTemp); ok {
				temps = append(temps, v)
			}
		}
		fill := 0.0
		if len(temps) > 0 {
			fill = stat.Mean(temps, nil)
		}

		for _, r := range records {
			temp, ok := r.Value(utility.ColAvgTemp)
			if !ok {
				temp = fill
			}
			d.add(r.Date, electricityRow(r.Date, temp), r.Sum(cols...))
		}

	default:
		for _, r := range records {
			use, ok := r.Value(utility.ColWaterUse)
			if !ok {
				continue
			}
			d.add(r.Date, waterRow(r.Date, r.Values[utility.ColWaterTemp], r.Values[utility.ColWaterPrecip]), use)
		}
	}

	return d
}

func (d *Dataset) add(date time.Time, row []float64, y float64) {
	d.Dates = append(d.Dates, date)
	d.X = append(d.X, row)
	d.Y = append(d.Y, y)
}

// Row builds the feature row for forecast conditions
func Row(p utility.Profile, c Conditions) []float64 {
	if p.Kind == utility.Electricity {
		return electricityRow(c.Date, c.TemperatureC)
	}
	return waterRow(c.Date, c.TemperatureC, c.PrecipitationMM)
}

func waterRow(date time.Time, temp, precip float64) []float64 {
	return []float64{float64(date.YearDay()), temp, precip}
}

func electricityRow(date time.Time, temp float64) []float64 {
	return []float64{
		float64(date.Year()),
		float64(date.Month()),
		float64(date.Day()),
		float64(mondayFirst(date.Weekday())),
		temp,
	}
}

func forestElectricityRow(date time.Time, temp float64) []float64 {
	return []float64{float64(date.YearDay()), temp}
}

// mondayFirst numbers weekdays from Monday = 0
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
