package forecast

import (
	"fmt"
	"sort"
)

// Prediction is the ensemble estimate over the good years
type Prediction struct {
	Kind       ModelKind
	Target     Target
	Unit       string
	Value      float64
	Conditions Conditions
	PerYear    map[int]float64
}

// Years returns the contributing years in ascending order
func (p *Prediction) Years() []int {
	years := make([]int, 0, len(p.PerYear))
	for y := range p.PerYear {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Predict averages the good years' predictions for the conditions, unweighted
func Predict(result *Result, c Conditions) (*Prediction, error) {
	good := result.GoodYears()
	if len(good) == 0 {
		return nil, &InsufficientDataError{
			Utility: string(result.Utility.Kind),
			Target:  result.Target,
			Reason:  fmt.Sprintf("no %s year clears R² %.2f", result.Kind, result.Threshold),
		}
	}

	row := result.Kind.Row(result.Utility, c)
	pred := &Prediction{
		Kind:       result.Kind,
		Target:     result.Target,
		Unit:       result.Target.Unit(result.Utility),
		Conditions: c,
		PerYear:    make(map[int]float64, len(good)),
	}

	var total float64
	for _, y := range good {
		v := y.Model.Predict(row)
		pred.PerYear[y.Year] = v
		total += v
	}
	pred.Value = total / float64(len(good))

	return pred, nil
}
