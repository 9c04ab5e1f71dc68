// Package forecast fits one regression model per year partition, ranks the
// years by goodness of fit, and predicts usage from weather conditions with
// the years that clear the threshold. Linear and random-forest families are
// trained and selected independently.
package forecast

import (
	"fmt"
	"sort"

	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// DefaultThreshold is the minimum R² for a linear year to count as good
const DefaultThreshold = 0.2

// minRows is the fewest usable rows a year needs to be fitted
const minRows = 3

// Source provides year partitions
type Source interface {
	Years(p utility.Profile) ([]int, error)
	Load(p utility.Profile, year int) ([]models.Record, error)
}

// YearModel is the model fitted on one year's partition
type YearModel struct {
	Year      int
	Kind      ModelKind
	Model     Regressor
	Score     Score
	Data      *Dataset
	Predicted []float64 // In-sample estimates aligned with Data.Y
}

// Good reports whether the year clears the threshold. Forest years must
// exceed it; linear years may equal it.
func (y YearModel) Good(threshold float64) bool {
	if y.Kind == ModelForest {
		return y.Score.R2 > threshold
	}
	return y.Score.R2 >= threshold
}

// Result holds every fitted year for a utility and target
type Result struct {
	Utility   utility.Profile
	Kind      ModelKind
	Target    Target
	Threshold float64
	Years     []YearModel // Ascending by year
	Skipped   []int       // Years with too little data to fit
}

// BestYear returns the year with the highest R²
func (r *Result) BestYear() (YearModel, bool) {
	if len(r.Years) == 0 {
		return YearModel{}, false
	}
	best := r.Years[0]
	for _, y := range r.Years[1:] {
		if y.Score.R2 > best.Score.R2 {
			best = y
		}
	}
	return best, true
}

// GoodYears returns the years whose R² clears the threshold
func (r *Result) GoodYears() []YearModel {
	var good []YearModel
	for _, y := range r.Years {
		if y.Good(r.Threshold) {
			good = append(good, y)
		}
	}
	return good
}

// Scores maps each fitted year to its score
func (r *Result) Scores() map[int]Score {
	scores := make(map[int]Score, len(r.Years))
	for _, y := range r.Years {
		scores[y.Year] = y.Score
	}
	return scores
}

// Trainer fits per-year models of one family
type Trainer struct {
	Kind      ModelKind
	Threshold float64
	logger    *logging.Logger
}

// NewTrainer creates a trainer. An empty kind is linear and a non-positive
// threshold uses the family's default.
func NewTrainer(kind ModelKind, threshold float64, logger *logging.Logger) *Trainer {
	if kind == "" {
		kind = ModelLinear
	}
	if threshold <= 0 {
		threshold = kind.GoodThreshold()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Trainer{
		Kind:      kind,
		Threshold: threshold,
		logger:    logger.WithComponent("forecast"),
	}
}

// Train fits and scores one model per partition year
func (t *Trainer) Train(source Source, p utility.Profile, target Target) (*Result, error) {
	log := t.logger.WithUtility(string(p.Kind))

	years, err := source.Years(p)
	if err != nil {
		return nil, err
	}
	sort.Ints(years)

	result := &Result{Utility: p, Kind: t.Kind, Target: target, Threshold: t.Threshold}
	for _, year := range years {
		records, err := source.Load(p, year)
		if err != nil {
			return nil, fmt.Errorf("loading %d partition: %w", year, err)
		}

		data := t.Kind.Dataset(p, target, records)
		if data.Len() < minRows {
			log.Warn("Not enough rows to fit", "year", year, "rows", data.Len())
			result.Skipped = append(result.Skipped, year)
			continue
		}

		model, err := t.fit(data)
		if err != nil {
			return nil, fmt.Errorf("fitting %d %s model: %w", year, t.Kind, err)
		}

		predicted := model.PredictAll(data.X)
		score := Evaluate(data.Y, predicted)
		result.Years = append(result.Years, YearModel{
			Year:      year,
			Kind:      t.Kind,
			Model:     model,
			Score:     score,
			Data:      data,
			Predicted: predicted,
		})

		log.Info("Fitted model",
			"year", year,
			"model", string(t.Kind),
			"target", string(target),
			"rows", score.Rows,
			"mse", score.MSE,
			"r2", score.R2,
		)
	}

	if len(result.Years) == 0 {
		return result, &InsufficientDataError{
			Utility: string(p.Kind),
			Target:  target,
			Reason:  fmt.Sprintf("no partition has at least %d usable rows", minRows),
		}
	}

	return result, nil
}

func (t *Trainer) fit(data *Dataset) (Regressor, error) {
	if t.Kind == ModelForest {
		return FitForest(data.Features, data.X, data.Y)
	}
	return Fit(data.Features, data.X, data.Y)
}
