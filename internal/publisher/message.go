package publisher

import (
	"strconv"
	"time"

	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// NewForecastMessage builds the published payload for a prediction
func NewForecastMessage(utility string, pred *forecast.Prediction, now time.Time) ForecastMessage {
	perYear := make(map[string]float64, len(pred.PerYear))
	for year, v := range pred.PerYear {
		perYear[strconv.Itoa(year)] = v
	}
	return ForecastMessage{
		Utility:         utility,
		Model:           string(pred.Kind),
		Target:          string(pred.Target),
		Unit:            pred.Unit,
		Date:            pred.Conditions.Date.Format(models.DateLayout),
		Value:           pred.Value,
		TemperatureC:    pred.Conditions.TemperatureC,
		PrecipitationMM: pred.Conditions.PrecipitationMM,
		Years:           pred.Years(),
		PerYear:         perYear,
		GeneratedAt:     now.UTC().Format(time.RFC3339),
	}
}
