package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

type memorySource map[int][]models.Record

func (m memorySource) Years(utility.Profile) ([]int, error) {
	var years []int
	for y := range m {
		years = append(years, y)
	}
	return years, nil
}

func (m memorySource) Load(_ utility.Profile, year int) ([]models.Record, error) {
	return m[year], nil
}

type failingSource struct{ err error }

func (f failingSource) Years(utility.Profile) ([]int, error) { return nil, f.err }
func (f failingSource) Load(utility.Profile, int) ([]models.Record, error) {
	return nil, f.err
}

// waterYear builds a year where use = 0.1*temp + 0.5*precip + 1
func waterYear(year, days int) []models.Record {
	var records []models.Record
	for i := 0; i < days; i++ {
		r := models.NewRecord(time.Date(year, time.January, 1+i, 0, 0, 0, 0, time.UTC))
		temp := float64((i*13)%30) - 5
		precip := float64((i * 7) % 11)
		r.Values[utility.ColWaterTemp] = temp
		r.Values[utility.ColWaterPrecip] = precip
		r.Values[utility.ColWaterUse] = 0.1*temp + 0.5*precip + 1
		records = append(records, r)
	}
	return records
}

// noisyYear has use unrelated to the features
func noisyYear(year int) []models.Record {
	uses := []float64{5, 1, 9, 2, 8, 3, 7}
	var records []models.Record
	for i, u := range uses {
		r := models.NewRecord(time.Date(year, time.March, 1+i, 0, 0, 0, 0, time.UTC))
		r.Values[utility.ColWaterTemp] = 10
		r.Values[utility.ColWaterUse] = u
		records = append(records, r)
	}
	return records
}

func TestTrainer_ScoresAndSelection(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	source := memorySource{
		2021: waterYear(2021, 40),
		2022: noisyYear(2022),
		2023: waterYear(2023, 2), // too few rows
	}

	result, err := NewTrainer(ModelLinear, 0, nil).Train(source, water, TargetUsage)
	require.NoError(t, err)

	assert.Equal(t, DefaultThreshold, result.Threshold)
	assert.Equal(t, []int{2023}, result.Skipped)
	require.Len(t, result.Years, 2)
	assert.Equal(t, 2021, result.Years[0].Year)
	assert.Equal(t, 2022, result.Years[1].Year)

	best, ok := result.BestYear()
	require.True(t, ok)
	assert.Equal(t, 2021, best.Year)
	assert.InDelta(t, 1, best.Score.R2, 1e-9)

	good := result.GoodYears()
	require.Len(t, good, 1)
	assert.Equal(t, 2021, good[0].Year)

	scores := result.Scores()
	assert.Len(t, scores, 2)
	assert.Equal(t, 7, scores[2022].Rows)
	assert.Len(t, result.Years[0].Predicted, 40)
}

func TestTrainer_WaterRowsWithoutUseDropped(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	records := waterYear(2020, 5)
	delete(records[2].Values, utility.ColWaterUse)

	data := BuildDataset(water, TargetUsage, records)
	assert.Equal(t, 4, data.Len())
	assert.Equal(t, []string{FeatureDayOfYear, utility.ColWaterTemp, utility.ColWaterPrecip}, data.Features)
}

func TestTrainer_InsufficientData(t *testing.T) {
	water := utility.MustLookup(utility.Water)

	result, err := NewTrainer(ModelLinear, 0.5, nil).Train(memorySource{2023: waterYear(2023, 1)}, water, TargetUsage)
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "water", insufficient.Utility)
	assert.Equal(t, []int{2023}, result.Skipped)

	_, ok := result.BestYear()
	assert.False(t, ok)
}

func TestTrainer_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewTrainer(ModelLinear, 0, nil).Train(failingSource{err: boom}, utility.MustLookup(utility.Water), TargetUsage)
	assert.ErrorIs(t, err, boom)
}

func TestBuildDataset_Electricity(t *testing.T) {
	elec := utility.MustLookup(utility.Electricity)

	withTemp := models.NewRecord(time.Date(2022, time.August, 1, 0, 0, 0, 0, time.UTC)) // Monday
	withTemp.Values[utility.ColAvgTemp] = 20
	withTemp.Values[utility.ColUsageOffPeak] = 5
	withTemp.Values[utility.ColUsageOnPeak] = 2
	withTemp.Values[utility.ColCostMidPeak] = 1.25

	other := models.NewRecord(time.Date(2022, time.August, 7, 0, 0, 0, 0, time.UTC)) // Sunday
	other.Values[utility.ColAvgTemp] = 30

	noTemp := models.NewRecord(time.Date(2022, time.August, 3, 0, 0, 0, 0, time.UTC))
	noTemp.Values[utility.ColUsageMidPeak] = 4

	usage := BuildDataset(elec, TargetUsage, []models.Record{withTemp, other, noTemp})
	require.Equal(t, 3, usage.Len())
	assert.Equal(t, []float64{2022, 8, 1, 0, 20}, usage.X[0])
	assert.Equal(t, []float64{2022, 8, 7, 6, 30}, usage.X[1])
	assert.Equal(t, 25.0, usage.X[2][4], "missing temperature takes the mean")
	assert.Equal(t, []float64{7, 0, 4}, usage.Y)

	cost := BuildDataset(elec, TargetCost, []models.Record{withTemp, other, noTemp})
	assert.Equal(t, []float64{1.25, 0, 0}, cost.Y)
}

func TestParseTarget(t *testing.T) {
	elec := utility.MustLookup(utility.Electricity)
	water := utility.MustLookup(utility.Water)

	got, err := ParseTarget(elec, "Cost")
	require.NoError(t, err)
	assert.Equal(t, TargetCost, got)

	got, err = ParseTarget(water, "")
	require.NoError(t, err)
	assert.Equal(t, TargetUsage, got)

	_, err = ParseTarget(water, "cost")
	assert.Error(t, err)

	assert.Equal(t, "kWh", TargetUsage.Unit(elec))
	assert.Equal(t, "m³", TargetUsage.Unit(water))
}

func TestPredict(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	source := memorySource{
		2021: waterYear(2021, 40),
		2022: waterYear(2022, 40),
		2019: noisyYear(2019),
	}

	result, err := NewTrainer(ModelLinear, 0.2, nil).Train(source, water, TargetUsage)
	require.NoError(t, err)

	conditions := Conditions{Date: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), TemperatureC: 10, PrecipitationMM: 2}
	pred, err := Predict(result, conditions)
	require.NoError(t, err)

	assert.Equal(t, []int{2021, 2022}, pred.Years())
	assert.InDelta(t, 0.1*10+0.5*2+1, pred.Value, 1e-4)
	assert.Equal(t, "m³", pred.Unit)
}

func TestPredict_NoGoodYears(t *testing.T) {
	water := utility.MustLookup(utility.Water)

	result, err := NewTrainer(ModelLinear, 0.9, nil).Train(memorySource{2019: noisyYear(2019)}, water, TargetUsage)
	require.NoError(t, err)

	pred, err := Predict(result, Conditions{Date: time.Now()})
	assert.Nil(t, pred)
	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}
