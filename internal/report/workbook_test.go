package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

func elecRecord(year int, month time.Month, day int, usage, cost float64) models.Record {
	r := models.NewRecord(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	r.Values[utility.ColUsageOffPeak] = usage
	r.Values[utility.ColCostOffPeak] = cost
	return r
}

func TestSummarize(t *testing.T) {
	elec := utility.MustLookup(utility.Electricity)
	partitions := map[int][]models.Record{
		2023: {elecRecord(2023, 1, 1, 1.1, 0.1), elecRecord(2023, 1, 2, 2.2, 0.2)},
		2022: {elecRecord(2022, 5, 1, 3, 0.005)},
	}

	totals := Summarize(elec, partitions)
	require.Len(t, totals, 2)

	assert.Equal(t, 2022, totals[0].Year)
	assert.Equal(t, "2022-05-01", totals[0].FirstDate)
	assert.Equal(t, "0.01", totals[0].Totals[1].StringFixed(2))

	assert.Equal(t, 2, totals[1].Rows)
	assert.Equal(t, "2023-01-02", totals[1].LastDate)
	assert.Equal(t, "3.3", totals[1].Totals[0].String())
	assert.Equal(t, "0.3", totals[1].Totals[1].String())
}

func TestExport(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	jan := models.NewRecord(time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC))
	jan.Values[utility.ColWaterUse] = 5
	jan.Values[utility.ColWaterTemp] = -4
	feb := models.NewRecord(time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC))
	feb.Values[utility.ColWaterUse] = 2.5

	path := filepath.Join(t.TempDir(), "water.xlsx")
	err := Export(path, Data{
		Profile:    water,
		Partitions: map[int][]models.Record{2023: {jan, feb}},
		Global:     []models.Record{jan, feb},
		Scores:     []ScoreRow{{Model: "forest", Target: "usage", Year: 2023, MSE: 0.5, R2: 0.75, Good: true}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "2023", "All", "Models"}, f.GetSheetList())

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"Year", "Rows", "First date", "Last date", "Total usage (m³)"}, summary[0])
	assert.Equal(t, []string{"2023", "2", "2023-01-01", "2023-02-01", "7.5"}, summary[1])

	rows, err := f.GetRows("2023")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Water Use (m³)", rows[0][3])
	assert.Equal(t, []string{"2023-01-01", "-4", "", "5"}, rows[1])

	scores, err := f.GetRows("Models")
	require.NoError(t, err)
	assert.Equal(t, []string{"forest", "usage", "2023", "0.5", "0.75", "TRUE"}, scores[1])
}

func TestExport_NoScoresSkipsModelsSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, Export(path, Data{Profile: utility.MustLookup(utility.Electricity)}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "All"}, f.GetSheetList())
}
