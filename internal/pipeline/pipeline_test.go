package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/greenbutton/internal/database"
	"github.com/jgoulah/greenbutton/internal/ingest"
	"github.com/jgoulah/greenbutton/internal/partition"
	"github.com/jgoulah/greenbutton/internal/utility"
)

const waterHeader = "Day of Month,Outside Temperature (°C),Precipitation (mm),Water Use (m³)\n"

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func setup(t *testing.T) (*Pipeline, *partition.Store, *database.DB) {
	t.Helper()
	store := partition.NewStore(filepath.Join(t.TempDir(), "data"), nil)
	db, err := database.New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pl := New(store, db, nil)
	pl.now = func() time.Time { return time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC) }
	return pl, store, db
}

func TestIngest_WaterRerunSupersedes(t *testing.T) {
	pl, store, db := setup(t)
	water := utility.MustLookup(utility.Water)
	exports := t.TempDir()

	first := writeExport(t, exports, "Water Use For Jan 2023.csv", waterHeader+"1,2 C,0 mm,5.0\n2,3 C,1 mm,4.0\n")
	summary, err := pl.Ingest(water, []string{first})
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Global.Rows)

	// A corrected export for the same month
	corrected := writeExport(t, t.TempDir(), "Water Use For Jan 2023.csv", waterHeader+"1,2 C,0 mm,7.0\n")
	summary, err = pl.Ingest(water, []string{corrected})
	require.NoError(t, err)
	require.Len(t, summary.Merge.Years, 1)
	assert.Equal(t, 1, summary.Merge.Years[0].Replaced)

	records, err := store.Load(water, 2023)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 7.0, records[0].Values[utility.ColWaterUse])
	assert.Equal(t, 4.0, records[1].Values[utility.ColWaterUse])

	global, err := store.LoadGlobal(water)
	require.NoError(t, err)
	assert.Equal(t, records, global)

	partitions, err := db.ListPartitions("water")
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	assert.Equal(t, 2, partitions[0].Rows)
	assert.Equal(t, "2023-01-02", partitions[0].LastDate)
	assert.Equal(t, store.Path(water, 2023), partitions[0].Path)
}

func TestIngest_SkipsMalformedFiles(t *testing.T) {
	pl, store, db := setup(t)
	water := utility.MustLookup(utility.Water)
	exports := t.TempDir()

	bad := writeExport(t, exports, "WaterData.csv", waterHeader+"1,2 C,0 mm,5.0\n")
	dec := writeExport(t, exports, "Water Use For Dec 2022.csv", waterHeader+"31,1 C,0 mm,3.0\nFirst,1 C,0 mm,3.0\n")
	jan := writeExport(t, exports, "Water Use For Jan 2023.csv", waterHeader+"1st,2 C,0 mm,5.0\n")

	summary, err := pl.Ingest(water, []string{bad, dec, jan})
	require.NoError(t, err)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	var nameErr *ingest.MalformedFilenameError
	assert.True(t, errors.As(failed[0].Err, &nameErr))

	assert.Len(t, summary.Files[1].Skipped, 1)

	years, err := store.Years(water)
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, years)
	assert.Equal(t, 2, summary.Global.Partitions)

	runs, err := db.ListRuns("water", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Files)
	assert.Equal(t, 2, runs[0].Records)

	files, err := db.ListFiles(summary.RunID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "failed", files[0].Status)
	assert.Equal(t, 1, files[1].Skipped)
}

func TestIngest_NothingParsed(t *testing.T) {
	pl, _, db := setup(t)
	water := utility.MustLookup(utility.Water)

	bad := writeExport(t, t.TempDir(), "WaterData.csv", waterHeader)
	summary, err := pl.Ingest(water, []string{bad, filepath.Join(t.TempDir(), "missing.csv")})
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Len(t, summary.Failed(), 2)

	runs, err := db.ListRuns("water", 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestIngest_Electricity(t *testing.T) {
	store := partition.NewStore(t.TempDir(), nil)
	pl := New(store, nil, nil)
	elec := utility.MustLookup(utility.Electricity)

	export := writeExport(t, t.TempDir(), "usage.csv", "Exported by utility portal\n"+
		"Date,Usage TOU off-peak (kWh),Usage TOU mid-peak (kWh),Usage TOU on-peak (kWh),Cost TOU off-peak ($),Cost TOU mid-peak ($),Cost TOU on-peak ($),Average temperature (C)\n"+
		"2022-12-31,1,2,3,0.1,0.2,0.3,-1\n"+
		"2023-01-01,4,5,6,0.4,0.5,0.6,-2\n")

	summary, err := pl.Ingest(elec, []string{export})
	require.NoError(t, err)
	require.Len(t, summary.Merge.Years, 2)
	assert.Equal(t, 2022, summary.Merge.Years[0].Year)
	assert.Equal(t, 2023, summary.Merge.Years[1].Year)

	_, err = os.Stat(filepath.Join(store.Dir(elec), "Combined_Electricity_Use_All.csv"))
	assert.NoError(t, err)
}
