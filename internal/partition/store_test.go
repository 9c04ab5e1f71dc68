package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

func waterRecord(year int, month time.Month, day int, use float64) models.Record {
	r := models.NewRecord(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	r.Values[utility.ColWaterUse] = use
	return r
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	water := utility.MustLookup(utility.Water)

	first := waterRecord(2023, time.January, 1, 5)
	first.Values[utility.ColWaterTemp] = -3.25
	records := []models.Record{first, waterRecord(2023, time.January, 2, 4.5)}

	require.NoError(t, store.Save(water, 2023, records))

	loaded, err := store.Load(water, 2023)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, records[0].Date, loaded[0].Date)
	assert.Equal(t, 2023, loaded[0].Year)
	assert.Equal(t, -3.25, loaded[0].Values[utility.ColWaterTemp])
	assert.Equal(t, 4.5, loaded[1].Values[utility.ColWaterUse])
	_, ok := loaded[1].Value(utility.ColWaterTemp)
	assert.False(t, ok)

	content, err := os.ReadFile(store.Path(water, 2023))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, "Date,Outside Temperature (°C),Precipitation (mm),Water Use (m³)", lines[0])
	assert.Equal(t, "2023-01-01,-3.25,,5", lines[1])

	// Snapshot written next to the CSV
	_, err = os.Stat(filepath.Join(store.Dir(water), "Combined_Water_Use_2023.npy"))
	assert.NoError(t, err)
}

func TestStore_LoadMissingPartitionIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	records, err := store.Load(utility.MustLookup(utility.Water), 1999)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	elec := utility.MustLookup(utility.Electricity)

	require.NoError(t, store.Save(elec, 2022, nil))
	require.NoError(t, store.Save(elec, 2022, nil))

	entries, err := os.ReadDir(store.Dir(elec))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Combined_Electricity_Use_2022.csv", entries[0].Name())
}

func TestStore_Years(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	water := utility.MustLookup(utility.Water)

	_, err := store.Years(water)
	var missing *MissingDirectoryError
	require.True(t, errors.As(err, &missing))

	require.NoError(t, store.Save(water, 2024, nil))
	require.NoError(t, store.Save(water, 2021, nil))
	require.NoError(t, store.SaveGlobal(water, nil))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(water), "notes.csv"), []byte("x"), 0644))

	years, err := store.Years(water)
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2024}, years)

	paths, err := store.Paths(water)
	require.NoError(t, err)
	assert.Equal(t, store.Path(water, 2024), paths[2024])
}

func TestStore_UnreadablePartition(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	water := utility.MustLookup(utility.Water)

	require.NoError(t, os.MkdirAll(store.Dir(water), 0755))
	require.NoError(t, os.WriteFile(store.Path(water, 2020), []byte("Date,Water Use (m³)\nnot-a-date,1\n"), 0644))

	_, err := store.Load(water, 2020)
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "read_partition", storageErr.Operation)
}

func TestReadRecords_LegacyUnitsAndExtraColumns(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	input := "Outside Temperature (°C),Precipitation (mm),Water Use (m³),Date,Year\n21.3 C,2 mm,3.5,2021-06-01,2021\n"

	records, err := ReadRecords(strings.NewReader(input), water)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 21.3, records[0].Values[utility.ColWaterTemp])
	assert.Equal(t, 2.0, records[0].Values[utility.ColWaterPrecip])
	assert.Equal(t, 2021, records[0].Year)
}

func TestWriteSnapshot(t *testing.T) {
	water := utility.MustLookup(utility.Water)
	records := []models.Record{waterRecord(2023, time.March, 9, 1.5)}

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, water, records))
	data := buf.Bytes()

	require.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")))
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	assert.Zero(t, (10+headerLen)%64)

	header := string(data[10 : 10+headerLen])
	assert.Contains(t, header, "'shape': (1, 4)")
	assert.True(t, strings.HasSuffix(header, "\n"))

	body := data[10+headerLen:]
	require.Len(t, body, 4*8)
	values := make([]float64, 4)
	require.NoError(t, binary.Read(bytes.NewReader(body), binary.LittleEndian, values))
	assert.Equal(t, 20230309.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.True(t, math.IsNaN(values[2]))
	assert.Equal(t, 1.5, values[3])
}
