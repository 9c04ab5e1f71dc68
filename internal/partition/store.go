// Package partition stores the canonical per-year datasets as CSV files, one
// directory per utility:
//
//	<base>/<Label>/Combine/Combined_<Label>_Use_<Year>.csv
//	<base>/<Label>/Combine/Combined_<Label>_Use_All.csv
//
// Every write replaces the whole file through a temp file and rename, so a
// partition is either the old content or the new content, never a mix.
package partition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jgoulah/greenbutton/internal/ingest"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// Store handles the canonical partition files
type Store struct {
	baseDir string
	logger  *logging.Logger
}

// NewStore creates a store rooted at baseDir
func NewStore(baseDir string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		baseDir: baseDir,
		logger:  logger.WithComponent("partition"),
	}
}

// Dir returns the directory holding a utility's canonical files
func (s *Store) Dir(p utility.Profile) string {
	return filepath.Join(s.baseDir, p.Label, "Combine")
}

// Path returns the file path of a year partition
func (s *Store) Path(p utility.Profile, year int) string {
	return filepath.Join(s.Dir(p), p.PartitionFile(year))
}

// GlobalPath returns the file path of the all-time dataset
func (s *Store) GlobalPath(p utility.Profile) string {
	return filepath.Join(s.Dir(p), p.GlobalFile())
}

// Load reads a year partition. A partition that does not exist yet is empty.
func (s *Store) Load(p utility.Profile, year int) ([]models.Record, error) {
	path := s.Path(p, year)
	records, err := s.readFile(p, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}

// Save replaces a year partition with records, which must already be
// deduplicated and sorted
func (s *Store) Save(p utility.Profile, year int, records []models.Record) error {
	if err := os.MkdirAll(s.Dir(p), 0755); err != nil {
		return &StorageError{Operation: "create_directory", Path: s.Dir(p), Err: err}
	}

	path := s.Path(p, year)
	s.logger.LogStorageOperation("save_partition", path)
	if err := writeAtomic(path, func(w io.Writer) error {
		return WriteRecords(w, p, records)
	}); err != nil {
		return &StorageError{Operation: "write_partition", Path: path, Err: err}
	}

	if p.Snapshot {
		snap := filepath.Join(s.Dir(p), p.SnapshotFile(year))
		s.logger.LogStorageOperation("save_snapshot", snap)
		if err := writeAtomic(snap, func(w io.Writer) error {
			return WriteSnapshot(w, p, records)
		}); err != nil {
			return &StorageError{Operation: "write_snapshot", Path: snap, Err: err}
		}
	}

	return nil
}

// Years lists the years that have a partition, ascending
func (s *Store) Years(p utility.Profile) ([]int, error) {
	paths, err := s.Paths(p)
	if err != nil {
		return nil, err
	}

	years := make([]int, 0, len(paths))
	for year := range paths {
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// Paths maps each partitioned year to its file
func (s *Store) Paths(p utility.Profile) (map[int]string, error) {
	dir := s.Dir(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingDirectoryError{Path: dir}
		}
		return nil, &StorageError{Operation: "list_directory", Path: dir, Err: err}
	}

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(p.PartitionPrefix()) + `(\d{4})\.csv$`)

	paths := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		year, _ := strconv.Atoi(m[1])
		paths[year] = filepath.Join(dir, entry.Name())
	}
	return paths, nil
}

// LoadGlobal reads the all-time dataset. A missing file is empty.
func (s *Store) LoadGlobal(p utility.Profile) ([]models.Record, error) {
	records, err := s.readFile(p, s.GlobalPath(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}

// SaveGlobal replaces the all-time dataset
func (s *Store) SaveGlobal(p utility.Profile, records []models.Record) error {
	if err := os.MkdirAll(s.Dir(p), 0755); err != nil {
		return &StorageError{Operation: "create_directory", Path: s.Dir(p), Err: err}
	}

	path := s.GlobalPath(p)
	s.logger.LogStorageOperation("save_global", path)
	if err := writeAtomic(path, func(w io.Writer) error {
		return WriteRecords(w, p, records)
	}); err != nil {
		return &StorageError{Operation: "write_global", Path: path, Err: err}
	}
	return nil
}

func (s *Store) readFile(p utility.Profile, path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &StorageError{Operation: "open_file", Path: path, Err: err}
	}
	defer f.Close()

	s.logger.LogStorageOperation("load", path)
	records, err := ReadRecords(f, p)
	if err != nil {
		return nil, &StorageError{Operation: "read_partition", Path: path, Err: err}
	}
	return records, nil
}

// WriteRecords writes records in canonical CSV form. Missing values are empty cells.
func WriteRecords(w io.Writer, p utility.Profile, records []models.Record) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(p.Header()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(p.Columns)+1)
	for _, r := range records {
		row[0] = r.DateKey()
		for i, col := range p.Columns {
			if v, ok := r.Values[col]; ok {
				row[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
			} else {
				row[i+1] = ""
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing record %s: %w", r.DateKey(), err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadRecords parses canonical CSV. Columns the profile does not know are ignored.
func ReadRecords(r io.Reader, p utility.Profile) ([]models.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	dateCol := -1
	valueCols := make(map[string]int)
	known := make(map[string]string, len(p.Columns))
	for _, col := range p.Columns {
		known[strings.ToLower(col)] = col
	}
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if key == strings.ToLower(utility.ColDate) {
			dateCol = i
			continue
		}
		if canonical, ok := known[key]; ok {
			valueCols[canonical] = i
		}
	}
	if dateCol == -1 {
		return nil, fmt.Errorf("no %q column in header %v", utility.ColDate, header)
	}

	var records []models.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if dateCol >= len(row) {
			return nil, fmt.Errorf("row %v has no date", row)
		}

		date, err := time.Parse(models.DateLayout, strings.TrimSpace(row[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("parsing date: %w", err)
		}

		record := models.NewRecord(date)
		for col, i := range valueCols {
			if i >= len(row) {
				continue
			}
			if v, ok := ingest.ParseMeasurement(row[i]); ok {
				record.Values[col] = v
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// writeAtomic writes through a temp file in the target directory and renames it into place
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
