// Package pipeline runs an ingest: parse each export, merge the records into
// their year partitions, rebuild the global dataset, and catalog the run.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/greenbutton/internal/database"
	"github.com/jgoulah/greenbutton/internal/ingest"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/merge"
	"github.com/jgoulah/greenbutton/internal/partition"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// ErrNoRecords means no export in the batch produced a record
var ErrNoRecords = errors.New("no records parsed from the supplied files")

// Catalog records ingest runs
type Catalog interface {
	InsertRun(run database.Run) error
	InsertFile(f database.IngestedFile) error
	UpsertPartition(p database.Partition) error
}

// FileResult is the outcome of parsing one export
type FileResult struct {
	Path    string
	Records int
	Skipped []error
	Err     error // File-level failure; the file contributed nothing
}

// RunSummary is the outcome of one ingest
type RunSummary struct {
	RunID   string
	Utility utility.Kind
	Started time.Time
	Files   []FileResult
	Merge   *merge.Summary
	Global  *merge.GlobalSummary
}

// Failed returns the files that could not be parsed
func (s *RunSummary) Failed() []FileResult {
	var failed []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Pipeline wires parsing, merging and cataloging for ingest runs
type Pipeline struct {
	store   *partition.Store
	merger  *merge.Merger
	catalog Catalog
	logger  *logging.Logger
	now     func() time.Time
}

// New creates a pipeline. catalog may be nil to skip cataloging.
func New(store *partition.Store, catalog Catalog, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{
		store:   store,
		merger:  merge.New(store, logger),
		catalog: catalog,
		logger:  logger.WithComponent("pipeline"),
		now:     time.Now,
	}
}

// Ingest processes export files for one utility. Files that cannot be parsed
// are reported and skipped; the run fails only when nothing could be parsed
// or storage fails.
func (pl *Pipeline) Ingest(p utility.Profile, paths []string) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:   uuid.NewString(),
		Utility: p.Kind,
		Started: pl.now(),
	}
	log := pl.logger.WithUtility(string(p.Kind)).WithRun(summary.RunID)

	var records []models.Record
	for _, path := range paths {
		result, err := ingest.ParseFile(path, p)
		if err != nil {
			log.LogSkipped(path, err)
			summary.Files = append(summary.Files, FileResult{Path: path, Err: err})
			continue
		}

		for _, skipped := range result.Skipped {
			log.LogSkipped(path, skipped)
		}
		summary.Files = append(summary.Files, FileResult{
			Path:    path,
			Records: len(result.Records),
			Skipped: result.Skipped,
		})
		records = append(records, result.Records...)

		log.Info("Parsed export", "path", path, "records", len(result.Records), "skipped", len(result.Skipped))
	}

	if len(records) == 0 {
		pl.catalogRun(summary, 0)
		return summary, ErrNoRecords
	}

	merged, err := pl.merger.Merge(p, records)
	summary.Merge = merged
	if err != nil {
		return summary, fmt.Errorf("merging partitions: %w", err)
	}

	global, err := pl.merger.Rebuild(p)
	if err != nil {
		return summary, fmt.Errorf("rebuilding global dataset: %w", err)
	}
	summary.Global = global

	pl.catalogRun(summary, len(merged.Dropped))
	return summary, nil
}

// catalogRun records the run. Catalog failures are logged, not returned, since
// the partition files already hold the result.
func (pl *Pipeline) catalogRun(s *RunSummary, dropped int) {
	if pl.catalog == nil {
		return
	}
	log := pl.logger.WithUtility(string(s.Utility))
	utilityName := string(s.Utility)

	records := 0
	for _, f := range s.Files {
		records += f.Records
	}

	if err := pl.catalog.InsertRun(database.Run{
		ID:        s.RunID,
		Utility:   utilityName,
		StartedAt: s.Started,
		Files:     len(s.Files),
		Records:   records,
		Dropped:   dropped,
	}); err != nil {
		log.Warn("Failed to catalog run", "error", err)
		return
	}

	for _, f := range s.Files {
		entry := database.IngestedFile{
			RunID:      s.RunID,
			Utility:    utilityName,
			Path:       f.Path,
			Records:    f.Records,
			Skipped:    len(f.Skipped),
			Status:     "ok",
			IngestedAt: s.Started,
		}
		if f.Err != nil {
			entry.Status = "failed"
			entry.Error = f.Err.Error()
		}
		if err := pl.catalog.InsertFile(entry); err != nil {
			log.Warn("Failed to catalog file", "path", f.Path, "error", err)
		}
	}

	if s.Merge == nil {
		return
	}
	p := utility.MustLookup(s.Utility)
	for _, y := range s.Merge.Years {
		if err := pl.catalog.UpsertPartition(database.Partition{
			Utility:   utilityName,
			Year:      y.Year,
			Path:      pl.store.Path(p, y.Year),
			Rows:      y.Rows,
			FirstDate: y.First,
			LastDate:  y.Last,
			UpdatedAt: s.Started,
		}); err != nil {
			log.Warn("Failed to catalog partition", "year", y.Year, "error", err)
		}
	}
}
