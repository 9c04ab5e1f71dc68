// Package merge folds freshly parsed records into the year partitions and
// rebuilds the all-time dataset from them.
package merge

import (
	"fmt"
	"sort"

	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

// Store is the partition storage the merger reads and replaces
type Store interface {
	Load(p utility.Profile, year int) ([]models.Record, error)
	Save(p utility.Profile, year int, records []models.Record) error
	Years(p utility.Profile) ([]int, error)
	SaveGlobal(p utility.Profile, records []models.Record) error
}

// Merger updates year partitions and the global dataset for a utility
type Merger struct {
	store  Store
	logger *logging.Logger
}

// YearSummary describes how one partition changed
type YearSummary struct {
	Year     int
	Existing int // Rows before the merge
	Incoming int // Rows supplied for this year
	Replaced int // Stored rows superseded by incoming ones
	Rows     int // Rows after the merge
	First    string
	Last     string
}

// Added returns the number of dates new to the partition
func (y YearSummary) Added() int {
	return y.Rows - y.Existing
}

// Summary is the outcome of one Merge call
type Summary struct {
	Years   []YearSummary
	Dropped []error
}

// Records returns the total incoming rows that reached a partition
func (s *Summary) Records() int {
	n := 0
	for _, y := range s.Years {
		n += y.Incoming
	}
	return n
}

// GlobalSummary is the outcome of one Rebuild call
type GlobalSummary struct {
	Rows       int
	Partitions int
	Conflicts  []string // Dates found in more than one partition
}

// InvalidRecordError reports a record whose year key cannot place it in a partition
type InvalidRecordError struct {
	Date   string
	Year   int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("record %s (year %d) dropped: %s", e.Date, e.Year, e.Reason)
}

// New creates a merger backed by store
func New(store Store, logger *logging.Logger) *Merger {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Merger{
		store:  store,
		logger: logger.WithComponent("merge"),
	}
}

// Merge groups incoming records by year and folds each group into its
// partition. Incoming records replace stored ones for the same date, and a
// later incoming record replaces an earlier one. Records without a usable year
// are dropped and reported; the rest of the batch still proceeds.
func (m *Merger) Merge(p utility.Profile, incoming []models.Record) (*Summary, error) {
	log := m.logger.WithUtility(string(p.Kind))
	summary := &Summary{}

	groups := make(map[int][]models.Record)
	for _, r := range incoming {
		if err := validate(r); err != nil {
			log.LogSkipped(r.DateKey(), err)
			summary.Dropped = append(summary.Dropped, err)
			continue
		}
		groups[r.Year] = append(groups[r.Year], r)
	}

	years := make([]int, 0, len(groups))
	for year := range groups {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		existing, err := m.store.Load(p, year)
		if err != nil {
			return summary, fmt.Errorf("loading %d partition: %w", year, err)
		}

		merged, replaced := reconcile(existing, groups[year])
		if err := m.store.Save(p, year, merged); err != nil {
			return summary, fmt.Errorf("saving %d partition: %w", year, err)
		}

		ys := YearSummary{
			Year:     year,
			Existing: len(existing),
			Incoming: len(groups[year]),
			Replaced: replaced,
			Rows:     len(merged),
		}
		if len(merged) > 0 {
			ys.First = merged[0].DateKey()
			ys.Last = merged[len(merged)-1].DateKey()
		}
		summary.Years = append(summary.Years, ys)

		log.Info("Merged partition",
			"year", year,
			"existing", ys.Existing,
			"incoming", ys.Incoming,
			"rows", ys.Rows,
		)
	}

	return summary, nil
}

// Rebuild regenerates the global dataset from every partition
func (m *Merger) Rebuild(p utility.Profile) (*GlobalSummary, error) {
	log := m.logger.WithUtility(string(p.Kind))

	years, err := m.store.Years(p)
	if err != nil {
		return nil, err
	}

	summary := &GlobalSummary{Partitions: len(years)}
	byDate := make(map[string]models.Record)
	for _, year := range years {
		records, err := m.store.Load(p, year)
		if err != nil {
			return nil, fmt.Errorf("loading %d partition: %w", year, err)
		}
		for _, r := range records {
			key := r.DateKey()
			if prev, ok := byDate[key]; ok && prev.Year != year {
				log.Warn("Date present in more than one partition",
					"date", key,
					"partition", prev.Year,
					"other_partition", year,
				)
				summary.Conflicts = append(summary.Conflicts, key)
			}
			r.Year = year
			byDate[key] = r
		}
	}

	all := sortedValues(byDate)
	summary.Rows = len(all)

	if err := m.store.SaveGlobal(p, all); err != nil {
		return nil, fmt.Errorf("saving global dataset: %w", err)
	}

	log.Info("Rebuilt global dataset", "partitions", summary.Partitions, "rows", summary.Rows)
	return summary, nil
}

// Reconcile unions existing and incoming, keeps one record per date with
// incoming winning, and sorts ascending by date
func Reconcile(existing, incoming []models.Record) []models.Record {
	merged, _ := reconcile(existing, incoming)
	return merged
}

func reconcile(existing, incoming []models.Record) ([]models.Record, int) {
	byDate := make(map[string]models.Record, len(existing)+len(incoming))
	stored := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		key := r.DateKey()
		byDate[key] = r
		stored[key] = struct{}{}
	}

	replaced := make(map[string]struct{})
	for _, r := range incoming {
		key := r.DateKey()
		if _, ok := stored[key]; ok {
			replaced[key] = struct{}{}
		}
		byDate[key] = r
	}

	return sortedValues(byDate), len(replaced)
}

func sortedValues(byDate map[string]models.Record) []models.Record {
	out := make([]models.Record, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func validate(r models.Record) error {
	switch {
	case r.Date.IsZero():
		return &InvalidRecordError{Date: r.DateKey(), Year: r.Year, Reason: "no date"}
	case r.Year <= 0:
		return &InvalidRecordError{Date: r.DateKey(), Year: r.Year, Reason: "no year key"}
	case r.Year != r.Date.Year():
		return &InvalidRecordError{Date: r.DateKey(), Year: r.Year, Reason: "year key does not match date"}
	}
	return nil
}
