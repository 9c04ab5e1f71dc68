package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/partition"
	"github.com/jgoulah/greenbutton/internal/report"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/pkg/models"
)

var (
	exportUtility string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export --utility [electricity|water]",
	Short: "Export the canonical datasets to an Excel workbook",
	Long: `Writes a workbook with a per-year summary, one sheet per partition, the
all-time dataset, and the stored model scores.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportUtility, "utility", "", "Utility to export (electricity or water)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: <Label>.xlsx)")
	exportCmd.MarkFlagRequired("utility")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	profile, err := utility.Lookup(exportUtility)
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = profile.Label + ".xlsx"
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store := newStore(cfg, newLogger())

	years, err := store.Years(profile)
	var missing *partition.MissingDirectoryError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w\nRun 'greenbutton ingest --utility %s FILE...' first", err, profile.Kind)
	}
	if err != nil {
		return err
	}

	data := report.Data{
		Profile:    profile,
		Partitions: make(map[int][]models.Record, len(years)),
	}
	for _, year := range years {
		records, err := store.Load(profile, year)
		if err != nil {
			return err
		}
		data.Partitions[year] = records
	}

	data.Global, err = store.LoadGlobal(profile)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	scores, err := db.ListScores(string(profile.Kind))
	if err != nil {
		return fmt.Errorf("listing scores: %w", err)
	}
	for _, s := range scores {
		data.Scores = append(data.Scores, report.ScoreRow{
			Model:  s.Model,
			Target: s.Target,
			Year:   s.Year,
			MSE:    s.MSE,
			R2:     s.R2,
			Good:   s.Good,
		})
	}

	if err := report.Export(out, data); err != nil {
		return fmt.Errorf("exporting workbook: %w", err)
	}

	fmt.Printf("✓ Exported %d partition(s) and %d score(s) to %s\n", len(years), len(data.Scores), out)
	return nil
}
