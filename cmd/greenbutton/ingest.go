package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/pipeline"
	"github.com/jgoulah/greenbutton/internal/utility"
)

var ingestUtility string

var ingestCmd = &cobra.Command{
	Use:   "ingest --utility [electricity|water] FILE...",
	Short: "Merge usage exports into the yearly datasets",
	Long: `Parses each export, merges its rows into the per-year canonical files
(newer rows replace stored rows for the same date), and rebuilds the all-time
dataset. Water exports must be named "<Label> For <Mon> <Year>.csv".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUtility, "utility", "", "Utility the exports belong to (electricity or water)")
	ingestCmd.MarkFlagRequired("utility")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Ingest started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	profile, err := utility.Lookup(ingestUtility)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	pl := pipeline.New(newStore(cfg, logger), db, logger)

	fmt.Printf("Ingesting %d %s export(s)...\n", len(args), profile.Kind)
	summary, err := pl.Ingest(profile, args)
	if summary != nil {
		for _, f := range summary.Files {
			name := filepath.Base(f.Path)
			switch {
			case f.Err != nil:
				fmt.Printf("⚠ %s: %v\n", name, f.Err)
			case len(f.Skipped) > 0:
				fmt.Printf("✓ %s: %d rows (%d skipped)\n", name, f.Records, len(f.Skipped))
			default:
				fmt.Printf("✓ %s: %d rows\n", name, f.Records)
			}
		}
	}
	if errors.Is(err, pipeline.ErrNoRecords) {
		return fmt.Errorf("nothing to merge: %w", err)
	}
	if err != nil {
		return err
	}

	fmt.Println("\nPartitions:")
	fmt.Println("----------------------------------------")
	fmt.Printf("%-6s  %8s  %8s  %8s\n", "Year", "Rows", "Added", "Replaced")
	fmt.Println("----------------------------------------")
	for _, y := range summary.Merge.Years {
		fmt.Printf("%-6d  %8d  %8d  %8d\n", y.Year, y.Rows, y.Added(), y.Replaced)
	}
	fmt.Println("----------------------------------------")

	if n := len(summary.Merge.Dropped); n > 0 {
		fmt.Printf("⚠ Dropped %d record(s) without a usable year\n", n)
	}
	for _, date := range summary.Global.Conflicts {
		fmt.Printf("⚠ %s appears in more than one partition\n", date)
	}

	fmt.Printf("✓ All-time dataset: %d rows across %d year(s)\n", summary.Global.Rows, summary.Global.Partitions)
	fmt.Printf("Run ID: %s\n", summary.RunID)
	return nil
}
