package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/database"
)

var (
	listUtility string
	listRuns    int
	listFiles   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued partitions, model scores and ingest runs",
	Long:  `Displays what the catalog database knows about each utility's partitions, model scores and recent ingest runs.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listUtility, "utility", "", "Filter by utility (electricity or water)")
	listCmd.Flags().IntVar(&listRuns, "runs", 5, "Number of recent ingest runs to show")
	listCmd.Flags().BoolVar(&listFiles, "files", false, "Show the files ingested in each run")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	profiles, err := profilesFor(listUtility)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	for _, p := range profiles {
		name := string(p.Kind)

		partitions, err := db.ListPartitions(name)
		if err != nil {
			return fmt.Errorf("listing partitions for %s: %w", name, err)
		}
		if len(partitions) == 0 {
			fmt.Printf("No data found for %s\n", name)
			continue
		}

		fmt.Printf("\n%s partitions:\n", p.Label)
		fmt.Println("--------------------------------------------------------")
		fmt.Printf("%-6s  %8s  %-12s  %-12s  %s\n", "Year", "Rows", "First", "Last", "Updated")
		fmt.Println("--------------------------------------------------------")
		total := 0
		for _, part := range partitions {
			fmt.Printf("%-6d  %8s  %-12s  %-12s  %s\n",
				part.Year, humanize.Comma(int64(part.Rows)), part.FirstDate, part.LastDate, humanize.Time(part.UpdatedAt))
			total += part.Rows
		}
		fmt.Println("--------------------------------------------------------")
		fmt.Printf("Total: %s rows in %d partition(s)\n", humanize.Comma(int64(total)), len(partitions))

		scores, err := db.ListScores(name)
		if err != nil {
			return fmt.Errorf("listing scores for %s: %w", name, err)
		}
		if len(scores) > 0 {
			fmt.Printf("\n%s model scores:\n", p.Label)
			fmt.Println("--------------------------------------------------------")
			fmt.Printf("%-6s  %-6s  %-6s  %12s  %8s  %4s  %s\n", "Model", "Target", "Year", "MSE", "R²", "Good", "Trained")
			fmt.Println("--------------------------------------------------------")
			for _, s := range scores {
				mark := ""
				if s.Good {
					mark = "✓"
				}
				fmt.Printf("%-6s  %-6s  %-6d  %12.4f  %8.4f  %4s  %s\n",
					s.Model, s.Target, s.Year, s.MSE, s.R2, mark, humanize.Time(s.TrainedAt))
			}
		}

		if listRuns <= 0 {
			continue
		}
		runs, err := db.ListRuns(name, listRuns)
		if err != nil {
			return fmt.Errorf("listing runs for %s: %w", name, err)
		}
		if len(runs) > 0 {
			fmt.Printf("\n%s recent ingest runs:\n", p.Label)
			for _, run := range runs {
				fmt.Printf("  %s  %s  %d file(s), %s record(s), %d dropped\n",
					run.ID, humanize.Time(run.StartedAt), run.Files, humanize.Comma(int64(run.Records)), run.Dropped)
				if listFiles {
					if err := printRunFiles(db, run.ID); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

func printRunFiles(db *database.DB, runID string) error {
	files, err := db.ListFiles(runID)
	if err != nil {
		return fmt.Errorf("listing files for run %s: %w", runID, err)
	}
	for _, f := range files {
		if f.Status != "ok" {
			fmt.Printf("      ⚠ %s: %s\n", filepath.Base(f.Path), f.Error)
			continue
		}
		fmt.Printf("      ✓ %s: %s row(s), %d skipped\n", filepath.Base(f.Path), humanize.Comma(int64(f.Records)), f.Skipped)
	}
	return nil
}
