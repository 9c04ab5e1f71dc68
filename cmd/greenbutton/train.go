package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/charts"
	"github.com/jgoulah/greenbutton/internal/config"
	"github.com/jgoulah/greenbutton/internal/database"
	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/partition"
	"github.com/jgoulah/greenbutton/internal/utility"
)

var (
	trainUtility  string
	trainTarget   string
	trainModel    string
	trainNoCharts bool
)

var trainCmd = &cobra.Command{
	Use:   "train --utility [electricity|water]",
	Short: "Fit and score one model per year",
	Long: `Fits a regression model (linear or random forest) on each year's dataset,
prints MSE and R² per year, the best year, and the years that clear the
good-year threshold. Charts of actual against predicted usage are written
under the graphs directory.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainUtility, "utility", "", "Utility to train (electricity or water)")
	trainCmd.Flags().StringVar(&trainTarget, "target", "", "Target to model (usage or cost, default: all)")
	trainCmd.Flags().StringVar(&trainModel, "model", "linear", "Model family (linear or forest)")
	trainCmd.Flags().BoolVar(&trainNoCharts, "no-charts", false, "Skip chart rendering")
	trainCmd.MarkFlagRequired("utility")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Train started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	profile, err := utility.Lookup(trainUtility)
	if err != nil {
		return err
	}

	kind, err := forecast.ParseModelKind(trainModel)
	if err != nil {
		return err
	}

	targets := forecast.Targets(profile)
	if trainTarget != "" {
		t, err := forecast.ParseTarget(profile, trainTarget)
		if err != nil {
			return err
		}
		targets = []forecast.Target{t}
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()
	store := newStore(cfg, logger)

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	renderer := charts.NewRenderer(cfg.GetGraphsDir(), logger)

	for _, target := range targets {
		result, err := trainAndRecord(cfg, logger, store, db, profile, kind, target)
		if err != nil {
			return err
		}
		printScores(result)

		if trainNoCharts || target != forecast.TargetUsage {
			continue
		}
		written := 0
		for _, ym := range result.Years {
			files, err := renderer.RenderYear(profile, target, ym)
			if err != nil {
				fmt.Printf("⚠ Charts for %d: %v\n", ym.Year, err)
				continue
			}
			written += len(files)
		}
		fmt.Printf("✓ Wrote %d chart(s) under %s\n", written, renderer.UtilityDir(profile))
	}

	if !trainNoCharts {
		global, err := store.LoadGlobal(profile)
		if err != nil {
			return fmt.Errorf("loading global dataset: %w", err)
		}
		if len(global) > 0 {
			path, err := renderer.RenderOverview(profile, global)
			if err != nil {
				fmt.Printf("⚠ Overview chart: %v\n", err)
			} else {
				fmt.Printf("✓ Overview chart: %s\n", path)
			}
		}
	}

	return nil
}

// trainAndRecord fits every year for a target and stores the scores in the catalog
func trainAndRecord(cfg *config.Config, logger *logging.Logger, store *partition.Store, db *database.DB, p utility.Profile, kind forecast.ModelKind, target forecast.Target) (*forecast.Result, error) {
	trainer := forecast.NewTrainer(kind, thresholdFor(cfg, kind), logger)

	result, err := trainer.Train(store, p, target)
	var missing *partition.MissingDirectoryError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("%w\nRun 'greenbutton ingest --utility %s FILE...' first", err, p.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("training %s %s %s: %w", kind, p.Kind, target, err)
	}

	if db != nil {
		now := time.Now()
		for _, ym := range result.Years {
			if err := db.UpsertScore(database.ModelScore{
				Utility:   string(p.Kind),
				Model:     string(kind),
				Target:    string(target),
				Year:      ym.Year,
				MSE:       ym.Score.MSE,
				R2:        ym.Score.R2,
				Good:      ym.Good(result.Threshold),
				TrainedAt: now,
			}); err != nil {
				logger.Warn("Failed to store model score", "year", ym.Year, "error", err)
			}
		}
	}

	return result, nil
}

// thresholdFor returns the configured good-year cut for a model family
func thresholdFor(cfg *config.Config, kind forecast.ModelKind) float64 {
	if kind == forecast.ModelForest {
		return cfg.GetForestThreshold()
	}
	return cfg.GetThreshold()
}

func printScores(result *forecast.Result) {
	fmt.Printf("\n%s %s %s models:\n", result.Utility.Label, result.Target, result.Kind)
	fmt.Println("----------------------------------------")
	fmt.Printf("%-6s  %6s  %12s  %8s  %4s\n", "Year", "Rows", "MSE", "R²", "Good")
	fmt.Println("----------------------------------------")
	for _, ym := range result.Years {
		mark := ""
		if ym.Good(result.Threshold) {
			mark = "✓"
		}
		fmt.Printf("%-6d  %6d  %12.4f  %8.4f  %4s\n", ym.Year, ym.Score.Rows, ym.Score.MSE, ym.Score.R2, mark)
	}
	fmt.Println("----------------------------------------")

	for _, year := range result.Skipped {
		fmt.Printf("⚠ %d skipped: not enough rows\n", year)
	}

	if best, ok := result.BestYear(); ok {
		fmt.Printf("Best year: %d (R² %.4f)\n", best.Year, best.Score.R2)
	}

	cmp := "≥"
	if result.Kind == forecast.ModelForest {
		cmp = ">"
	}

	good := result.GoodYears()
	if len(good) == 0 {
		fmt.Printf("⚠ No year has R² %s %.2f\n", cmp, result.Threshold)
		return
	}
	years := make([]int, len(good))
	for i, ym := range good {
		years[i] = ym.Year
	}
	fmt.Printf("Good years (R² %s %.2f): %v\n", cmp, result.Threshold, years)
}
