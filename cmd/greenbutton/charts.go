package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/charts"
)

var chartsUtility string

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List rendered charts",
	Long:  `Lists the annual and monthly chart files found under the graphs directory, per year.`,
	RunE:  runCharts,
}

func init() {
	chartsCmd.Flags().StringVar(&chartsUtility, "utility", "", "Filter by utility (electricity or water)")
	rootCmd.AddCommand(chartsCmd)
}

func runCharts(cmd *cobra.Command, args []string) error {
	profiles, err := profilesFor(chartsUtility)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	graphsDir := cfg.GetGraphsDir()

	for _, p := range profiles {
		years, err := charts.Discover(graphsDir, p)
		if err != nil {
			return fmt.Errorf("discovering charts for %s: %w", p.Kind, err)
		}
		if len(years) == 0 {
			fmt.Printf("No charts found for %s (run 'greenbutton train --utility %s')\n", p.Kind, p.Kind)
			continue
		}

		fmt.Printf("\n%s charts:\n", p.Label)
		for _, y := range years {
			files, err := charts.Stat(y)
			if err != nil {
				return fmt.Errorf("reading charts for %d: %w", y.Year, err)
			}

			var size int64
			for _, f := range files {
				size += f.Size
			}
			fmt.Printf("  %d: %d file(s), %s\n", y.Year, len(files), humanize.Bytes(uint64(size)))
			for _, f := range files {
				fmt.Printf("    %-40s %10s\n", filepath.Base(f.Path), humanize.Bytes(uint64(f.Size)))
			}
		}
	}

	return nil
}
