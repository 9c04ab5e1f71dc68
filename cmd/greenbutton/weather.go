package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/pkg/models"
)

var weatherDate string

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show the weather forecast used for predictions",
	Long:  `Fetches the maximum temperature and precipitation for a day (default: tomorrow) at the configured location.`,
	RunE:  runWeather,
}

func init() {
	weatherCmd.Flags().StringVar(&weatherDate, "date", "", "Day to look up (YYYY-MM-DD, default: tomorrow)")
	rootCmd.AddCommand(weatherCmd)
}

func runWeather(cmd *cobra.Command, args []string) error {
	date, err := parseDay(weatherDate)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	f, err := fetchForecast(cmd.Context(), cfg, newLogger(), date)
	if err != nil {
		return err
	}

	lat, lon := cfg.GetLocation()
	fmt.Printf("Forecast for %s at %.4f,%.4f\n", f.Date.Format(models.DateLayout), lat, lon)
	fmt.Println("----------------------------------------")
	fmt.Printf("%-20s %8.1f °C\n", "Max temperature", f.TempMaxC)
	fmt.Printf("%-20s %8.1f mm\n", "Precipitation", f.PrecipitationMM)
	return nil
}
