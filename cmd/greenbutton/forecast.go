package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jgoulah/greenbutton/internal/config"
	"github.com/jgoulah/greenbutton/internal/forecast"
	"github.com/jgoulah/greenbutton/internal/logging"
	"github.com/jgoulah/greenbutton/internal/publisher"
	"github.com/jgoulah/greenbutton/internal/utility"
	"github.com/jgoulah/greenbutton/internal/weather"
	"github.com/jgoulah/greenbutton/pkg/models"
)

var (
	forecastUtility string
	forecastTarget  string
	forecastModel   string
	forecastTemp    float64
	forecastPrecip  float64
	forecastDate    string
	forecastPublish bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast --utility [electricity|water]",
	Short: "Predict usage for a day from the weather forecast",
	Long: `Trains on every year, keeps the years that clear the good-year threshold,
and averages their predictions for the given weather. Without --temp the
forecast is fetched from the weather service.`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastUtility, "utility", "", "Utility to forecast (electricity or water)")
	forecastCmd.Flags().StringVar(&forecastTarget, "target", "usage", "Target to predict (usage or cost)")
	forecastCmd.Flags().StringVar(&forecastModel, "model", "linear", "Model family (linear or forest)")
	forecastCmd.Flags().Float64Var(&forecastTemp, "temp", 0, "Temperature in °C (skips the weather lookup)")
	forecastCmd.Flags().Float64Var(&forecastPrecip, "precip", 0, "Precipitation in mm (requires --temp)")
	forecastCmd.Flags().StringVar(&forecastDate, "date", "", "Day to forecast (YYYY-MM-DD, default: tomorrow)")
	forecastCmd.Flags().BoolVar(&forecastPublish, "publish", false, "Publish the forecast via MQTT / Home Assistant")
	forecastCmd.MarkFlagRequired("utility")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("precip") && !cmd.Flags().Changed("temp") {
		return fmt.Errorf("--precip requires --temp (without --temp both values come from the weather service)")
	}

	fmt.Printf("=== Forecast started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	profile, err := utility.Lookup(forecastUtility)
	if err != nil {
		return err
	}
	target, err := forecast.ParseTarget(profile, forecastTarget)
	if err != nil {
		return err
	}
	kind, err := forecast.ParseModelKind(forecastModel)
	if err != nil {
		return err
	}
	date, err := parseDay(forecastDate)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger()

	conditions := forecast.Conditions{TemperatureC: forecastTemp, PrecipitationMM: forecastPrecip}
	if cmd.Flags().Changed("temp") {
		conditions.Date = date
		if date.IsZero() {
			conditions.Date = models.Day(time.Now().AddDate(0, 0, 1))
		}
	} else {
		f, err := fetchForecast(cmd.Context(), cfg, logger, date)
		if err != nil {
			return err
		}
		conditions.Date = f.Date
		conditions.TemperatureC = f.TempMaxC
		conditions.PrecipitationMM = f.PrecipitationMM
		fmt.Printf("✓ Weather for %s: %.1f°C, %.1f mm\n", f.Date.Format(models.DateLayout), f.TempMaxC, f.PrecipitationMM)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var insufficient *forecast.InsufficientDataError
	result, err := trainAndRecord(cfg, logger, newStore(cfg, logger), db, profile, kind, target)
	if errors.As(err, &insufficient) {
		fmt.Printf("⚠ No forecast: %v\n", insufficient)
		return nil
	}
	if err != nil {
		return err
	}

	pred, err := forecast.Predict(result, conditions)
	if errors.As(err, &insufficient) {
		fmt.Printf("⚠ No forecast: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s forecast (%s) for %s: %.2f %s\n",
		profile.Label, target, kind, conditions.Date.Format(models.DateLayout), pred.Value, pred.Unit)
	for _, year := range pred.Years() {
		fmt.Printf("  %d model: %.2f %s\n", year, pred.PerYear[year], pred.Unit)
	}

	if !forecastPublish {
		return nil
	}

	pub, err := publisher.New(cfg)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	msg := publisher.NewForecastMessage(string(profile.Kind), pred, time.Now())
	if err := pub.PublishForecast(msg); err != nil {
		return fmt.Errorf("publishing forecast: %w", err)
	}
	fmt.Printf("✓ Published to %s\n", pub.Topic(msg.Utility, msg.Target))
	return nil
}

// parseDay parses a --date flag. Empty gives the zero time, meaning tomorrow.
func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing --date: %w", err)
	}
	return date, nil
}

// fetchForecast looks up the weather at the configured location, for
// tomorrow when date is zero
func fetchForecast(ctx context.Context, cfg *config.Config, logger *logging.Logger, date time.Time) (*weather.Forecast, error) {
	if cfg.Weather.APIKey == "" {
		return nil, fmt.Errorf("no weather API key configured. Set weather.api_key in config.yaml or GREENBUTTON_WEATHER_API_KEY, or pass --temp")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lat, lon := cfg.GetLocation()
	client := weather.NewClient(weather.Options{
		BaseURL:   cfg.GetWeatherBaseURL(),
		APIKey:    cfg.Weather.APIKey,
		Latitude:  lat,
		Longitude: lon,
		Timeout:   cfg.GetWeatherTimeout(),
	}, logger)

	var (
		f   *weather.Forecast
		err error
	)
	if date.IsZero() {
		f, err = client.Tomorrow(ctx, time.Now())
	} else {
		f, err = client.ForDate(ctx, date)
	}

	var remote *weather.RemoteServiceError
	if errors.As(err, &remote) {
		return nil, fmt.Errorf("weather lookup failed: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	return f, nil
}
