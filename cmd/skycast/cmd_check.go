package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/skycast/internal/weather"
)

var (
	checkLat     float64
	checkLon     float64
	checkUseGeo  bool
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check [city]",
	Short: "Fetch the dashboard for one place and print it as JSON",
	Example: `  skycast check Pune
  skycast check --lat 18.52 --lon 73.85
  skycast check "New York" --locate`,
	Args: cobra.ArbitraryArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Float64Var(&checkLat, "lat", 0, "latitude to search instead of a city name")
	checkCmd.Flags().Float64Var(&checkLon, "lon", 0, "longitude to search instead of a city name")
	checkCmd.Flags().BoolVar(&checkUseGeo, "locate", false, "locate the user first to show the distance")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", time.Minute, "overall timeout")
	checkCmd.MarkFlagsRequiredTogether("lat", "lon")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	d, err := buildDeps()
	if err != nil {
		return err
	}
	defer func() { _ = d.log.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	var q weather.PlaceQuery
	if cmd.Flags().Changed("lat") {
		q = weather.NewCoordinatesQuery(weather.Coordinates{Latitude: checkLat, Longitude: checkLon})
	} else {
		q = weather.NewNameQuery(strings.Join(args, " "))
	}

	dash := weather.NewDashboard(nil)
	if checkUseGeo {
		if c, err := d.locator.Locate(ctx); err == nil {
			dash.SetUserCoordinates(c)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "location unavailable: %v\n", err)
		}
	}

	state, err := dash.Search(ctx, d.aggregator, q)
	if errors.Is(err, weather.ErrEmptyQuery) {
		return errors.New("nothing to search: pass a city name or --lat/--lon")
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(weather.BuildView(state, time.Now()))
}
