package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "skycast",
	Short: "SkyCast - city weather dashboard service",
	Long: `SkyCast aggregates current conditions, a five-day forecast, air quality
and a landmark photo for a place, and serves them as a dashboard API.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
