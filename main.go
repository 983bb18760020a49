package main

import (
	"fmt"
	"log/slog"
	"os"

	Rs "github.com/maroda/rainflow/count"
	Rd "github.com/maroda/rainflow/display"
	Ro "github.com/maroda/rainflow/obvy"
)

func init() {
	User := Rs.FillEnvVar("USER")
	fmt.Printf("Rainflow initializing for ... %s\n", User)
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	// Tracing is optional, the counter runs fine without a collector
	if Rs.FillEnvVar("OTEL_EXPORTER_OTLP_ENDPOINT") != "ENOENT" {
		shutdown, err := Ro.InitOTelHNY()
		if err != nil {
			slog.Error("Could not configure tracing, continuing without", slog.Any("Error", err))
		} else {
			defer shutdown()
		}
	}

	configFile := Rs.FillEnvVar("RAINFLOW_CONFIG")
	if configFile == "ENOENT" {
		configFile = "config.json"
	}

	config, err := Rs.LoadConfigFileName(configFile)
	if err != nil {
		slog.Error("Could not load configuration", slog.String("file", configFile), slog.Any("Error", err))
		os.Exit(1)
	}

	if Rs.FillEnvVar("RAINFLOW_NO_TUI") != "ENOENT" {
		err = Rd.StartWebNoTUI(config)
	} else {
		err = Rd.StartCycleViewWithConfig(config)
	}
	if err != nil {
		slog.Error("Problem starting CycleView", slog.Any("Error", err))
		panic("Failed to start cycle view")
	}
}
