package rainflow

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	Rs "github.com/maroda/rainflow/count"
	Ro "github.com/maroda/rainflow/obvy"
	Rp "github.com/maroda/rainflow/plugin"
	Rt "github.com/maroda/rainflow/types"
)

// InitBadgerOutput attaches a BadgerDB cycle output to the View.
// Batch size can be tuned with RAINFLOW_PLUGIN_BADGER_BATCH.
func InitBadgerOutput(view *View, outputDir string) error {
	batch := 64
	if ev := Rs.FillEnvVar("RAINFLOW_PLUGIN_BADGER_BATCH"); ev != "ENOENT" {
		b, err := strconv.Atoi(ev)
		if err != nil {
			slog.Error("Could not read BADGER_BATCH value, using default", slog.Any("error", err), slog.String("value", ev))
		} else {
			batch = b
		}
	}

	output, err := Rp.NewBadgerOutput(outputDir, batch)
	if err != nil {
		slog.Error("Failed to create adapter",
			slog.String("output", outputDir),
			slog.Any("error", err))
		return err
	}
	view.Output = output
	slog.Info("Badger Adapter Enabled", slog.String("output", outputDir), slog.Int("batch", batch))
	return nil
}

// buildSource picks the sample source named by the config.
func buildSource(c Rs.ConfigFile) (Rp.SampleSource, error) {
	switch c.Source {
	case "http":
		if c.SourceURL == "" {
			return nil, errors.New("http source needs a source_url")
		}
		return Rp.NewHTTPSource(c.SourceURL), nil
	case "file":
		raw, err := os.ReadFile(c.SourceURL)
		if err != nil {
			return nil, err
		}
		return &Rp.SliceSource{Samples: Rs.ParseSamples(string(raw))}, nil
	default:
		return nil, fmt.Errorf("unknown sample source: %q", c.Source)
	}
}

// AssembleView wires one config entry into a running View:
// session, source, optional transform and output, stats, and
// the terminal screen when tui is set.
func AssembleView(c []Rs.ConfigFile, tui bool) (*View, error) {
	if len(c) == 0 {
		return nil, errors.New("no configuration entries")
	}
	conf := c[0]

	session, err := Rs.NewSessionFromConfig(conf)
	if err != nil {
		return nil, err
	}

	source, err := buildSource(conf)
	if err != nil {
		slog.Error("Could not build sample source", slog.Any("Error", err))
		return nil, err
	}

	view := &View{
		Session:   session,
		Source:    source,
		Stats:     Ro.NewStatsInternal(),
		ChunkSize: defaultChunk,
		Policy:    Rt.ResidueHalfcycles,
	}

	// Optional chunk transform, picked by env var
	if name := Rs.FillEnvVar("RAINFLOW_PLUGIN_TRANSFORM"); name != "ENOENT" {
		transform, err := Rp.TransformerLookup(name)
		if err != nil {
			slog.Error("Unknown transform, continuing without", slog.String("name", name))
		} else {
			view.Transform = transform
			slog.Info("Transform Enabled", slog.String("name", name))
		}
	}

	if conf.Output == "badger" {
		if err := InitBadgerOutput(view, conf.OutputDir); err != nil {
			return nil, err
		}
	}

	// Closed cycles go to prometheus and the output adapter
	if err := session.SetSink(&outputSink{view: view}); err != nil {
		return nil, err
	}

	if tui {
		screen, err := GetTTY()
		if err != nil {
			slog.Error("Could not get new screen", slog.Any("Error", err))
			return nil, err
		}
		view.Screen = screen
		view.UpdateScreen()
	}

	return view, nil
}
