package rainflow

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	Rt "github.com/maroda/rainflow/types"
)

type ConfigFile struct {
	ID         string  `json:"id"`
	Classes    int     `json:"classes"`
	ClassWidth float64 `json:"class_width"`
	Offset     float64 `json:"offset"`
	Hysteresis float64 `json:"hysteresis"`
	Method     string  `json:"method"`
	Flags      struct {
		Matrix        bool `json:"matrix"`
		Damage        bool `json:"damage"`
		SpreadDamage  bool `json:"spread_damage"`
		RangePair     bool `json:"range_pair"`
		LevelCrossing bool `json:"level_crossing"`
		Margin        bool `json:"margin"`
		TurningPoints bool `json:"turning_points"`
		AutoPrune     bool `json:"auto_prune"`
	} `json:"flags"`
	Woehler *struct {
		SD       float64 `json:"sd"`
		ND       float64 `json:"nd"`
		K1       float64 `json:"k1"`
		K2       float64 `json:"k2"`
		Omission float64 `json:"omission"`
		Miner    string  `json:"miner"`
	} `json:"woehler"`
	MeanStressM float64 `json:"mean_stress_m"`
	Source      string  `json:"source"`
	SourceURL   string  `json:"source_url"`
	Output      string  `json:"output"`
	OutputDir   string  `json:"output_dir"`
}

// LoadConfigFileName pulls a given filename config off local disk
// Validation is performed on the file before opening
func LoadConfigFileName(filename string) ([]ConfigFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// validation
	err = validateLoad(file)
	if err != nil {
		slog.Error("Validation failed", slog.Any("Error", err))
		return nil, err
	}

	return LoadConfig(file)
}

func validateLoad(file *os.File) error {
	// validate file
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	// validate size
	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}

func LoadConfig(file *os.File) ([]ConfigFile, error) {
	// open file
	cf, err := os.Open(file.Name())
	if err != nil {
		slog.Error("could not open file")
		return nil, err
	}
	defer cf.Close()

	// decode json
	var config []ConfigFile
	decoder := json.NewDecoder(cf)
	if err := decoder.Decode(&config); err != nil {
		slog.Error("could not decode file")
		return nil, err
	}

	return config, nil
}

// ParseFlags translates the config booleans into the flag set.
// An all-false block still counts the matrix.
func (c ConfigFile) ParseFlags() Rt.Flags {
	var f Rt.Flags
	if c.Flags.Matrix {
		f |= Rt.CountMatrix
	}
	if c.Flags.Damage {
		f |= Rt.CountDamage
	}
	if c.Flags.SpreadDamage {
		f |= Rt.SpreadDamage
	}
	if c.Flags.RangePair {
		f |= Rt.CountRangePair
	}
	if c.Flags.LevelCrossing {
		f |= Rt.CountLevelCrossUp | Rt.CountLevelCrossDown
	}
	if c.Flags.Margin {
		f |= Rt.EnforceMargin
	}
	if c.Flags.TurningPoints {
		f |= Rt.StoreTurningPoints
	}
	if c.Flags.AutoPrune {
		f |= Rt.AutoPruneTP
	}
	if f == 0 {
		f = Rt.CountDefault
	}
	return f
}

// NewSessionFromConfig assembles a ready session out of one
// config entry, woehler and transform included when present.
func NewSessionFromConfig(c ConfigFile) (*Session, error) {
	s, err := NewSession(c.Classes, c.ClassWidth, c.Offset, c.Hysteresis, c.ParseFlags())
	if err != nil {
		slog.Error("Session construction failed", slog.Any("Error", err))
		return nil, err
	}
	s.ID = c.ID

	if c.Method == "hcm" {
		if err := s.SetMethod(Rt.MethodHCM); err != nil {
			return nil, err
		}
	}

	if c.Woehler != nil {
		curve := Rt.WoehlerCurve{
			SD:       c.Woehler.SD,
			ND:       c.Woehler.ND,
			K1:       c.Woehler.K1,
			K2:       c.Woehler.K2,
			Omission: c.Woehler.Omission,
			Rule:     parseMiner(c.Woehler.Miner),
		}
		if err := s.ConfigureWoehler(curve); err != nil {
			return nil, err
		}
	}

	if c.MeanStressM > 0 {
		ht, err := NewHaighTransform(c.MeanStressM, false)
		if err != nil {
			return nil, err
		}
		if err := s.InitAmplitudeTransform(ht); err != nil {
			return nil, err
		}
	}

	slog.Info("New counting session",
		slog.String("ID", c.ID),
		slog.Int("classes", c.Classes),
		slog.String("method", c.Method))
	return s, nil
}

func parseMiner(name string) Rt.MinerRule {
	switch name {
	case "elementary":
		return Rt.MinerElementary
	case "original":
		return Rt.MinerOriginal
	case "consequent":
		return Rt.MinerConsequent
	default:
		return Rt.MinerModified
	}
}
