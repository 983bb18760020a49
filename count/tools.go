package rainflow

import (
	"math"
	"os"
	"strconv"
	"strings"
)

// FillEnvVar returns the value of a runtime Environment Variable
func FillEnvVar(ev string) string {
	// If the EnvVar doesn't exist return a default string
	value := os.Getenv(ev)
	if value == "" {
		value = "ENOENT"
	}
	return value
}

// FloatPrecise rounds to a fixed number of decimals, used to
// stabilize values headed for displays and wire formats.
func FloatPrecise(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// ParseSamples reads whitespace or newline separated floats,
// the line format the HTTP sample source serves. Unparseable
// tokens are skipped rather than failing the chunk.
func ParseSamples(raw string) []float64 {
	fields := strings.Fields(raw)
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
