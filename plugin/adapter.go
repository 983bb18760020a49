package plugin

/*

	The Adapter sits aside /count/
	Contains core interfaces for Plugin

*/

import (
	"time"

	Rt "github.com/maroda/rainflow/types"
)

// SampleSource feeds raw load samples into a counting session.
// NextChunk returns up to max samples in stream order and
// io.EOF when the source is drained; a drained source may
// still return a final short chunk alongside the EOF.
type SampleSource interface {
	NextChunk(max int) ([]float64, error)
	Type() string // Unique ID for the source
}

// SampleTransformer rewrites a chunk before it reaches the
// counter, for unit conversion or drift removal. Transformers
// are stateful and must see chunks in stream order.
type SampleTransformer interface {
	Transform(samples []float64) ([]float64, error)
	Type() string // Unique ID for the transformer
}

// CycleOutput can be used to define a place for counted cycles
// to go, cycle-by-cycle or in batches if supported by the
// output type.
type CycleOutput interface {
	WriteCycle(e *Rt.CycleEvent) error                         // Write singleton cycle data
	WriteBatch(events []*Rt.CycleEvent) error                  // Write batches of cycles
	QueryRange(start, end time.Time) ([]*Rt.CycleEvent, error) // Time range query tool
	Flush() error                                              // Flush any buffered data
	Close() error                                              // Close the adapter and release resources
	Type() string                                              // ID for output
}
