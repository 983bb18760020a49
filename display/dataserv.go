package rainflow

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	Rs "github.com/maroda/rainflow/count"
	Rt "github.com/maroda/rainflow/types"
)

// SetupMux handles all data serving:
// - Prometheus metric endpoint
// - Websocket specialized for live dashboards
// - Version for programmatic use
// - Matrix, damage and residue data for UI feedback
func (v *View) SetupMux() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", v.Stats.Handler())
	r.HandleFunc("/ws", v.WebsocketHandler)
	r.HandleFunc("/api/version", v.VersionHandler)
	r.Handle("/api/matrix", otelhttp.NewHandler(http.HandlerFunc(v.MatrixHandler), "matrix"))
	r.Handle("/api/damage", otelhttp.NewHandler(http.HandlerFunc(v.DamageHandler), "damage"))
	r.Handle("/api/residue", otelhttp.NewHandler(http.HandlerFunc(v.ResidueHandler), "residue"))

	// Static files for the D3 frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir("./web/")))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(v.StatsMiddleware)

	return r
}

var Version = "dev"

func (v *View) VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": Version})
}

// MatrixData is the wire shape of the rainflow matrix.
type MatrixData struct {
	Classes    int      `json:"classes"`
	Counts     []uint64 `json:"counts"`
	FullCycles float64  `json:"fullCycles"`
}

func (v *View) MatrixHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.Lock()
	m := v.Session.MatrixSnapshot()
	v.MU.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MatrixData{
		Classes:    m.N,
		Counts:     m.Counts,
		FullCycles: m.FullCycles(),
	})
}

// DamageData is the wire shape of the running totals.
type DamageData struct {
	Damage  float64 `json:"damage"`
	Cycles  uint64  `json:"cycles"`
	Samples uint64  `json:"samples"`
	State   int     `json:"state"`
}

func (v *View) DamageHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.Lock()
	d := DamageData{
		Damage:  Rs.FloatPrecise(v.Session.Damage(), 12),
		Cycles:  v.Session.CyclesClosed(),
		Samples: v.Session.SamplesFed(),
		State:   int(v.Session.State()),
	}
	v.MU.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

// ResiduePoint is the wire shape of one open turning point.
type ResiduePoint struct {
	Value float64 `json:"value"`
	Class int     `json:"class"`
	Pos   uint64  `json:"pos"`
}

func (v *View) ResidueHandler(w http.ResponseWriter, r *http.Request) {
	v.MU.Lock()
	res := v.Session.Residue()
	v.MU.Unlock()

	points := make([]ResiduePoint, len(res))
	for i, p := range res {
		points[i] = ResiduePoint{Value: p.Value, Class: p.Class, Pos: p.Pos}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// outputSink bridges closed cycles to the output plugin and
// the prometheus counters. It runs on the feed path, so it
// only buffers; flushing happens on the output's schedule.
type outputSink struct {
	view *View
}

func (s *outputSink) OnCycle(e Rt.CycleEvent) {
	if s.view.Stats != nil {
		s.view.Stats.RecCycle()
	}
	if s.view.Output != nil {
		if err := s.view.Output.WriteCycle(&e); err != nil {
			// drop, the counting session must not stall on IO
			return
		}
	}
}
