package rainflow

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	Rs "github.com/maroda/rainflow/count"
)

// LiveFrame is the payload pushed over the websocket, enough
// for a dashboard to animate the matrix and running damage.
type LiveFrame struct {
	Damage  float64        `json:"damage"`
	Cycles  uint64         `json:"cycles"`
	Samples uint64         `json:"samples"`
	State   int            `json:"state"`
	Hot     []HotCell      `json:"hot"`
	Residue []ResiduePoint `json:"residue"`
}

// HotCell is one non-empty matrix entry.
type HotCell struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Count uint64 `json:"count"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (v *View) WebsocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// Send live data periodically
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		frame := v.GetLiveFrame()
		if err := conn.WriteJSON(frame); err != nil {
			return // Connection closed
		}
	}
}

func (v *View) GetLiveFrame() LiveFrame {
	// Make sure we're not nil
	if v.Session == nil {
		return LiveFrame{}
	}

	v.MU.Lock()
	matrix := v.Session.MatrixSnapshot()
	res := v.Session.Residue()
	frame := LiveFrame{
		Damage:  Rs.FloatPrecise(v.Session.Damage(), 12),
		Cycles:  v.Session.CyclesClosed(),
		Samples: v.Session.SamplesFed(),
		State:   int(v.Session.State()),
	}
	v.MU.Unlock()

	for from := 0; from < matrix.N; from++ {
		for to := 0; to < matrix.N; to++ {
			if c := matrix.At(from, to); c > 0 {
				frame.Hot = append(frame.Hot, HotCell{From: from, To: to, Count: c})
			}
		}
	}
	for _, p := range res {
		frame.Residue = append(frame.Residue, ResiduePoint{Value: p.Value, Class: p.Class, Pos: p.Pos})
	}
	return frame
}
