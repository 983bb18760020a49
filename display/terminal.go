package rainflow

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	Rs "github.com/maroda/rainflow/count"
	Ro "github.com/maroda/rainflow/obvy"
	Rp "github.com/maroda/rainflow/plugin"
	Rt "github.com/maroda/rainflow/types"
)

const (
	screenGutter = 4
	defaultChunk = 256
)

// View renders one counting session and serves its data.
// The MU serializes session access between the feed loop,
// the HTTP handlers and the terminal drawing.
type View struct {
	MU         sync.Mutex          // State lock around the Session
	Session    *Rs.Session         // the counting session on display
	Source     Rp.SampleSource     // where samples come from
	Transform  Rp.SampleTransformer // optional chunk rewrite
	Output     Rp.CycleOutput      // where closed cycles go
	Screen     tcell.Screen        // the screen itself
	Stats      *Ro.StatsInternal   // Internal status for prometheus
	Supervisor *FeedSupervisor     // feed loop management
	server     *http.Server        // Prometheus metrics server
	ChunkSize  int                 // samples pulled per feed tick
	Policy     Rt.ResiduePolicy    // applied when the source drains
	SelectFrom int                 // Selected matrix row with MouseClick
	SelectTo   int                 // Selected matrix column with MouseClick
	ShowCell   bool                // Display the selected cell count
	ShowLevels bool                // Display level crossings instead of the matrix
}

// countToRune shades a matrix cell by its share of the
// largest cell.
func countToRune(count, max uint64) rune {
	if count == 0 || max == 0 {
		return '·'
	}
	shades := []rune("▁▂▃▄▅▆▇█")
	idx := int(count * uint64(len(shades)-1) / max)
	return shades[idx]
}

func runeStyle(r rune) tcell.Style {
	switch r {
	case '▁':
		return tcell.StyleDefault.Foreground(tcell.ColorSeaGreen)
	case '▂':
		return tcell.StyleDefault.Foreground(tcell.ColorMediumSeaGreen)
	case '▃':
		return tcell.StyleDefault.Foreground(tcell.ColorLightSeaGreen)
	case '▄':
		return tcell.StyleDefault.Foreground(tcell.ColorDarkTurquoise)
	case '▅':
		return tcell.StyleDefault.Foreground(tcell.ColorMediumTurquoise)
	case '▆':
		return tcell.StyleDefault.Foreground(tcell.ColorTurquoise)
	case '▇':
		return tcell.StyleDefault.Foreground(tcell.ColorLightGreen)
	case '█':
		return tcell.StyleDefault.Foreground(tcell.ColorAquaMarine)
	default:
		return tcell.StyleDefault.Dim(true)
	}
}

// DrawMatrix renders the rainflow matrix as a heatmap, from
// classes down the side and to classes across the top.
func (v *View) DrawMatrix(x, y int, m *Rs.Matrix) {
	var max uint64
	for _, c := range m.Counts {
		if c > max {
			max = c
		}
	}

	for from := 0; from < m.N; from++ {
		for to := 0; to < m.N; to++ {
			r := countToRune(m.At(from, to), max)
			v.Screen.SetContent(x+to*2, y+from, r, nil, runeStyle(r))
		}
	}
}

// DrawLevelCrossing renders the upward crossing counts as
// horizontal bars, one per class boundary.
func (v *View) DrawLevelCrossing(x, y int, lc *Rs.LevelCrossing) {
	width, _ := v.GetScreenSize()
	barMax := width - x - screenGutter

	var max uint64
	for _, c := range lc.Up {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return
	}

	style := tcell.StyleDefault.Background(tcell.ColorDarkTurquoise)
	for level := 1; level < len(lc.Up); level++ {
		n := int(lc.Up[level] * uint64(barMax) / max)
		WriteBar(v.Screen, x, y+level-1, x+n, y+level, style)
	}
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
	}
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)

	for i := 1; i < height; i++ {
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}

	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)

	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
}

// DrawCycleView draws the whole terminal frame: heatmap or
// level-crossing bars plus the running totals.
func (v *View) DrawCycleView() {
	width, height := v.GetScreenSize()

	v.MU.Lock()
	matrix := v.Session.MatrixSnapshot()
	levels := v.Session.LevelCrossingSnapshot()
	damage := v.Session.Damage()
	cycles := v.Session.CyclesClosed()
	samples := v.Session.SamplesFed()
	state := v.Session.State()
	showCell := v.ShowCell
	selFrom, selTo := v.SelectFrom, v.SelectTo
	showLevels := v.ShowLevels
	v.MU.Unlock()

	v.DrawViewBorder(width-2, height-1)

	if showLevels {
		v.DrawText(1, 1, width-10, 2, "LEVEL CROSSINGS (upward, by class boundary)")
		v.DrawLevelCrossing(2, screenGutter, levels)
		v.DrawText(1, height-1, width, height+10, "/l/ for matrix | /ESC/ to quit")
	} else {
		v.DrawText(1, 1, width-10, 2, "RAINFLOW MATRIX (from class ↓, to class →)")
		v.DrawMatrix(2, screenGutter, matrix)

		if showCell {
			count := matrix.At(selFrom, selTo)
			label := fmt.Sprintf("... (%d→%d) = %d ...", selFrom, selTo, count)
			v.DrawText(4, height-2, width, height-2, label)
		}

		v.DrawText(1, height-1, width, height+10, "/l/ for levels | /ESC/ to quit")
	}

	status := fmt.Sprintf("samples %d | cycles %d | damage %.3g | state %d",
		samples, cycles, Rs.FloatPrecise(damage, 9), state)
	v.DrawText(1, 2, width-10, 3, status)

	v.DrawText(width-12, height-1, width, height+10, "RAINFLOW")
}

// Exit cleanly
func (v *View) exit() {
	if v.Supervisor != nil {
		v.Supervisor.Stop()
	}
	if v.Output != nil {
		if err := v.Output.Close(); err != nil {
			slog.Error("Output close failed", slog.Any("Error", err))
		}
	}
	v.Screen.Fini()
	os.Exit(0)
}

// Running Loop to handle events
func (v *View) handleKeyBoardEvent() {
	for {
		ev := v.Screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			v.ResizeScreen()
		case *tcell.EventKey:
			// Catch quit and exit
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				v.exit()
			}

			// Toggle level-crossing view with 'l'
			if ev.Rune() == 'l' {
				v.MU.Lock()
				v.ShowLevels = !v.ShowLevels
				v.MU.Unlock()
			}

		case *tcell.EventMouse:
			// Button1 is Left Mouse Button
			if ev.Buttons() == tcell.Button1 {
				v.HandleMouseClick(ev.Position())
			}
		}
	}
}

// HandleMouseClick maps a click onto a matrix cell.
func (v *View) HandleMouseClick(x, y int) {
	v.MU.Lock()
	defer v.MU.Unlock()

	v.ShowCell = false

	n, _, _ := v.Session.ClassParams()
	from := y - screenGutter
	to := (x - 2) / 2
	if from >= 0 && from < n && to >= 0 && to < n {
		v.SelectFrom = from
		v.SelectTo = to
		v.ShowCell = true
	}
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	width, height := v.Screen.Size()
	return width, height
}

// ResizeScreen resizes CycleView after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen()
}

func (v *View) UpdateScreen() {
	v.Screen.Clear()
	v.DrawCycleView()
	v.Screen.Show()
}

// run updates the display once a second while the supervisor
// feeds the session in the background.
func (v *View) run() {
	// Panic recovery and logging
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in run loop", slog.Any("panic", r))
			slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
			debug.PrintStack()
		}
	}()

	slog.Info("Starting CycleView")
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		v.UpdateScreen()
	}
}

// RespWriter is a wrapper with StatsMiddleware, used for Prometheus
type RespWriter struct {
	http.ResponseWriter
	Status int
}

// WriteHeader is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) WriteHeader(status int) {
	w.Status = status
	w.ResponseWriter.WriteHeader(status)
}

// Write is a helper for StatsMiddleware, used for Prometheus
func (w *RespWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

func (v *View) StatsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &RespWriter{
			ResponseWriter: w,
			Status:         200,
		}
		next.ServeHTTP(wrapped, r)

		v.Stats.RecWWW(strconv.Itoa(wrapped.Status), r.Method)
	})
}

// NewView creates the tcell screen that displays CycleView
func NewView(s *Rs.Session, src Rp.SampleSource) (*View, error) {
	if s == nil {
		slog.Error("Could not get a Session for display")
		return nil, errors.New("counting session not found")
	}

	screen, err := GetTTY()
	if err != nil {
		slog.Error("Could not get new screen", slog.Any("Error", err))
		return nil, err
	}

	// create an attached prometheus registry
	stats := Ro.NewStatsInternal()

	view := &View{
		Session:   s,
		Source:    src,
		Screen:    screen,
		Stats:     stats,
		ChunkSize: defaultChunk,
		Policy:    Rt.ResidueHalfcycles,
	}

	view.UpdateScreen()

	return view, err
}

// StartCycleViewWithConfig is called by main to run the program.
// This also starts up the /metrics endpoint that is populated by prometheus.
func StartCycleViewWithConfig(c []Rs.ConfigFile) error {
	view, err := AssembleView(c, true)
	if err != nil {
		return err
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    ":8090",
		Handler: view.SetupMux(),
	}

	// Run the feed loop
	view.NewFeedSupervisor().Start()

	// Run display
	go view.run()

	// Run stats endpoint
	go func() {
		addr := ":8090"
		slog.Info("Starting Rainflow stats endpoint...", slog.String("Port", addr))
		if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not start stats endpoint", slog.Any("Error", err))
		}
	}()

	view.handleKeyBoardEvent()

	return err
}

// StartWebNoTUI runs the feed loop and API without a terminal.
func StartWebNoTUI(c []Rs.ConfigFile) error {
	view, err := AssembleView(c, false)
	if err != nil {
		return err
	}

	// Server for stats endpoint
	view.server = &http.Server{
		Addr:    ":8090",
		Handler: view.SetupMux(),
	}

	// Run the feed loop
	view.NewFeedSupervisor().Start()

	// Run stats endpoint (blocks)
	addr := ":8090"
	slog.Info("Starting Rainflow web server...", slog.String("Port", addr))
	if err := view.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Could not start stats endpoint", slog.Any("Error", err))
		return err
	}

	return nil
}
