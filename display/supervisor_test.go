package rainflow_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	Rs "github.com/maroda/rainflow/count"
	Rd "github.com/maroda/rainflow/display"
	Rp "github.com/maroda/rainflow/plugin"
	Rt "github.com/maroda/rainflow/types"
)

func TestFeedSupervisor(t *testing.T) {
	t.Run("Creates new struct", func(t *testing.T) {
		view := makeFeedView(t)
		fs := view.NewFeedSupervisor()

		// Check if the view is the same
		if fs.View != view {
			t.Errorf("NewFeedSupervisor() view = %v, want %v", fs.View, view)
		}
	})

	t.Run("Feeds with Supervisor", func(t *testing.T) {
		view := makeFeedView(t)
		fs := view.NewFeedSupervisor()
		fs.Start()
		defer fs.Stop()

		if fs.StopChan == nil {
			t.Errorf("StopChan() should be initialized, not nil")
		}
		if fs.Ticker == nil {
			t.Errorf("Ticker() should be initialized, not nil")
		}

		// Allow for one feed tick (every 1s) to happen
		time.Sleep(2 * time.Second)

		view.MU.Lock()
		fed := view.Session.SamplesFed()
		view.MU.Unlock()
		if fed == 0 {
			t.Errorf("Expected samples after feed tick, got 0")
		}
	})

	t.Run("Stops with Supervisor", func(t *testing.T) {
		view := makeFeedView(t)
		fs := view.NewFeedSupervisor()
		fs.Start()

		done := make(chan struct{})
		go func() {
			fs.Stop()
			close(done)
		}()

		select {
		case <-done:
		// Success! Stop() returned
		case <-time.After(2 * time.Second):
			t.Fatalf("Feeding did not stop after timeout")
		}
	})

	t.Run("Restarts Feed Supervisor", func(t *testing.T) {
		view := makeFeedView(t)
		fs := view.NewFeedSupervisor()
		fs.Start()
		fs.Restart()
		fs.Stop()
		// If we get this far there's no panic and the ticker stopped
	})
}

func TestView_FeedOnce(t *testing.T) {
	view := makeFeedView(t)
	view.ChunkSize = 8

	// 19 samples at chunk size 8 need three pulls, the fourth
	// drains the source and finalizes.
	var done bool
	for i := 0; i < 10 && !done; i++ {
		done = view.FeedOnce()
	}
	if !done {
		t.Fatalf("FeedOnce never drained the source")
	}

	if got := view.Session.State(); got != Rt.StateFinished {
		t.Errorf("got state %d, want %d", got, Rt.StateFinished)
	}
	if got := view.Session.SamplesFed(); got != uint64(len(testSeries)) {
		t.Errorf("got %d samples, want %d", got, len(testSeries))
	}

	// Half-cycle residue policy on top of the seven closures
	m := view.Session.MatrixSnapshot()
	if got := m.Sum(); got != 18 {
		t.Errorf("got matrix sum %d, want 18", got)
	}
}

func TestAssembleView(t *testing.T) {
	dir := t.TempDir()
	sampleFile := filepath.Join(dir, "samples.txt")
	if err := os.WriteFile(sampleFile, []byte("2 5 3 6 2 4 1 6 1 4 1 5 3 6 3 6 1 5 2"), 0644); err != nil {
		t.Fatalf("could not write sample file: %v", err)
	}

	conf := Rs.ConfigFile{
		ID:         "assemble-test",
		Classes:    6,
		ClassWidth: 1,
		Offset:     0.5,
		Hysteresis: 1,
		Source:     "file",
		SourceURL:  sampleFile,
		Output:     "badger",
		OutputDir:  filepath.Join(dir, "cycles"),
	}

	view, err := Rd.AssembleView([]Rs.ConfigFile{conf}, false)
	assertError(t, err, nil)
	defer view.Output.Close()

	if view.Output.Type() != "BadgerDB" {
		t.Errorf("got output type %q, want BadgerDB", view.Output.Type())
	}

	// Pump the whole file through
	var done bool
	for i := 0; i < 10 && !done; i++ {
		done = view.FeedOnce()
	}
	if !done {
		t.Fatalf("FeedOnce never drained the source")
	}

	// Seven full closures plus four residue halves went to the output
	events, err := view.Output.QueryRange(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	assertError(t, err, nil)
	if len(events) != 11 {
		t.Errorf("got %d stored cycles, want 11", len(events))
	}
}

func TestAssembleView_NoEntries(t *testing.T) {
	_, err := Rd.AssembleView(nil, false)
	if err == nil {
		t.Fatal("expected an error for empty config")
	}
}

// Helpers //

// View fed by an in-memory source, no screen or output adapter
func makeFeedView(t *testing.T) *Rd.View {
	t.Helper()
	return &Rd.View{
		Session:   makeTestSession(t),
		Source:    &Rp.SliceSource{Samples: testSeries},
		ChunkSize: 256,
		Policy:    Rt.ResidueHalfcycles,
	}
}
