package rainflow

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	Rt "github.com/maroda/rainflow/types"
)

// FeedSupervisor pumps chunks from the View's sample source
// into its session on a ticker, and finalizes the session
// when the source drains.
type FeedSupervisor struct {
	View     *View
	Ticker   *time.Ticker
	StopChan chan struct{}
	WG       sync.WaitGroup
}

// NewFeedSupervisor is a wrapper around the View that manages the feed goroutine
// They are strongly coupled, one knows about the other
func (v *View) NewFeedSupervisor() *FeedSupervisor {
	fs := &FeedSupervisor{
		View: v,
	}
	v.Supervisor = fs
	return fs
}

// Start the FeedSupervisor
func (f *FeedSupervisor) Start() {
	f.StopChan = make(chan struct{})
	f.Ticker = time.NewTicker(1 * time.Second)

	f.WG.Add(1)
	go func() {
		defer f.WG.Done()
		defer f.Ticker.Stop()

		for {
			select {
			case <-f.Ticker.C:
				if done := f.View.FeedOnce(); done {
					return
				}
			case <-f.StopChan:
				return
			}
		}
	}()
}

// Stop the FeedSupervisor
func (f *FeedSupervisor) Stop() {
	if f.StopChan != nil {
		close(f.StopChan)
		f.WG.Wait()
		f.StopChan = nil
	}
}

// Restart the FeedSupervisor
func (f *FeedSupervisor) Restart() {
	f.Stop()
	f.Start()
}

// FeedOnce pulls one chunk through the transform into the
// session. Returns true when the source is drained and the
// session has been finalized.
func (v *View) FeedOnce() bool {
	chunk, err := v.Source.NextChunk(v.ChunkSize)
	if errors.Is(err, io.EOF) {
		v.finishFeed()
		return true
	}
	if err != nil {
		// Only log the error, keep going otherwise
		slog.Error("Failed to read samples", slog.Any("Error", err))
		return false
	}
	if len(chunk) == 0 {
		return false
	}

	if v.Transform != nil {
		chunk, err = v.Transform.Transform(chunk)
		if err != nil {
			slog.Error("Transform failed", slog.Any("Error", err))
			return false
		}
	}

	start := time.Now()

	v.MU.Lock()
	err = v.Session.Feed(chunk)
	damage := v.Session.Damage()
	v.MU.Unlock()

	if err != nil {
		slog.Error("Feed failed", slog.Any("Error", err))
		return true
	}

	if v.Stats != nil {
		v.Stats.RecSamples(len(chunk))
		v.Stats.RecDamage(damage)
		v.Stats.RecFeedTimer(time.Since(start).Seconds())
	}
	return false
}

// finishFeed finalizes once and flushes the output.
func (v *View) finishFeed() {
	v.MU.Lock()
	state := v.Session.State()
	var err error
	if state != Rt.StateFinished && state != Rt.StateError {
		err = v.Session.Finalize(v.Policy)
	}
	v.MU.Unlock()

	if err != nil {
		slog.Error("Finalize failed", slog.Any("Error", err))
		return
	}
	if v.Output != nil {
		if err := v.Output.Flush(); err != nil {
			slog.Error("Output flush failed", slog.Any("Error", err))
		}
	}
	slog.Info("Sample source drained, session finalized")
}
