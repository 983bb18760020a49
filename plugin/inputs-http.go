package plugin

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	webTimeout = 10 * time.Second
)

type HTTPClient interface {
	Get(string) (*http.Response, error)
}

// Shared HTTP Client
var sharedHTTPClient = &http.Client{
	Timeout: webTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	},
}

// SingleFetchWithClient handles the messy business of the HTTP connection
// and is testable with dependency injection, called by SingleFetch
func SingleFetchWithClient(url string, c HTTPClient) (int, []byte, error) {
	resp, err := c.Get(url)
	if err != nil {
		slog.Error("Fetch Error", slog.Any("Error", err))
		return 0, nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Could not read body", slog.Any("Error", err))
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Close Error", slog.Any("Error", err))
			return
		}
	}()

	return resp.StatusCode, body, err
}

// SingleFetch returns the Response Code, raw byte stream body, and error
// This uses a Shared HTTP Client:
// - to reuse existing endpoint connections
// - to avoid stale connections that eat up OS FDs
func SingleFetch(url string) (int, []byte, error) {
	return SingleFetchWithClient(url, sharedHTTPClient)
}

// ParseSampleLines streams newline-separated floats off an
// endpoint body, skipping whitespace and comments.
func ParseSampleLines(reader io.Reader) ([]float64, error) {
	var samples []float64
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// ignore whitespace and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				slog.Error("WARNING: Invalid sample", slog.String("token", field))
				continue
			}
			samples = append(samples, v)
		}
	}

	if err := scanner.Err(); err != nil {
		slog.Error("Problem scanning input", slog.Any("Error", err))
		return nil, fmt.Errorf("scanning error: %w", err)
	}

	return samples, nil
}

// HTTPSource polls a sample endpoint and hands the decoded
// floats out chunk by chunk. Leftovers past max are kept for
// the next call so nothing is dropped between polls.
type HTTPSource struct {
	URL     string
	Client  HTTPClient
	pending []float64
	drained bool
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: sharedHTTPClient}
}

func (hs *HTTPSource) NextChunk(max int) ([]float64, error) {
	if len(hs.pending) == 0 && !hs.drained {
		code, body, err := SingleFetchWithClient(hs.URL, hs.Client)
		if err != nil {
			return nil, err
		}
		if code == http.StatusNoContent || code == http.StatusGone {
			hs.drained = true
		} else if code != http.StatusOK {
			return nil, fmt.Errorf("sample endpoint returned %d", code)
		} else {
			samples, err := ParseSampleLines(bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			hs.pending = samples
		}
	}

	if len(hs.pending) == 0 && hs.drained {
		return nil, io.EOF
	}

	n := max
	if n > len(hs.pending) {
		n = len(hs.pending)
	}
	chunk := hs.pending[:n]
	hs.pending = hs.pending[n:]
	return chunk, nil
}

func (hs *HTTPSource) Type() string { return "http" }

// SliceSource replays an in-memory series, the source used by
// file loads and tests.
type SliceSource struct {
	Samples []float64
	offset  int
}

func (ss *SliceSource) NextChunk(max int) ([]float64, error) {
	if ss.offset >= len(ss.Samples) {
		return nil, io.EOF
	}
	end := ss.offset + max
	if end > len(ss.Samples) {
		end = len(ss.Samples)
	}
	chunk := ss.Samples[ss.offset:end]
	ss.offset = end
	return chunk, nil
}

func (ss *SliceSource) Type() string { return "slice" }
