// Package api serves the live ECG waveform and detector state over HTTP:
// REST endpoints for snapshots and control, SSE for streaming updates.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/cardio.report/internal/bridge"
	"github.com/banshee-data/cardio.report/internal/db"
	"github.com/banshee-data/cardio.report/internal/ecg"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	poller     *bridge.Poller
	stream     *ecg.Stream
	db         *db.DB
	plotWindow int
}

// NewServer wires the HTTP layer to the poller and stream. The db may be nil
// when beat persistence is disabled.
func NewServer(poller *bridge.Poller, stream *ecg.Stream, database *db.DB, plotWindow int) *Server {
	if plotWindow <= 0 {
		plotWindow = 800
	}
	return &Server{
		poller:     poller,
		stream:     stream,
		db:         database,
		plotWindow: plotWindow,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/snapshot", s.showSnapshot)
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/beats", s.listBeats)
	mux.HandleFunc("/api/stream", s.streamEvents)
	mux.HandleFunc("/debug/waveform", s.showWaveform)
	return mux
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// showSnapshot returns the trailing waveform window with session-relative
// timestamps and the current detection threshold.
func (s *Server) showSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	n := s.plotWindow
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", v))
			return
		}
		n = parsed
	}

	snap, ok := s.stream.Snapshot(n)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no samples yet")
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, s.poller.Meta())
}

// filterRequest mirrors ecg.FilterConfig with pointer fields so clients can
// toggle a subset of stages without restating the rest.
type filterRequest struct {
	Notch    *bool `json:"notch,omitempty"`
	Lowpass  *bool `json:"lowpass,omitempty"`
	Highpass *bool `json:"highpass,omitempty"`
	Adaptive *bool `json:"adaptive,omitempty"`
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, s.stream.Filters())
	case http.MethodPost:
		var req filterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid filter payload: %v", err))
			return
		}

		filters := s.stream.Filters()
		if req.Notch != nil {
			filters.Notch = *req.Notch
		}
		if req.Lowpass != nil {
			filters.Lowpass = *req.Lowpass
		}
		if req.Highpass != nil {
			filters.Highpass = *req.Highpass
		}
		if req.Adaptive != nil {
			filters.Adaptive = *req.Adaptive
		}
		s.stream.SetFilters(filters)
		s.writeJSON(w, filters)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleReset clears the whole pipeline and, when persistence is enabled,
// opens a fresh recording session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.poller.ResetSession()

	resp := map[string]interface{}{"cleared": true}
	if s.db != nil {
		id, err := s.db.StartSession(r.FormValue("notes"))
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to start session: %v", err))
			return
		}
		resp["session_id"] = id
	}
	s.writeJSON(w, resp)
}

func (s *Server) listBeats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotFound, "beat persistence disabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = parsed
	}

	beats, err := s.db.ListBeats(r.URL.Query().Get("session"), limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list beats: %v", err))
		return
	}
	if beats == nil {
		beats = []db.BeatRow{}
	}
	s.writeJSON(w, beats)
}

// streamEvents pushes live updates over Server-Sent Events: a named "delta"
// event per ingested frame and a "meta" event with the link state.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, events := s.poller.Subscribe()
	defer s.poller.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Channel closed, exit gracefully
				return
			}
			delta, err := json.Marshal(ev.Update)
			if err != nil {
				continue
			}
			meta, err := json.Marshal(ev.Meta)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: delta\ndata: %s\n\nevent: meta\ndata: %s\n\n", delta, meta); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
