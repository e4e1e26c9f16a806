package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// showWaveform renders a quick line plot (HTML) of the current snapshot
// using go-echarts. This is a debugging-only endpoint to eyeball the filtered
// signal and threshold without the browser UI.
// Query params:
//   - window (optional; defaults to the configured plot window)
func (s *Server) showWaveform(w http.ResponseWriter, r *http.Request) {
	n := s.plotWindow
	if v := r.URL.Query().Get("window"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	snap, ok := s.stream.Snapshot(n)
	if !ok {
		s.writeJSONError(w, http.StatusNotFound, "no samples yet")
		return
	}

	x := make([]string, len(snap.Times))
	signal := make([]opts.LineData, len(snap.Values))
	threshold := make([]opts.LineData, len(snap.Values))
	for i := range snap.Values {
		x[i] = strconv.FormatInt(snap.Times[i], 10)
		signal[i] = opts.LineData{Value: snap.Values[i]}
		threshold[i] = opts.LineData{Value: snap.Threshold}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "ECG Waveform", Theme: "dark", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "ECG Waveform", Subtitle: fmt.Sprintf("samples=%d threshold=%.3f", len(snap.Values), snap.Threshold)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (ms)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "amplitude"}),
	)

	line.SetXAxis(x).
		AddSeries("signal", signal).
		AddSeries("threshold", threshold)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
