// Package httpadapter exposes the service's HTTP surface: health,
// readiness, metrics, the latest analysis as JSON, and a debug chart.
package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/sounding-skewt/internal/diagram"
	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// AnalysisSource is what the server reads analyses from. The pipeline
// implements it.
type AnalysisSource interface {
	CheckReadiness(ctx context.Context) error
	Latest() (domain.Analysis, bool)
}

// Server exposes health, readiness, metrics, and analysis HTTP endpoints.
type Server struct {
	httpServer *http.Server
	source     AnalysisSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /v1/sounding, and /debug/skewt routes.
func NewServer(addr string, source AnalysisSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		source: source,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/sounding", s.handleSounding)
	mux.HandleFunc("GET /debug/skewt", s.handleSkewtChart)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := s.source.CheckReadiness(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleSounding serves the latest analysis as plot-ready diagram JSON.
func (s *Server) handleSounding(w http.ResponseWriter, _ *http.Request) {
	analysis, ok := s.source.Latest()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no sounding analyzed yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, diagram.Build(analysis))
}

// handleSkewtChart renders the latest analysis as an HTML line chart:
// pressure on the X axis (surface first), temperature curves on Y.
func (s *Server) handleSkewtChart(w http.ResponseWriter, _ *http.Request) {
	analysis, ok := s.source.Latest()
	if !ok {
		http.Error(w, "no sounding analyzed yet", http.StatusNotFound)
		return
	}
	d := diagram.Build(analysis)

	categories := make([]string, len(d.Pressure))
	env := make([]opts.LineData, len(d.Pressure))
	dew := make([]opts.LineData, len(d.Pressure))
	parcel := make([]opts.LineData, len(d.Pressure))
	for i := range d.Pressure {
		categories[i] = fmt.Sprintf("%.0f", d.Pressure[i])
		env[i] = opts.LineData{Value: d.Temperature[i]}
		dew[i] = opts.LineData{Value: d.Dewpoint[i]}
		parcel[i] = opts.LineData{Value: d.ParcelTemperature[i]}
	}

	subtitle := fmt.Sprintf("station=%s observed=%s lcl=%.1f hPa cape=%s cin=%s",
		d.Station, d.ObservedAt.Format(time.RFC3339), d.LCL.Pressure,
		formatEnergy(d.CAPE), formatEnergy(d.CIN))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sounding Profile", Theme: "dark", Width: "1100px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Upper-Air Sounding", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Pressure (hPa)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Temperature (C)", NameLocation: "middle", NameGap: 35}),
	)
	line.SetXAxis(categories).
		AddSeries("Temperature", env).
		AddSeries("Dewpoint", dew).
		AddSeries("Parcel", parcel)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func formatEnergy(v *float64) string {
	if v == nil {
		return "unavailable"
	}
	return fmt.Sprintf("%.1f J/kg", *v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
