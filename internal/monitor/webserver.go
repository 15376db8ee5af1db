// Package monitor serves experiment progress, results and the density chart
// over HTTP.
package monitor

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/packing.report/internal/chart"
	"github.com/banshee-data/packing.report/internal/httputil"
	"github.com/banshee-data/packing.report/internal/lab"
	"github.com/banshee-data/packing.report/internal/monitoring"
	"github.com/banshee-data/packing.report/internal/results"
	"github.com/banshee-data/packing.report/internal/version"
)

//go:embed status.html
var StatusHTML embed.FS

// Lab is the part of *lab.Lab the server reads from and drives.
type Lab interface {
	Status() lab.Status
	Groups() []results.Group
	Export(w io.Writer) error
	TerminateSweep()
	Next()
	Prev()
	NextGroup()
	Selected() (results.Result, bool)
}

var _ Lab = (*lab.Lab)(nil)

// WebServer handles the HTTP interface for monitoring experiments.
type WebServer struct {
	address   string
	lab       Lab
	server    *http.Server
	startedAt time.Time
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	Lab     Lab
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address:   config.Address,
		lab:       config.Lab,
		startedAt: time.Now(),
	}

	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.setupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return ws
}

// Start serves until ctx is cancelled, then shuts down gracefully. It
// returns early if the listener cannot be opened.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}

	monitoring.Logf("HTTP server routine stopped")
	return nil
}

// setupRoutes configures the HTTP routes and handlers
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatusPage)
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/results", ws.handleResults)
	mux.HandleFunc("/api/results.csv", ws.handleResultsCSV)
	mux.HandleFunc("/api/cursor", ws.handleCursor)
	mux.HandleFunc("/api/sweep/terminate", ws.handleSweepTerminate)
	mux.HandleFunc("/chart", ws.handleChart)

	return mux
}

// Handler exposes the routes for embedding or tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// handleHealth handles the health check endpoint
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "packing", "version": %q, "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// handleStatusPage renders the human-readable status page
func (ws *WebServer) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	tmpl, err := template.ParseFS(StatusHTML, "status.html")
	if err != nil {
		http.Error(w, "Error loading template: "+err.Error(), http.StatusInternalServerError)
		return
	}

	st := ws.lab.Status()
	selected, ok := ws.lab.Selected()
	data := struct {
		Status   lab.Status
		Percent  string
		Uptime   string
		Groups   []results.Summary
		Selected string
	}{
		Status:  st,
		Percent: fmt.Sprintf("%.0f%%", st.Fraction*100),
		Uptime:  time.Since(ws.startedAt).Round(time.Second).String(),
		Groups:  results.Summarize(ws.lab.Groups()),
	}
	if ok {
		data.Selected = selected.Detail()
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleStatus returns progress and sweep state as JSON
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httputil.WriteJSONOK(w, ws.lab.Status())
}

// handleResults returns the classified groups
func (ws *WebServer) handleResults(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	groups := ws.lab.Groups()
	httputil.WriteJSONOK(w, struct {
		Groups    []results.Group   `json:"groups"`
		Summaries []results.Summary `json:"summaries"`
	}{
		Groups:    groups,
		Summaries: results.Summarize(groups),
	})
}

// handleResultsCSV downloads the result log in the import format
func (ws *WebServer) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}

	var buf bytes.Buffer
	if err := ws.lab.Export(&buf); err != nil {
		if errors.Is(err, results.ErrNoResults) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to export results: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="experiment-results.csv"`)
	w.Write(buf.Bytes())
}

// handleCursor moves the result cursor with ?move=next|prev|group on POST
// and returns the selection.
func (ws *WebServer) handleCursor(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodPost {
		switch move := r.URL.Query().Get("move"); move {
		case "next":
			ws.lab.Next()
		case "prev":
			ws.lab.Prev()
		case "group":
			ws.lab.NextGroup()
		default:
			httputil.BadRequest(w, fmt.Sprintf("unknown move %q", move))
			return
		}
	}

	resp := struct {
		Cursor   results.Cursor  `json:"cursor"`
		Selected *results.Result `json:"selected,omitempty"`
		Detail   string          `json:"detail,omitempty"`
	}{Cursor: ws.lab.Status().Cursor}
	if sel, ok := ws.lab.Selected(); ok {
		resp.Selected = &sel
		resp.Detail = sel.Detail()
	}
	httputil.WriteJSONOK(w, resp)
}

// handleSweepTerminate asks a running sweep to stop after the current run
func (ws *WebServer) handleSweepTerminate(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}
	ws.lab.TerminateSweep()
	httputil.WriteJSONOK(w, map[string]any{"status": "terminating", "sweep": ws.lab.Status().Sweep})
}

// handleChart renders the density scatter with go-echarts
func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	groups := ws.lab.Groups()
	runs := 0
	for _, g := range groups {
		runs += len(g.Results)
	}

	var buf bytes.Buffer
	if err := chart.WriteHTML(&buf, groups, fmt.Sprintf("runs=%d groups=%d", runs, len(groups))); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Close shuts down the web server
func (ws *WebServer) Close() error {
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
