// Package web serves the launch dashboard: the page, the update endpoint the
// page calls when a control changes, and JSON views of the chart data.
package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"launchdash/internal/aggregate"
	"launchdash/internal/chart"
	"launchdash/internal/dataset"
	"launchdash/internal/reactive"
)

// Options configure a Server.
type Options struct {
	Title    string
	Bounds   aggregate.Bounds
	Logger   *zap.Logger
	Gatherer prometheus.Gatherer
	Observer reactive.Observer
}

// Server is the dashboard HTTP surface over one read-only table.
type Server struct {
	table  *dataset.Table
	graph  *reactive.Graph
	title  string
	bounds aggregate.Bounds
	log    *zap.Logger
	router chi.Router
}

// NewServer binds the chart callbacks over t and builds the routes.
func NewServer(t *dataset.Table, o Options) (*Server, error) {
	if err := o.Bounds.Validate(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	g := reactive.New()
	if err := Bind(g, t, o.Bounds); err != nil {
		return nil, errors.Wrap(err, "bind callbacks")
	}
	if o.Observer != nil {
		g.Observe(o.Observer)
	}

	s := &Server{
		table:  t,
		graph:  g,
		title:  o.Title,
		bounds: o.Bounds,
		log:    log.Named("web"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/_dash-layout", s.handleLayout)
	r.Post("/_dash-update", s.handleUpdate)
	r.Get("/api/sites", s.handleSites)
	r.Get("/api/pie", s.handlePie)
	r.Get("/api/scatter", s.handleScatter)
	r.Get("/export", s.handleExport)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	if o.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ========== Layout ==========

// Option is one dropdown entry.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Layout describes the page controls and the callback graph.
type Layout struct {
	Title     string              `json:"title"`
	Dropdown  DropdownLayout      `json:"dropdown"`
	Slider    SliderLayout        `json:"slider"`
	Callbacks []reactive.Callback `json:"callbacks"`
}

// DropdownLayout is the site selector.
type DropdownLayout struct {
	ID          string   `json:"id"`
	Options     []Option `json:"options"`
	Value       string   `json:"value"`
	Placeholder string   `json:"placeholder"`
}

// SliderLayout is the payload range selector.
type SliderLayout struct {
	ID    string     `json:"id"`
	Min   float64    `json:"min"`
	Max   float64    `json:"max"`
	Step  float64    `json:"step"`
	Marks []float64  `json:"marks"`
	Value [2]float64 `json:"value"`
}

// SiteOptions lists "All Sites" followed by every site of the table in
// first-seen order.
func SiteOptions(t *dataset.Table) []Option {
	sites := t.Sites()
	opts := make([]Option, 0, len(sites)+1)
	opts = append(opts, Option{Label: "All Sites", Value: string(aggregate.AllSites)})
	for _, s := range sites {
		opts = append(opts, Option{Label: s, Value: s})
	}
	return opts
}

func (s *Server) layout() Layout {
	def := aggregate.DefaultRange(s.table, s.bounds)
	return Layout{
		Title: s.title,
		Dropdown: DropdownLayout{
			ID:          SiteDropdownID,
			Options:     SiteOptions(s.table),
			Value:       string(aggregate.AllSites),
			Placeholder: "Select a Launch Site here",
		},
		Slider: SliderLayout{
			ID:    PayloadSliderID,
			Min:   s.bounds.Min,
			Max:   s.bounds.Max,
			Step:  s.bounds.Step,
			Marks: s.bounds.Marks(),
			Value: [2]float64{def.Low, def.High},
		},
		Callbacks: s.graph.Callbacks(),
	}
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.layout())
}

// ========== Update ==========

// UpdateRequest is posted by the page when controls change. An empty
// Changed list asks for every output, as on first render.
type UpdateRequest struct {
	Changed []string                   `json:"changed"`
	Inputs  map[string]json.RawMessage `json:"inputs"`
}

// UpdateResponse carries the recomputed outputs.
type UpdateResponse struct {
	Outputs reactive.Result `json:"outputs"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	changed := make([]reactive.Dependency, 0, len(req.Changed))
	for _, c := range req.Changed {
		d, err := reactive.ParseDependency(c)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		changed = append(changed, d)
	}

	var (
		out reactive.Result
		err error
	)
	if len(changed) == 0 {
		out, err = s.graph.Resolve(r.Context(), reactive.State(req.Inputs))
	} else {
		out, err = s.graph.Dispatch(r.Context(), changed, reactive.State(req.Inputs))
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, UpdateResponse{Outputs: out})
}

// ========== Data API ==========

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SiteOptions(s.table))
}

func (s *Server) handlePie(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, aggregate.Pie(s.table, siteParam(r)))
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	rng, err := s.rangeParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, aggregate.Scatter(s.table, siteParam(r), rng))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	rng, err := s.rangeParams(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	site := siteParam(r)
	pie := chart.NewPie(aggregate.Pie(s.table, site))
	sc := chart.NewScatter(aggregate.Scatter(s.table, site, rng))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderPage(w, s.title, pie, sc); err != nil {
		s.log.Error("export failed", zap.Error(err))
	}
}

func siteParam(r *http.Request) aggregate.Site {
	if v := r.URL.Query().Get("site"); v != "" {
		return aggregate.Site(v)
	}
	return aggregate.AllSites
}

// rangeParams reads low and high, each defaulting to the slider's initial
// value, and clamps the result to the slider.
func (s *Server) rangeParams(r *http.Request) (aggregate.PayloadRange, error) {
	def := aggregate.DefaultRange(s.table, s.bounds)
	low, err := floatParam(r, "low", def.Low)
	if err != nil {
		return aggregate.PayloadRange{}, err
	}
	high, err := floatParam(r, "high", def.High)
	if err != nil {
		return aggregate.PayloadRange{}, err
	}
	rng, err := aggregate.NewPayloadRange(low, high)
	if err != nil {
		return aggregate.PayloadRange{}, err
	}
	return s.bounds.Clamp(rng), nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.Mark(errors.Newf("%s=%q is not a number", name, v), errBadInput)
	}
	return f, nil
}

// ========== Utilities ==========

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aggregate.ErrInvalidRange),
		errors.Is(err, reactive.ErrUnknownInput),
		errors.Is(err, reactive.ErrMissingInput),
		errors.Is(err, errBadInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
