// Package api exposes the latest PageRank scores over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	scoresEndpoint  = "/scores"
	scoreEndpoint   = "/scores/{id}"
	rankingEndpoint = "/ranking"
	statusEndpoint  = "/status"
	metricsEndpoint = "/metrics"

	defaultRankingLimit = 10
)

// Config encapsulates the settings for configuring the API service.
type Config struct {
	// The store holding the latest ranking results.
	Store *Store

	// The address to listen for incoming requests.
	ListenAddr string

	// The number of ranking entries returned when the request does not
	// specify a limit. If not specified, a default value of 10 is used.
	DefaultRankingLimit int

	// If set, the collected metrics are exposed under /metrics.
	Gatherer prometheus.Gatherer

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Store == nil {
		err = multierror.Append(err, xerrors.Errorf("score store has not been provided"))
	}
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.DefaultRankingLimit <= 0 {
		cfg.DefaultRankingLimit = defaultRankingLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service serves the contents of a Store as JSON documents.
type Service struct {
	cfg    Config
	router *mux.Router
}

// NewService creates a new API service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("api service: config validation failed: %w", err)
	}

	svc := &Service{
		cfg:    cfg,
		router: mux.NewRouter(),
	}

	svc.router.HandleFunc(scoresEndpoint, svc.listScores).Methods("GET")
	svc.router.HandleFunc(scoreEndpoint, svc.getScore).Methods("GET")
	svc.router.HandleFunc(rankingEndpoint, svc.getRanking).Methods("GET")
	svc.router.HandleFunc(statusEndpoint, svc.getStatus).Methods("GET")
	if cfg.Gatherer != nil {
		svc.router.Handle(metricsEndpoint, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	svc.router.NotFoundHandler = http.HandlerFunc(svc.notFound)
	return svc, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "api" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return err
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    svc.cfg.ListenAddr,
		Handler: svc.router,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.cfg.Logger.WithField("addr", svc.cfg.ListenAddr).Info("starting API server")
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Ignore error when the server shuts down.
		err = nil
	}

	return err
}

type scoresResponse struct {
	RunID       string             `json:"run_id"`
	State       string             `json:"state"`
	Iterations  int                `json:"iterations"`
	Residual    float64            `json:"residual"`
	PublishedAt time.Time          `json:"published_at"`
	Scores      map[string]float64 `json:"scores"`
}

func (svc *Service) listScores(w http.ResponseWriter, _ *http.Request) {
	res, publishedAt := svc.cfg.Store.Latest()
	if res == nil {
		svc.writeError(w, http.StatusServiceUnavailable, "no scores have been published yet")
		return
	}

	svc.writeJSON(w, http.StatusOK, scoresResponse{
		RunID:       res.RunID.String(),
		State:       res.State.String(),
		Iterations:  res.Iterations,
		Residual:    res.Residual,
		PublishedAt: publishedAt.UTC(),
		Scores:      res.Scores,
	})
}

type scoreResponse struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (svc *Service) getScore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	score, found := svc.cfg.Store.Score(id)
	if !found {
		svc.writeError(w, http.StatusNotFound, "unknown vertex "+strconv.Quote(id))
		return
	}

	svc.writeJSON(w, http.StatusOK, scoreResponse{ID: id, Score: score})
}

func (svc *Service) getRanking(w http.ResponseWriter, r *http.Request) {
	if res, _ := svc.cfg.Store.Latest(); res == nil {
		svc.writeError(w, http.StatusServiceUnavailable, "no scores have been published yet")
		return
	}

	// A zero limit returns the full ranking.
	limit := svc.cfg.DefaultRankingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			svc.writeError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		limit = n
	}

	svc.writeJSON(w, http.StatusOK, svc.cfg.Store.Ranking(limit))
}

type statusResponse struct {
	Ready       bool      `json:"ready"`
	RunID       string    `json:"run_id,omitempty"`
	State       string    `json:"state,omitempty"`
	Iterations  int       `json:"iterations"`
	Residual    float64   `json:"residual"`
	Vertices    int       `json:"vertices"`
	PublishedAt time.Time `json:"published_at"`
}

func (svc *Service) getStatus(w http.ResponseWriter, _ *http.Request) {
	res, publishedAt := svc.cfg.Store.Latest()
	if res == nil {
		svc.writeJSON(w, http.StatusOK, statusResponse{})
		return
	}

	svc.writeJSON(w, http.StatusOK, statusResponse{
		Ready:       true,
		RunID:       res.RunID.String(),
		State:       res.State.String(),
		Iterations:  res.Iterations,
		Residual:    res.Residual,
		Vertices:    len(res.Scores),
		PublishedAt: publishedAt.UTC(),
	})
}

func (svc *Service) notFound(w http.ResponseWriter, _ *http.Request) {
	svc.writeError(w, http.StatusNotFound, "page not found")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (svc *Service) writeError(w http.ResponseWriter, status int, msg string) {
	svc.writeJSON(w, status, errorResponse{Error: msg})
}

func (svc *Service) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		svc.cfg.Logger.WithField("err", err).Warn("unable to encode response")
	}
}
