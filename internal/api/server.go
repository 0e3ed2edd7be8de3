// Package api exposes the optimizer over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
)

// OptimizeRequest is the body of POST /api/v1/optimize. Settings missing
// from the request fall back to the server defaults.
type OptimizeRequest struct {
	Pieces   []model.ProfilePiece `json:"pieces" binding:"required"`
	Bars     []model.ProfileBar   `json:"bars"`
	Settings *model.Settings      `json:"settings,omitempty"`
}

// OptimizeResponse carries the result and one entry per model that could
// not be solved.
type OptimizeResponse struct {
	Result  model.OptimizeResult `json:"result"`
	Errors  []string             `json:"errors"`
	Elapsed string               `json:"elapsed"`
}

// CompareRequest is the body of POST /api/v1/compare. Without scenarios the
// default what-if set is built from the request settings.
type CompareRequest struct {
	OptimizeRequest
	Scenarios []engine.ComparisonScenario `json:"scenarios,omitempty"`
}

// CompareResponse lists one entry per scenario in request order.
type CompareResponse struct {
	Results []engine.ComparisonResult `json:"results"`
	Elapsed string                    `json:"elapsed"`
}

// Server handles optimization requests. Each request runs its own
// optimizer, so concurrent requests share no solver state.
type Server struct {
	defaults model.Settings
	router   *gin.Engine
}

// NewServer builds the router with the given default settings.
func NewServer(defaults model.Settings) *Server {
	s := &Server{defaults: defaults.WithDefaults()}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/api/v1")
	v1.POST("/optimize", s.handleOptimize)
	v1.POST("/compare", s.handleCompare)

	s.router = r
	return s
}

// Handler returns the HTTP handler, for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on addr until the server fails.
func (s *Server) Run(addr string) error {
	log.Infof("listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleOptimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, models, err := s.prepare(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	result, err := engine.New(settings).Optimize(c.Request.Context(), models)
	switch {
	case errors.Is(err, model.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil && !onlyInfeasible(err):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, OptimizeResponse{
		Result:  result,
		Errors:  errorStrings(err),
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
	})
}

func (s *Server) handleCompare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, models, err := s.prepare(req.OptimizeRequest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	scenarios := req.Scenarios
	if len(scenarios) == 0 {
		scenarios = engine.BuildDefaultScenarios(settings)
	}
	for i, sc := range scenarios {
		if _, err := model.ParseAlgorithm(string(sc.Settings.Algorithm)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "scenario": sc.Name})
			return
		}
		scenarios[i].Settings = sc.Settings.WithDefaults()
	}

	start := time.Now()
	results := engine.CompareScenarios(c.Request.Context(), scenarios, models)
	c.JSON(http.StatusOK, CompareResponse{
		Results: results,
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
	})
}

// prepare resolves the effective settings and groups the request into models.
func (s *Server) prepare(req OptimizeRequest) (model.Settings, []model.CutModel, error) {
	settings := s.defaults
	if req.Settings != nil {
		settings = req.Settings.WithDefaults()
	}
	alg, err := model.ParseAlgorithm(string(settings.Algorithm))
	if err != nil {
		return settings, nil, err
	}
	settings.Algorithm = alg

	models := model.BuildCutModels(req.Pieces, req.Bars)
	if len(models) == 0 {
		return settings, nil, errors.New("request contains no pieces")
	}
	return settings, models, nil
}

// onlyInfeasible reports whether every error joined into err is an
// infeasible model.
func onlyInfeasible(err error) bool {
	for _, e := range flatten(err) {
		if !errors.Is(e, model.ErrInfeasibleModel) {
			return false
		}
	}
	return true
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func errorStrings(err error) []string {
	out := []string{}
	for _, e := range flatten(err) {
		out = append(out, e.Error())
	}
	return out
}

// requestLogger logs each request through glog instead of gin's writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.V(1).Infof("%s %s -> %d in %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
