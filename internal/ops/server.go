// Package ops serves the worker's HTTP surface: a liveness probe over
// the broker and database connections, and submission status lookups
// for operators. The endpoint is optional; the worker runs headless
// when no listen address is configured.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"judgeworker/internal/status"
	appErr "judgeworker/pkg/errors"
	"judgeworker/pkg/utils/response"
)

const pingTimeout = 2 * time.Second

// Pinger is a dependency with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the ops server dependencies.
type Config struct {
	Addr   string
	DB     Pinger
	Broker Pinger
	Status status.Repository
}

// NewServer builds the ops HTTP server.
func NewServer(cfg Config) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := &handlers{cfg: cfg}
	router.GET("/healthz", h.health)
	router.GET("/api/v1/status/:id", h.submissionStatus)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

type handlers struct {
	cfg Config
}

// health pings the broker and database; any failure answers 503 naming
// the unhealthy dependency.
func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	probe := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			return
		}
		checks[name] = "ok"
	}
	probe("database", h.cfg.DB)
	probe("broker", h.cfg.Broker)

	if !healthy {
		response.ErrorWithCode(c, appErr.ServiceUnavailable, "dependency unhealthy")
		return
	}
	response.Success(c, checks)
}

// submissionStatus looks up the judging state of one submission.
func (h *handlers) submissionStatus(c *gin.Context) {
	if h.cfg.Status == nil {
		response.ErrorWithCode(c, appErr.NotFound, "status store is not configured")
		return
	}
	id := c.Param("id")
	st, err := h.cfg.Status.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, st)
}
