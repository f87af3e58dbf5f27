package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jelka/validator/internal/protocol"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StreamStatus is a point-in-time view of one consumed stream.
type StreamStatus struct {
	ID             string           `json:"id"`
	Header         *protocol.Header `json:"header,omitempty"`
	FramesReceived int              `json:"frames_received"`
	Cursor         int              `json:"cursor"`
	UserBytes      int              `json:"user_bytes"`
	Done           bool             `json:"done"`
	Error          string           `json:"error,omitempty"`
}

// StatusBoard holds the latest StreamStatus. The consumer loop publishes,
// HTTP handlers read.
type StatusBoard struct {
	mu      sync.RWMutex
	current StreamStatus
}

func (b *StatusBoard) Publish(s StreamStatus) {
	if s.Header != nil {
		h := *s.Header
		s.Header = &h
	}
	b.mu.Lock()
	b.current = s
	b.mu.Unlock()
}

func (b *StatusBoard) Snapshot() StreamStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.current
	if s.Header != nil {
		h := *s.Header
		s.Header = &h
	}
	return s
}

// StatusServer exposes /health, /stream and /metrics for one stream.
type StatusServer struct {
	addr     string
	router   *gin.Engine
	board    *StatusBoard
	appeared time.Time
}

func NewStatusServer(addr string, corsOrigins []string, board *StatusBoard) *StatusServer {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Logger))
	r.Use(RequestMetricsMiddleware(board.Snapshot().ID))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &StatusServer{addr: addr, router: r, board: board, appeared: time.Now()}
	s.registerRoutes()
	return s
}

func (s *StatusServer) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": "jelkavalidate",
		})
	})
	s.router.GET("/stream", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.board.Snapshot())
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *StatusServer) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
