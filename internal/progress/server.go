// Package progress serves the pipeline's live completion state over
// HTTP, generalizing the teacher's gin+cors API surface (main.go) from
// a chord-lookup API into a single read-only progress endpoint.
package progress

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dojevou/midi-pipeline/internal/pipeline"
)

// Source is anything that can report the current pipeline Snapshot.
// *pipeline.Orchestrator satisfies this.
type Source interface {
	Snapshot() pipeline.Snapshot
}

// Server exposes GET /progress and GET /health over HTTP, per spec §6.
type Server struct {
	src  Source
	http *http.Server
}

// NewServer builds a gin engine with the same CORS policy the teacher's
// main.go applies (CORS_ORIGINS env var, comma-separated, defaulting to
// "*" for local development) and binds it to addr.
func NewServer(addr string, src Source) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	originsEnv := os.Getenv("CORS_ORIGINS")
	if originsEnv == "" {
		originsEnv = "*"
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins: strings.Split(originsEnv, ","),
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/progress", func(c *gin.Context) {
		snap := src.Snapshot()
		stages := make(gin.H, len(snap.StageNames))
		for i, name := range snap.StageNames {
			stages[name] = snap.StagePct[i]
		}
		c.JSON(http.StatusOK, gin.H{
			"overall_pct": snap.OverallPct,
			"stages":      stages,
			"total_queued": snap.TotalQueued,
		})
	})

	return &Server{
		src: src,
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
// http.ErrServerClosed is swallowed since it signals a clean Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
