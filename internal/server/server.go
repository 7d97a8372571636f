// Package server is the web front-end: start and stop a batch, poll its status and
// stream progress over server-sent events.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go-linkedin-scraper/internal/app"
	"go-linkedin-scraper/internal/batch"
	"go-linkedin-scraper/internal/config"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 15 * time.Second

//go:embed index.html
var indexHTML []byte

var ErrRunInProgress = errors.New("a run is already in progress")

// Scraper runs one batch; *app.Runner is the production implementation.
type Scraper interface {
	Run(ctx context.Context, ro config.RunOptions, progress batch.ProgressFunc) (*app.Outcome, error)
}

// StartRequest is the body of POST /api/start.
type StartRequest struct {
	URLs           []string `json:"urls"`
	JSONDir        string   `json:"jsonDir"`
	MDDir          string   `json:"mdDir"`
	CreateMarkdown *bool    `json:"createMarkdown"`
	Headless       *bool    `json:"headless"`
}

type Server struct {
	scraper Scraper
	cfg     *config.Config
	hub     *Hub
	log     *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

func New(scraper Scraper, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{scraper: scraper, cfg: cfg, hub: NewHub(), log: log, now: time.Now}
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := r.Group("/api")
	api.POST("/start", s.handleStart)
	api.POST("/stop", s.handleStop)
	api.GET("/status", s.handleStatus)
	api.GET("/events", s.handleEvents)
	return r
}

func (s *Server) handleStart(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	urls, err := batch.ParseURLs(strings.NewReader(strings.Join(req.URLs, "\n")))
	if err != nil || len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no urls given"})
		return
	}

	ro := s.runOptions(req, urls)
	if err := s.Start(ro); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true, "total": len(urls)})
}

func (s *Server) handleStop(c *gin.Context) {
	if !s.Stop() {
		c.JSON(http.StatusConflict, gin.H{"error": "no run in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"stopping": true})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status())
}

func (s *Server) handleEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"running\":%t}\n\n", s.Status().Running)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) runOptions(req StartRequest, urls []string) config.RunOptions {
	ro := config.RunOptions{
		URLs:        urls,
		OutputDir:   s.cfg.OutputDir,
		MarkdownDir: s.cfg.MarkdownDir,
		Markdown:    s.cfg.WriteMarkdown,
		Headless:    s.cfg.Headless,
	}
	if req.JSONDir != "" {
		ro.OutputDir = req.JSONDir
	}
	if req.MDDir != "" {
		ro.MarkdownDir = req.MDDir
	}
	if req.CreateMarkdown != nil {
		ro.Markdown = *req.CreateMarkdown
	}
	if req.Headless != nil {
		ro.Headless = *req.Headless
	}
	return ro
}

// Start launches a run in the background. Only one run may be active at a time.
func (s *Server) Start(ro config.RunOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Running {
		return ErrRunInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status = newStatus(ro.URLs, s.now())
	go s.run(ctx, ro, s.done)

	s.log.Info("▶️ Run started from web", slog.Int("urls", len(ro.URLs)))
	return nil
}

func (s *Server) run(ctx context.Context, ro config.RunOptions, done chan struct{}) {
	defer close(done)

	out, err := s.scraper.Run(ctx, ro, func(ev batch.Event) {
		s.mu.Lock()
		s.status.apply(ev)
		s.mu.Unlock()
		if pubErr := s.hub.Publish("progress", ev); pubErr != nil {
			s.log.Warn("⚠️ Failed to publish progress", slog.Any("error", pubErr))
		}
	})
	if err != nil {
		s.log.Error("❌ Web run failed", slog.Any("error", err))
	}

	s.mu.Lock()
	s.status.finish(out, err, s.now())
	s.cancel = nil
	final := s.status.clone()
	s.mu.Unlock()

	if pubErr := s.hub.Publish("done", final); pubErr != nil {
		s.log.Warn("⚠️ Failed to publish summary", slog.Any("error", pubErr))
	}
}

// Stop cancels the active run; in-flight pages still finish. It reports whether a run was active.
func (s *Server) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.status.Running || s.cancel == nil {
		return false
	}
	s.cancel()
	s.status.Stopping = true
	s.log.Info("⏹️ Stop requested")
	return true
}

// Wait blocks until the active run, if any, has finished or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.clone()
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(attrs, slog.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("HTTP request", attrs...)
	}
}
