package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthscope/internal/config"
	"healthscope/internal/handler"
	"healthscope/internal/logger"
	"healthscope/internal/metrics"
	"healthscope/internal/middleware"
	"healthscope/internal/service"
	"healthscope/internal/web"

	"github.com/gin-gonic/gin"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.NewCollector("healthscope")

	reports, err := openReportStore(cfg)
	if err != nil {
		logger.Error("report store init failed", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	aiSvc, err := service.NewAIService(ctx, cfg.Google, m)
	if err != nil {
		logger.Error("model client init failed", "err", err)
		os.Exit(1)
	}

	pipeline := service.NewPipeline(
		service.NewExtractor(aiSvc, cfg.Google.ExtractionModel),
		service.NewSummarizer(aiSvc, cfg.Google.SummaryModel),
		reports,
		m,
	).WithMaxPixels(cfg.Server.MaxImagePixels)
	agent := service.NewAgent(aiSvc, cfg.Google.ChatModel)
	search := service.NewSearchService(cfg.Agent.SearchURL, cfg.Agent.SearchTimeout)
	sessions := service.NewSessionStore(cfg.Session.TTL)

	tmpl, err := web.Templates()
	if err != nil {
		logger.Error("templates parse failed", "err", err)
		os.Exit(1)
	}

	cookie := middleware.SessionCookie{Name: cfg.Session.CookieName, Secret: sessionSecret(cfg), Secure: cfg.Session.Secure}
	reportH := handler.NewReportHandler(pipeline, reports, sessions, cookie, cfg.Patient.ID, cfg.Agent.Location)
	chatH := handler.NewChatHandler(agent, search, sessions, cfg.Agent.Location)

	r := handler.NewRouter(reportH, chatH, handler.RouterOptions{
		Templates:      tmpl,
		Metrics:        m,
		Cookie:         cookie,
		Limiter:        middleware.NewRateLimiter(cfg.RateLimit.Every, cfg.RateLimit.Burst),
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowOrigins:   cfg.Server.AllowOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "env", cfg.Env, "vertex", cfg.UseVertex())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}

func openReportStore(cfg *config.Config) (service.ReportStore, error) {
	if !cfg.HasDatabase() {
		logger.Warn("no database configured, reports are kept in memory")
		return service.NewMemoryReportStore(), nil
	}
	db, err := cfg.OpenGormDB()
	if err != nil {
		return nil, err
	}
	return service.NewReportService(db, cfg.Database.Timeout), nil
}

// sessionSecret falls back to a per-process key in development, so
// cookies do not survive a restart there.
func sessionSecret(cfg *config.Config) []byte {
	if cfg.Session.Secret != "" {
		return []byte(cfg.Session.Secret)
	}
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	logger.Warn("session.secret not set, using a random key")
	return key
}
