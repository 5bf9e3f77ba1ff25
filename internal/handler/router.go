package handler

import (
	"html/template"
	"net/http"

	"healthscope/internal/logger"
	"healthscope/internal/metrics"
	"healthscope/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	Templates      *template.Template
	Metrics        *metrics.Collector
	Cookie         middleware.SessionCookie
	Limiter        *middleware.RateLimiter
	MaxUploadBytes int64
	AllowOrigins   []string
	// TrustedProxies may set X-Forwarded-For; nil trusts none.
	TrustedProxies []string
}

func NewRouter(reports *ReportHandler, chat *ChatHandler, opts RouterOptions) *gin.Engine {
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"*"}
	}
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		logger.Warn("trusted proxies rejected", "proxies", opts.TrustedProxies, "err", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), middleware.Observe(opts.Metrics))
	r.SetHTMLTemplate(opts.Templates)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", func(c *gin.Context) {
		opts.Metrics.ActiveSessions.Set(float64(reports.sessions.Count()))
		opts.Metrics.Handler().ServeHTTP(c.Writer, c.Request)
	})

	web := r.Group("/", middleware.Session(opts.Cookie))
	web.GET("/", reports.Index)
	web.GET("/upload_page", reports.UploadPage)
	web.POST("/analyze", opts.Limiter.Middleware(), middleware.LimitBodySize(opts.MaxUploadBytes), reports.Analyze)
	web.GET("/load_history", reports.History)
	web.GET("/view_report/:id", reports.ViewReport)
	web.GET("/dashboard", reports.Dashboard)
	web.GET("/reset", reports.Reset)

	api := r.Group("/api",
		cors.New(cors.Config{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			AllowCredentials: !allowsAny(opts.AllowOrigins),
		}),
		middleware.Session(opts.Cookie),
		opts.Limiter.Middleware(),
		middleware.LimitBodySize(64<<10),
	)
	api.POST("/chat", chat.Chat)
	api.GET("/search", chat.Search)

	return r
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
