package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jxeduyun/mathtutor/config"
	"github.com/jxeduyun/mathtutor/internal/llm"
	"github.com/jxeduyun/mathtutor/internal/qa"
	"github.com/jxeduyun/mathtutor/internal/recommend"
	"github.com/jxeduyun/mathtutor/internal/telemetry"
)

// Run builds the full service from config and serves it. addr overrides the
// configured listen address when non-empty.
func Run(cfg *config.Config, addr string) error {
	e := New(cfg)
	if addr == "" {
		addr = listenAddr(cfg.General.Listen)
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// listenAddr accepts a bare port ("8000"), a ":port", or a full host:port
// ("0.0.0.0:8000") and returns something net.Listen understands.
func listenAddr(configured string) string {
	if configured == "" {
		return ":8000"
	}
	if !strings.Contains(configured, ":") {
		return ":" + configured
	}
	return configured
}

// New wires the collaborators once (top-level DI) and registers all routes.
func New(cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	tele := telemetry.New()
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "欢迎使用数学智能问答系统"})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
	e.GET("/metrics", echo.WrapHandler(tele.Handler()))

	deps := qa.Deps{
		Lookup:      recommend.New(cfg.Recommendation),
		Prompts:     qa.NewAssembler(),
		Completions: llm.NewGateway(cfg.LLM),
	}
	orch := qa.NewOrchestrator(deps, log.New(log.Writer(), "[ORCH] ", log.LstdFlags), tele)

	mh := &MathHandler{Orch: orch, PromptDir: cfg.Prompts.Dir}
	mh.Register(e.Group("/api/v1/math"))

	return e
}
