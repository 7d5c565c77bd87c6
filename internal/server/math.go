package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/jxeduyun/mathtutor/internal/qa"
)

// topicRoute declares one math topic endpoint family. All topics share the
// same handling; streaming is registered only where the product enabled it.
type topicRoute struct {
	name      string
	streaming bool
}

var topics = []topicRoute{
	{name: "sqrt"},
	{name: "pythagorean"},
	{name: "parallelogram"},
	{name: "linear_function", streaming: true},
	{name: "data_analysis"},
}

// MathHandler exposes the per-topic question endpoints backed by one shared
// orchestrator.
type MathHandler struct {
	Orch      *qa.Orchestrator
	PromptDir string

	logger *log.Logger
}

func (h *MathHandler) Register(g *echo.Group) {
	if h.logger == nil {
		h.logger = log.New(log.Writer(), "[MATH] ", log.LstdFlags)
	}
	for _, t := range topics {
		g.POST("/"+t.name, h.chat(t.name))
		if t.streaming {
			g.POST("/"+t.name+"/stream", h.chatStream(t.name))
		}
	}
}

func (h *MathHandler) promptPaths(topic string) qa.PromptPaths {
	return qa.PromptPaths{
		Knowledge: filepath.Join(h.PromptDir, topic, "system_prompt_with_knowledge.txt"),
		Fallback:  filepath.Join(h.PromptDir, topic, "system_fallback_prompt.txt"),
	}
}

func (h *MathHandler) chat(topic string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req qa.ChatRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		resp := h.Orch.Handle(c.Request().Context(), topic, req.UserQuestion, h.promptPaths(topic))
		return c.JSON(http.StatusOK, resp)
	}
}

func (h *MathHandler) chatStream(topic string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req qa.ChatRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "text/event-stream")
		resp.Header().Set("Cache-Control", "no-cache")
		resp.Header().Set("Connection", "keep-alive")
		resp.WriteHeader(http.StatusOK)
		resp.Flush()

		ctx := c.Request().Context()
		for ev := range h.Orch.HandleStream(ctx, topic, req.UserQuestion, h.promptPaths(topic)) {
			if err := writeSSE(resp, ev); err != nil {
				h.logger.Printf("write sse frame: %v", err)
				return nil
			}
			resp.Flush()
		}
		return nil
	}
}

// writeSSE frames one event as `data: <json>` followed by a blank line.
func writeSSE(w io.Writer, ev qa.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", b)
	return err
}
