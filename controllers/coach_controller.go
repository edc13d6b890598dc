package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/respiralivre/api/coach"
	"github.com/respiralivre/api/utils"
)

// CoachController streams AI coach replies as server-sent events.
type CoachController struct {
	coach *coach.Service
}

// NewCoachController creates a CoachController.
func NewCoachController(c *coach.Service) *CoachController {
	return &CoachController{coach: c}
}

// sseWriter starts the event stream lazily so errors before the first chunk stay plain JSON.
type sseWriter struct {
	ctx     *gin.Context
	started bool
}

func (w *sseWriter) start() {
	if w.started {
		return
	}
	w.started = true
	h := w.ctx.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.ctx.Status(http.StatusOK)
}

func (w *sseWriter) send(data string) error {
	w.start()
	if _, err := fmt.Fprintf(w.ctx.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	w.ctx.Writer.Flush()
	return nil
}

func (w *sseWriter) sendJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.send(string(b))
}

// Chat answers the caller's message as a stream of content chunks ending with [DONE].
func (c *CoachController) Chat(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if !bindJSON(ctx, &req) {
		return
	}

	w := &sseWriter{ctx: ctx}
	_, err := c.coach.Chat(ctx.Request.Context(), userID, req.Message, func(delta string) error {
		return w.sendJSON(gin.H{"content": delta})
	})
	if err != nil {
		if !w.started {
			utils.Fail(ctx, err)
			return
		}
		utils.Logger.Warn("coach stream interrupted", zap.String("user_id", userID.String()), zap.Error(err))
		_ = w.sendJSON(gin.H{"error": "stream interrupted"})
	}
	_ = w.send("[DONE]")
}
