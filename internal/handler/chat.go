package handler

import (
	"net/http"
	"strings"

	"healthscope/internal/logger"
	"healthscope/internal/model"
	"healthscope/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	chatFailed = "I encountered an error processing your request. Please try again."
	noContext  = "No context available."
)

type ChatHandler struct {
	agent    Replier
	search   Searcher
	sessions *service.SessionStore
	location string
}

func NewChatHandler(agent Replier, search Searcher, sessions *service.SessionStore, location string) *ChatHandler {
	return &ChatHandler{agent: agent, search: search, sessions: sessions, location: location}
}

// POST /api/chat  body: {"message":"..."}
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	message := strings.TrimSpace(req.Message)

	// held for the whole turn so one session's transcript never interleaves
	sess := currentSession(c, h.sessions)
	sess.Lock()
	defer sess.Unlock()

	summary := noContext
	if a := sess.Active(); a != nil && a.Summary != "" {
		summary = a.Summary
	}

	reply, err := h.agent.Reply(c.Request.Context(), sess.Conversation(), message, summary, h.location)
	if err != nil {
		logger.Error("chat.failed", "session", logger.Prefix(sess.ID, 8), "err", err)
		c.JSON(http.StatusInternalServerError, model.ChatResponse{Response: chatFailed})
		return
	}
	logger.Info("chat.ok", "session", logger.Prefix(sess.ID, 8), "turns", len(sess.Conversation().Turns))
	c.JSON(http.StatusOK, model.ChatResponse{Response: reply})
}

// GET /api/search?q=
func (h *ChatHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	res := h.search.Search(c.Request.Context(), q)
	out := model.SearchResponse{Query: q, Summary: res.Summary}
	if res.Err != nil {
		logger.Warn("search.failed", "query", q, "err", res.Err)
		out.Error = res.Err.Error()
		c.JSON(http.StatusBadGateway, out)
		return
	}
	c.JSON(http.StatusOK, out)
}
