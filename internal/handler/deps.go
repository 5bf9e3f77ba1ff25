package handler

import (
	"context"

	"healthscope/internal/middleware"
	"healthscope/internal/service"

	"github.com/gin-gonic/gin"
)

type Analyzer interface {
	Analyze(ctx context.Context, userID string, img []byte, mimeType, date string) (service.Analysis, error)
}

type Replier interface {
	Reply(ctx context.Context, conv *service.Conversation, message, summary, location string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) service.SearchResult
}

func currentSession(c *gin.Context, sessions *service.SessionStore) *service.Session {
	return sessions.Get(c.GetString(middleware.SessionIDKey))
}
