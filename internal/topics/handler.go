package topics

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"datachat-backend/internal/analyses"
	"datachat-backend/internal/llm"
	"datachat-backend/internal/shared/server/respond"
)

// Handler exposes topic initiation, the chat loop and history lookup.
type Handler struct {
	Svc *Service
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/initiate-topic-analysis", h.initiate)
	rg.POST("/chat-on-topic", h.chat)
	rg.GET("/analyses/:analysisId/topics/:topicId/chat", h.history)
}

type initiateRequest struct {
	AnalysisID       string `json:"analysisId"`
	TopicID          string `json:"topicId"`
	TopicDisplayName string `json:"topicDisplayName"`
}

func (h *Handler) initiate(c *gin.Context) {
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields: analysisId, topicId, or topicDisplayName.")
		return
	}

	result, existed, err := h.Svc.InitiateTopic(c.Request.Context(), req.AnalysisID, req.TopicID, req.TopicDisplayName)
	if err != nil {
		h.renderError(c, req.AnalysisID, err, "Failed to generate initial analysis with AI: ")
		return
	}

	message := "Initial topic analysis completed successfully."
	if existed {
		message = "Initial analysis for this topic already existed."
	}
	respond.OK(c, gin.H{
		"success": true,
		"data":    json.RawMessage(result),
		"message": message,
	})
}

type chatRequest struct {
	AnalysisID      string `json:"analysisId"`
	TopicID         string `json:"topicId"`
	UserMessageText string `json:"userMessageText"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Missing required fields: analysisId, topicId, or userMessageText.")
		return
	}

	modelMsg, detailedBlock, err := h.Svc.ChatTurn(c.Request.Context(), req.AnalysisID, req.TopicID, req.UserMessageText)
	if err != nil {
		h.renderError(c, req.AnalysisID, err, "Failed to get AI response: ")
		return
	}

	respond.OK(c, gin.H{
		"success":       true,
		"chatMessage":   modelMsg,
		"detailedBlock": detailedBlock,
		"message":       "AI response generated successfully.",
	})
}

func (h *Handler) history(c *gin.Context) {
	analysisID := c.Param("analysisId")
	topicID := c.Param("topicId")
	messages, err := h.Svc.History(c.Request.Context(), analysisID, topicID)
	if err != nil {
		h.renderError(c, analysisID, err, "")
		return
	}
	respond.OK(c, gin.H{"success": true, "chatHistory": messages})
}

func (h *Handler) renderError(c *gin.Context, analysisID string, err error, aiPrefix string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrMissingContext):
		respond.Error(c, http.StatusBadRequest, "missing_context", "Analysis record is missing dataSummaryForPrompts or dataNatureDescription.")
	case errors.Is(err, analyses.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Analysis with ID "+analysisID+" not found.")
	case errors.Is(err, ErrTopicNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Topic not found for analysis "+analysisID+".")
	case llm.IsAIError(err):
		respond.Error(c, http.StatusInternalServerError, string(llm.KindOf(err)), aiPrefix+err.Error())
	default:
		respond.Error(c, http.StatusInternalServerError, "server_error", "Server error: "+err.Error())
	}
}
