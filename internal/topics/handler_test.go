package topics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"datachat-backend/internal/llm"
)

func setupTopicRouter(t *testing.T, client llm.Client) (*gin.Engine, *Service, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, _, analysisID := setupTopicService(t, client)
	router := gin.New()
	handler := &Handler{Svc: svc}
	handler.RegisterRoutes(router.Group("/"))
	return router, svc, analysisID
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestInitiateTopicEndpoint(t *testing.T) {
	client := &scriptedLLM{responses: []string{initialResultJSON}}
	router, _, analysisID := setupTopicRouter(t, client)

	resp := postJSON(t, router, "/initiate-topic-analysis",
		`{"analysisId": "`+analysisID+`", "topicId": "topic-1", "topicDisplayName": "Revenue by quarter"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			InitialFindings string `json:"initialFindings"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.Success || payload.Data.InitialFindings == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestInitiateTopicEndpointValidation(t *testing.T) {
	client := &scriptedLLM{responses: []string{initialResultJSON}}
	router, _, analysisID := setupTopicRouter(t, client)

	resp := postJSON(t, router, "/initiate-topic-analysis",
		`{"analysisId": "`+analysisID+`", "topicId": "topic-1"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing display name, got %d", resp.Code)
	}

	resp = postJSON(t, router, "/initiate-topic-analysis",
		`{"analysisId": "missing", "topicId": "topic-1", "topicDisplayName": "X"}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown analysis, got %d", resp.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	client := &scriptedLLM{responses: []string{initialResultJSON, chatResultJSON}}
	router, svc, analysisID := setupTopicRouter(t, client)

	if _, _, err := svc.InitiateTopic(context.Background(), analysisID, "topic-1", "Revenue by quarter"); err != nil {
		t.Fatalf("initiate topic: %v", err)
	}

	resp := postJSON(t, router, "/chat-on-topic",
		`{"analysisId": "`+analysisID+`", "topicId": "topic-1", "userMessageText": "Which region drives Q1?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Success     bool `json:"success"`
		ChatMessage struct {
			Role  string `json:"role"`
			Parts []Part `json:"parts"`
		} `json:"chatMessage"`
		DetailedBlock struct {
			DetailedFindings string `json:"detailedFindings"`
		} `json:"detailedBlock"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ChatMessage.Role != llm.RoleModel {
		t.Fatalf("expected model reply, got %q", payload.ChatMessage.Role)
	}
	if payload.DetailedBlock.DetailedFindings == "" {
		t.Fatalf("expected detailed findings in response")
	}
}

func TestChatEndpointAIErrorMapsTo500(t *testing.T) {
	client := &scriptedLLM{responses: []string{initialResultJSON}}
	router, svc, analysisID := setupTopicRouter(t, client)

	if _, _, err := svc.InitiateTopic(context.Background(), analysisID, "topic-1", "Revenue by quarter"); err != nil {
		t.Fatalf("initiate topic: %v", err)
	}

	client.err = llm.NewCallFailed("model overloaded", nil)
	resp := postJSON(t, router, "/chat-on-topic",
		`{"analysisId": "`+analysisID+`", "topicId": "topic-1", "userMessageText": "hi"}`)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Success || payload.Code != string(llm.KindCallFailed) {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}

func TestChatHistoryEndpoint(t *testing.T) {
	client := &scriptedLLM{responses: []string{initialResultJSON, chatResultJSON}}
	router, svc, analysisID := setupTopicRouter(t, client)

	if _, _, err := svc.InitiateTopic(context.Background(), analysisID, "topic-1", "Revenue by quarter"); err != nil {
		t.Fatalf("initiate topic: %v", err)
	}
	if _, _, err := svc.ChatTurn(context.Background(), analysisID, "topic-1", "Which region drives Q1?"); err != nil {
		t.Fatalf("chat turn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/analyses/"+analysisID+"/topics/topic-1/chat", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload struct {
		ChatHistory []ChatMessage `json:"chatHistory"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.ChatHistory) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(payload.ChatHistory))
	}
}
