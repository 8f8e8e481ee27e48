package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/kiroku-app/kiroku/internal/ai"
	"github.com/kiroku-app/kiroku/internal/config"
	"github.com/kiroku-app/kiroku/internal/journal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type scriptedProvider struct{ replies []string }

func (p *scriptedProvider) Chat(_ context.Context, _ []ai.Message, _ ai.ChatOptions) (string, error) {
	if len(p.replies) == 0 {
		return "ok", nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func newTestHandler(t *testing.T, p ai.Provider) (*Handler, *journal.Service) {
	t.Helper()
	gdb, err := gorm.Open(gormsqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	store := journal.NewStore(gdb, journal.NewMemoryCache(time.Minute), nil)
	require.NoError(t, store.AutoMigrate())

	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		return p, nil
	})
	composer := journal.NewComposer()
	engine := journal.NewEngine(store, reg, composer, nil, "fake", "", "")
	svc := journal.NewService(store, engine, composer, nil)

	return NewHandler(gdb, config.Config{}, svc, store, nil, nil), svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func TestChatResponsesUseMessageKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, svc := newTestHandler(t, &scriptedProvider{replies: []string{"ようこそ", "なるほど"}})

	r := gin.New()
	r.POST("/api/chat/greeting", h.Greeting)
	r.POST("/api/chat", h.Chat)

	res, err := svc.StartSession(context.Background(), journal.StartParams{UserID: "u1", Week: 1})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/chat/greeting", gin.H{"session_id": res.SessionID})
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Zero(t, env.Code)
	require.Equal(t, "ようこそ", env.Data["message"])

	w = doJSON(t, r, http.MethodPost, "/api/chat", gin.H{"session_id": res.SessionID, "message": "最近のことですが"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Zero(t, env.Code)
	require.Equal(t, "なるほど", env.Data["message"])
	require.Equal(t, res.SessionID, env.Data["session_id"])
}
