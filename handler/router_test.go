package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/arxiv-rag/config"
	"github.com/tieubaoca/arxiv-rag/database"
	"github.com/tieubaoca/arxiv-rag/service"
	"github.com/tieubaoca/arxiv-rag/types"
)

type staticEmbedder struct{ err error }

func (e staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, e.err
}

type echoGenerator struct{}

func (echoGenerator) Generate(context.Context, service.GenerationRequest) (string, error) {
	return "Answer: entangled.", nil
}

type staticCounter struct {
	n   int
	err error
}

func (s staticCounter) Count(context.Context) (int, error) { return s.n, s.err }

type staticSizer int

func (s staticSizer) Len() int { return int(s) }

type testEnv struct {
	router        *gin.Engine
	conversations *service.ConversationService
}

func newTestEnv(t *testing.T, embedErr error, indexErr error) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	index := database.NewMemoryIndex()
	md := types.NewChunkMetadata(types.Record{ID: "p1", Title: "Entanglement"}, 1, "Entangled states.")
	require.NoError(t, index.Add(context.Background(), "p1_chunk_1", []float32{1, 0.1}, md))

	store, err := database.NewBoltConversationStore(filepath.Join(t.TempDir(), "conversations.bolt"))
	require.NoError(t, err)
	conversations := service.NewConversationService(store)
	t.Cleanup(func() { conversations.Close() })

	embedder := staticEmbedder{err: embedErr}
	opts := service.NewAnswererOptions(config.Default().Answerer, types.DefaultGenerationOptions())
	answerer := service.NewAnswerer(embedder, index, echoGenerator{}, service.WordTokenizer{}, opts)

	router := NewRouter(Handlers{
		Cors:          NewCorsHandler(""),
		Stats:         NewStatsHandler(staticCounter{n: 7}, staticSizer(3), staticCounter{n: 11, err: indexErr}),
		Conversations: NewConversationHandler(conversations),
		Search:        NewSearchHandler(embedder, index, 5),
		Chat:          NewChatHandler(service.NewWebSocketService(answerer, conversations)),
	})
	return &testEnv{router: router, conversations: conversations}
}

func (e *testEnv) get(t *testing.T, path string) (*httptest.ResponseRecorder, types.DataResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	e.router.ServeHTTP(w, req)
	var body types.DataResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w, _ := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCorsPreflight(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	w, body := env.get(t, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, map[string]interface{}{"records": 7.0, "processed": 3.0, "indexed": 11.0}, body.Data)
}

func TestStatsIndexDown(t *testing.T) {
	env := newTestEnv(t, nil, errors.New("connection refused"))
	w, body := env.get(t, "/api/v1/stats")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", body.Status)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w, body := env.get(t, "/api/v1/search?q=entanglement&limit=3")
	require.Equal(t, http.StatusOK, w.Code)
	data := body.Data.(map[string]interface{})
	matches := data["matches"].([]interface{})
	require.Len(t, matches, 1)
	assert.Equal(t, "p1_chunk_1", matches[0].(map[string]interface{})["id"])

	w, _ = env.get(t, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = env.get(t, "/api/v1/search?q=x&limit=500")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	env := newTestEnv(t, errors.New("quota"), nil)
	w, body := env.get(t, "/api/v1/search?q=entanglement")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "couldn't retrieve the associated text", body.Message)
}

func TestConversations(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	w, body := env.get(t, "/api/v1/conversations")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"names": []interface{}{}}, body.Data)

	conv := types.NewConversationContext(types.Expert)
	conv.Append(types.RoleUser, "hi")
	name, err := env.conversations.Save(context.Background(), "greeting", conv)
	require.NoError(t, err)

	w, body = env.get(t, "/api/v1/conversations")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"names": []interface{}{name}}, body.Data)

	w, body = env.get(t, "/api/v1/conversations/"+name)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Expert", body.Data.(map[string]interface{})["expertise_level"])

	w, _ = env.get(t, "/api/v1/conversations/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketRoute(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	require.NoError(t, conn.WriteJSON(types.WebsocketRequest{
		Type:    types.TypeWebsocketAsk,
		Payload: types.WebSocketAskPayload{Question: "What is entanglement?"},
	}))

	var res types.WebSocketResponse
	require.NoError(t, conn.ReadJSON(&res))
	assert.Equal(t, types.TypeWebsocketProcessing, res.Type)
	require.NoError(t, conn.ReadJSON(&res))
	assert.Equal(t, types.TypeWebsocketAnswer, res.Type)
	assert.Equal(t, "entangled.", res.Payload.(map[string]interface{})["answer"])
}
