package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/order-assistant/internal/assistant"
	"github.com/suPer8Hu/order-assistant/internal/catalog"
	"github.com/suPer8Hu/order-assistant/internal/chat"
	"github.com/suPer8Hu/order-assistant/internal/config"
	"github.com/suPer8Hu/order-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/order-assistant/internal/identity"
	"github.com/suPer8Hu/order-assistant/internal/models"
	"github.com/suPer8Hu/order-assistant/internal/order"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type memStates struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (s *memStates) SaveState(ctx context.Context, id string, raw []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = raw
	return nil
}

func (s *memStates) LoadState(ctx context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[id], nil
}

func (s *memStates) DeleteState(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

type nopNotifier struct{}

func (nopNotifier) SendConfirmation(ctx context.Context, rec *order.Record) error { return nil }
func (nopNotifier) SendReceipt(ctx context.Context, orderID string) error        { return nil }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	orders *order.Repo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &chat.Session{}, &chat.Message{}, &order.Record{}, &order.Item{}))

	orders := order.NewRepo(db)
	factory := func() (*assistant.Engine, error) {
		return assistant.New(assistant.Deps{
			Catalog:  catalog.Default(),
			Identity: identity.ContextSource{},
			Store:    orders,
			Notifier: nopNotifier{},
		})
	}
	svc := chat.NewService(chat.NewRepo(db), &memStates{m: map[string][]byte{}}, factory, time.Hour, nil)

	cfg := config.Config{JWTSecret: testSecret, StoreName: "YourFit"}
	h := handlers.NewHandler(db, cfg, zap.NewNop(), svc, orders)
	h.SendMail = nil

	return &testAPI{t: t, router: NewRouter(h, testSecret, zap.NewNop()), orders: orders}
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (a *testAPI) register(email string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/users", "", gin.H{"email": email, "name": "Sam Runner", "password": "hunter2hunter2"})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.Token
}

type turn struct {
	SessionID string         `json:"session_id"`
	Messages  []chat.Message `json:"messages"`
}

func (a *testAPI) send(token, sessionID, text string) turn {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/chat/messages", token, gin.H{"session_id": sessionID, "message": text})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var tr turn
	require.NoError(a.t, json.Unmarshal(env.Data, &tr))
	return tr
}

func (a *testAPI) openSession(token string) turn {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/chat/sessions", token, nil)
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var tr turn
	require.NoError(a.t, json.Unmarshal(env.Data, &tr))
	return tr
}

func joinedContent(tr turn) string {
	var parts []string
	for _, m := range tr.Messages {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n")
}

func TestPingAndNoRoute(t *testing.T) {
	a := newTestAPI(t)

	code, env := a.do(http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Code)

	code, env = a.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, 40400, env.Code)
}

func TestUsers_RegisterLoginMe(t *testing.T) {
	a := newTestAPI(t)
	a.register("sam@example.com")

	code, env := a.do(http.MethodPost, "/users", "", gin.H{"email": "sam@example.com", "password": "hunter2hunter2"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 10003, env.Code)

	code, _ = a.do(http.MethodPost, "/login", "", gin.H{"email": "sam@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = a.do(http.MethodPost, "/login", "", gin.H{"email": "SAM@example.com", "password": "hunter2hunter2"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	code, env = a.do(http.MethodGet, "/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"email":"sam@example.com"`)

	code, _ = a.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUsers_RegisterValidation(t *testing.T) {
	a := newTestAPI(t)
	code, _ := a.do(http.MethodPost, "/users", "", gin.H{"email": "not-an-email", "password": "hunter2hunter2"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = a.do(http.MethodPost, "/users", "", gin.H{"email": "a@b.co", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestChat_OrderThroughAPI(t *testing.T) {
	a := newTestAPI(t)
	token := a.register("sam@example.com")

	sess := a.openSession(token)
	require.NotEmpty(t, sess.SessionID)
	require.Len(t, sess.Messages, 1)

	a.send(token, sess.SessionID, "I want to place an order")
	a.send(token, sess.SessionID, "TrainTech Performance Tee, FlexFit training shorts")
	a.send(token, sess.SessionID, "M, L")
	tr := a.send(token, sess.SessionID, "2,1")
	assert.Contains(t, joinedContent(tr), "I'll use your account email (sam@example.com)")

	tr = a.send(token, sess.SessionID, "1 Main St, City, 00000")
	body := joinedContent(tr)
	assert.Contains(t, body, "Total: $109.97")
	assert.Equal(t, 1, strings.Count(body, "Order Summary:"))

	code, env := a.do(http.MethodGet, "/orders", token, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Orders []order.Record `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Orders, 1)
	rec := list.Orders[0]
	assert.Equal(t, int64(10997), rec.TotalPrice)
	assert.Equal(t, "Sam Runner", rec.UserName)
	assert.Len(t, rec.Items, 2)

	code, _ = a.do(http.MethodGet, "/orders/"+rec.ID, token, nil)
	assert.Equal(t, http.StatusOK, code)

	// another shopper sees neither the order nor the session
	other := a.register("kim@example.com")
	code, _ = a.do(http.MethodGet, "/orders/"+rec.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodPost, "/chat/messages", other, gin.H{"session_id": sess.SessionID, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/chat/sessions/"+sess.SessionID+"/messages", other, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodPost, "/orders/"+rec.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = a.do(http.MethodPost, "/orders/"+rec.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, env.Code)

	code, env = a.do(http.MethodGet, "/chat/sessions/"+sess.SessionID+"/messages?limit=3", token, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		Messages     []chat.Message `json:"messages"`
		NextBeforeID uint64         `json:"next_before_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page.Messages, 3)
	assert.Equal(t, page.Messages[2].ID, page.NextBeforeID)
}

func TestChat_AnonymousMustSignIn(t *testing.T) {
	a := newTestAPI(t)

	sess := a.openSession("")
	tr := a.send("", sess.SessionID, "I want to place an order")
	assert.Contains(t, joinedContent(tr), "You need to be logged in")

	code, _ := a.do(http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// signing in keeps the conversation and locks anonymous callers out
	token := a.register("sam@example.com")
	tr = a.send(token, sess.SessionID, "I want to place an order")
	assert.Contains(t, joinedContent(tr), "Let's place an order")

	code, _ = a.do(http.MethodPost, "/chat/messages", "", gin.H{"session_id": sess.SessionID, "message": "hi"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestChat_BadRequests(t *testing.T) {
	a := newTestAPI(t)
	token := a.register("sam@example.com")

	code, _ := a.do(http.MethodPost, "/chat/messages", token, gin.H{"session_id": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/chat/messages", token, gin.H{"session_id": "missing", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, code)
}
