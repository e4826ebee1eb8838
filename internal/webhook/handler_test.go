package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizonjapan/crewbot/internal/bot"
	"github.com/horizonjapan/crewbot/internal/config"
	"github.com/horizonjapan/crewbot/internal/logger"
	"github.com/horizonjapan/crewbot/internal/messenger"
)

const (
	testVerifyToken = "verify-token"
	testAppSecret   = "app-secret"
)

// recordingSender captures outbound messages for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []*messenger.Message
}

func (r *recordingSender) Send(_ context.Context, _ string, msg *messenger.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type handlerFixture struct {
	handler    *Handler
	router     *gin.Engine
	sender     *recordingSender
	dispatcher *bot.Dispatcher
}

func newHandlerFixture(t *testing.T, appSecret string) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New("error")
	store := bot.NewStore(bot.StoreConfig{
		PauseWindow: time.Hour,
		Cooldown:    12 * time.Hour,
	})
	t.Cleanup(store.Stop)

	sender := &recordingSender{}
	dispatcher := bot.NewDispatcher(sender, store, log, nil)
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Gate:       bot.NewGate(store),
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     log,
	})

	h := NewHandler(HandlerConfig{
		VerifyToken: testVerifyToken,
		AppSecret:   appSecret,
		BotConfig:   &config.BotConfig{MaxEventsPerWebhook: 100},
		Logger:      log,
		Processor:   processor,
	})

	router := gin.New()
	router.GET("/webhook", h.HandleVerify)
	router.POST("/webhook", h.HandleEvents)

	return &handlerFixture{handler: h, router: router, sender: sender, dispatcher: dispatcher}
}

func (f *handlerFixture) get(t *testing.T, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/webhook?"+query, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) post(t *testing.T, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		mac := hmac.New(sha256.New, []byte(testAppSecret))
		mac.Write([]byte(body))
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.handler.Shutdown(ctx))
	f.dispatcher.Wait()
}

func TestHandleVerify(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		wantStatus    int
		wantChallenge bool
	}{
		{"valid handshake", "hub.mode=subscribe&hub.verify_token=" + testVerifyToken + "&hub.challenge=12345", http.StatusOK, true},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", http.StatusForbidden, false},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=" + testVerifyToken + "&hub.challenge=12345", http.StatusForbidden, false},
		{"missing mode", "hub.verify_token=" + testVerifyToken, http.StatusForbidden, false},
		{"missing token", "hub.mode=subscribe", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t, "")
			w := f.get(t, tt.query)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantChallenge {
				assert.Equal(t, "12345", w.Body.String())
			}
		})
	}
}

func TestHandleVerifyIdempotent(t *testing.T) {
	f := newHandlerFixture(t, "")
	valid := "hub.mode=subscribe&hub.verify_token=" + testVerifyToken + "&hub.challenge=777"

	first := f.get(t, valid)
	second := f.get(t, valid)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	invalid := "hub.mode=subscribe&hub.verify_token=nope"
	assert.Equal(t, http.StatusForbidden, f.get(t, invalid).Code)
	assert.Equal(t, http.StatusForbidden, f.get(t, invalid).Code)
}

func eventBody(text string) string {
	return `{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"time": 1700000000000,
			"messaging": [{
				"sender": {"id": "u1"},
				"recipient": {"id": "page-1"},
				"timestamp": 1700000000000,
				"message": {"mid": "m1", "text": "` + text + `"}
			}]
		}]
	}`
}

func TestHandleEventsAcksImmediately(t *testing.T) {
	f := newHandlerFixture(t, "")

	w := f.post(t, eventBody("msc"), false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EVENT_RECEIVED", w.Body.String())

	f.drain(t)
	assert.Equal(t, 1, f.sender.count())
}

func TestHandleEventsSignature(t *testing.T) {
	t.Run("valid signature accepted", func(t *testing.T) {
		f := newHandlerFixture(t, testAppSecret)
		w := f.post(t, eventBody("msc"), true)
		assert.Equal(t, http.StatusOK, w.Code)
		f.drain(t)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		f := newHandlerFixture(t, testAppSecret)
		w := f.post(t, eventBody("msc"), false)
		assert.Equal(t, http.StatusForbidden, w.Code)
		f.drain(t)
		assert.Zero(t, f.sender.count())
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		f := newHandlerFixture(t, testAppSecret)
		body := eventBody("msc")
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		mac := hmac.New(sha256.New, []byte(testAppSecret))
		mac.Write([]byte(body + "tampered"))
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("no app secret skips check", func(t *testing.T) {
		f := newHandlerFixture(t, "")
		w := f.post(t, eventBody("msc"), false)
		assert.Equal(t, http.StatusOK, w.Code)
		f.drain(t)
	})
}

func TestHandleEventsRejectsNonPage(t *testing.T) {
	f := newHandlerFixture(t, "")
	w := f.post(t, `{"object": "instagram", "entry": []}`, false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleEventsRejectsMalformedJSON(t *testing.T) {
	f := newHandlerFixture(t, "")
	w := f.post(t, `{not json`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEventsMultipleEntries(t *testing.T) {
	f := newHandlerFixture(t, "")

	body := `{
		"object": "page",
		"entry": [
			{"id": "p1", "messaging": [{"sender": {"id": "u1"}, "message": {"mid": "m1", "text": "msc"}}]},
			{"id": "p1", "messaging": [{"sender": {"id": "u2"}, "message": {"mid": "m2", "text": "help"}}]}
		]
	}`
	w := f.post(t, body, false)
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	assert.Equal(t, 2, f.sender.count())
}

func TestHandleEventsTruncatesOversizedBatch(t *testing.T) {
	f := newHandlerFixture(t, "")
	f.handler.maxEventsPerWebhook = 1

	body := `{
		"object": "page",
		"entry": [
			{"id": "p1", "messaging": [
				{"sender": {"id": "u1"}, "message": {"mid": "m1", "text": "msc"}},
				{"sender": {"id": "u2"}, "message": {"mid": "m2", "text": "msc"}}
			]}
		]
	}`
	w := f.post(t, body, false)
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	assert.Equal(t, 1, f.sender.count())
}

func TestHandleEventsBadSenderDoesNotFailBatch(t *testing.T) {
	f := newHandlerFixture(t, "")

	body := `{
		"object": "page",
		"entry": [{"id": "p1", "messaging": [
			{"sender": {"id": ""}, "message": {"mid": "m1", "text": "msc"}},
			{"sender": {"id": "u2"}, "message": {"mid": "m2", "text": "msc"}}
		]}]
	}`
	w := f.post(t, body, false)
	assert.Equal(t, http.StatusOK, w.Code)

	f.drain(t)
	assert.Equal(t, 1, f.sender.count())
}

func TestShutdownTimesOut(t *testing.T) {
	f := newHandlerFixture(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.handler.wg.Add(1)
	defer f.handler.wg.Done()

	assert.ErrorIs(t, f.handler.Shutdown(ctx), context.Canceled)
}
