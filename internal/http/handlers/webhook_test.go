package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/line"
)

type recordingHandler struct {
	events chan line.Event
	ctxErr chan error
	gate   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		events: make(chan line.Event, 16),
		ctxErr: make(chan error, 16),
	}
}

func (h *recordingHandler) HandleEvent(ctx context.Context, ev line.Event) {
	if h.gate != nil {
		<-h.gate
	}
	h.ctxErr <- ctx.Err()
	h.events <- ev
}

func (h *recordingHandler) next(t *testing.T) line.Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for dispatched event")
		return line.Event{}
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, app *App, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Line-Signature", signature)
	}
	rec := httptest.NewRecorder()
	app.Webhook(rec, req)
	return rec
}

func TestWebhookDispatchesEvents(t *testing.T) {
	events := newRecordingHandler()
	app := NewApp(events, "channel-secret", zerolog.Nop())

	body := []byte(`{"events":[
		{"type":"follow","replyToken":"rt-1","source":{"type":"user","userId":"U1"}},
		{"type":"message","replyToken":"rt-2","source":{"type":"user","userId":"U1"},"message":{"id":"m-1","type":"image"}}
	]}`)

	rec := postWebhook(t, app, body, sign("channel-secret", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	first := events.next(t)
	second := events.next(t)
	if first.Type != line.EventTypeFollow || second.Message.Type != line.MessageTypeImage {
		t.Fatalf("unexpected events: %+v, %+v", first, second)
	}
}

func TestWebhookEventContextSurvivesRequest(t *testing.T) {
	events := newRecordingHandler()
	events.gate = make(chan struct{})
	app := NewApp(events, "channel-secret", zerolog.Nop())

	body := []byte(`{"events":[{"type":"follow","replyToken":"rt-1","source":{"type":"user","userId":"U1"}}]}`)
	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body)).WithContext(reqCtx)
	req.Header.Set("X-Line-Signature", sign("channel-secret", body))
	rec := httptest.NewRecorder()

	app.Webhook(rec, req)

	// The platform drops the delivery connection before the event is handled.
	cancel()
	close(events.gate)

	events.next(t)
	select {
	case err := <-events.ctxErr:
		if err != nil {
			t.Fatalf("expected event context to outlive the request, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for context state")
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	events := &recordingHandler{}
	app := NewApp(events, "channel-secret", zerolog.Nop())

	body := []byte(`{"events":[]}`)
	rec := postWebhook(t, app, body, sign("wrong-secret", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad signature, got %d", rec.Code)
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no events dispatched")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	app := NewApp(&recordingHandler{}, "channel-secret", zerolog.Nop())
	rec := postWebhook(t, app, []byte(`{"events":[]}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing signature, got %d", rec.Code)
	}
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	app := NewApp(&recordingHandler{}, "channel-secret", zerolog.Nop())
	body := []byte("not json")
	rec := postWebhook(t, app, body, sign("channel-secret", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on malformed body, got %d", rec.Code)
	}
}
