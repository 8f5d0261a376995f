package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/line"
)

const maxWebhookBody = 1 << 20

// Webhook receives LINE platform callbacks. The signature is checked against
// the raw body before anything is parsed; events are then handed to the
// conversation service on a background goroutine so the platform gets its 200
// immediately and a dropped delivery connection cannot abort replies mid-event.
func (a *App) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(a.ChannelSecret, signature, body) {
		a.Logger.Warn().Msg("webhook: signature validation failed")
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
		return
	}

	req, err := line.ParseWebhook(body)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("webhook: malformed body")
		a.json(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}

	// One goroutine per delivery keeps the events of a single webhook call in
	// order while detaching their lifetime from the request.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		for _, ev := range req.Events {
			a.Events.HandleEvent(ctx, ev)
		}
	}()
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
