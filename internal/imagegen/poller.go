package imagegen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Poller watches one callback channel until a terminal notification appears or
// the timeout budget runs out.
type Poller struct {
	relay    *RelayClient
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewPoller(relay *RelayClient, interval, timeout time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Poller{relay: relay, interval: interval, timeout: timeout, logger: logger}
}

type notification struct {
	Data struct {
		State      string   `json:"state"`
		ResultURLs []string `json:"resultUrls"`
		ResultJSON string   `json:"resultJson"`
	} `json:"data"`
}

type resultPayload struct {
	ResultURLs []string `json:"resultUrls"`
}

// Await polls the channel at a fixed interval until a terminal notification
// arrives. A "success" notification that yields no parsable URL does not end
// the wait: a duplicate notification with a usable payload may still arrive
// within the budget.
func (p *Poller) Await(ctx context.Context, channelID string) (string, error) {
	deadline := time.Now().Add(p.timeout)

	for {
		contents, err := p.relay.Notifications(ctx, channelID)
		if err != nil {
			p.logger.Debug().Err(err).Str("channel", channelID).Msg("poll: fetch notifications failed")
		}
		for _, content := range contents {
			url, state, ok := parseNotification(content)
			if !ok {
				p.logger.Debug().Str("channel", channelID).Msg("poll: skipping malformed notification")
				continue
			}
			switch state {
			case "success":
				if url != "" {
					return url, nil
				}
				// Success without a usable URL: keep waiting.
			case "fail":
				return "", ErrRemoteFailed
			}
		}

		if !time.Now().Add(p.interval).Before(deadline) {
			return "", ErrPollTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// parseNotification extracts the terminal state and, for successes, the result
// URL. The URL lives either directly in data.resultUrls or inside
// data.resultJson, a JSON-encoded string that re-exposes resultUrls; the
// direct field wins. ok is false when the body is not a well-formed
// notification at all.
func parseNotification(content string) (url, state string, ok bool) {
	var note notification
	if err := json.Unmarshal([]byte(content), &note); err != nil {
		return "", "", false
	}
	state = note.Data.State
	if state == "" {
		return "", "", false
	}
	if state != "success" {
		return "", state, true
	}
	if len(note.Data.ResultURLs) > 0 {
		return note.Data.ResultURLs[0], state, true
	}
	if note.Data.ResultJSON != "" {
		var payload resultPayload
		if err := json.Unmarshal([]byte(note.Data.ResultJSON), &payload); err == nil && len(payload.ResultURLs) > 0 {
			return payload.ResultURLs[0], state, true
		}
	}
	return "", state, true
}
