package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/infra"
	"github.com/housing-coach-yuushi/ishitomo-linebot/internal/line"
)

// EventHandler consumes parsed webhook events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev line.Event)
}

type App struct {
	Events        EventHandler
	ChannelSecret string
	Logger        infra.Logger
}

func NewApp(events EventHandler, channelSecret string, logger infra.Logger) *App {
	return &App{Events: events, ChannelSecret: channelSecret, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
