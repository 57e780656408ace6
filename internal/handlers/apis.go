package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/NuZard84/go-typerace-socket/internal/manager"
	"github.com/NuZard84/go-typerace-socket/internal/models"
)

const queryTimeout = 2 * time.Second

// Routes registers every endpoint and wraps them in CORS handling.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.HandleWebSocket)
	mux.HandleFunc("GET /api/rooms/{code}", h.HandleCheckRoom)
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("GET /health", h.HandleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// HandleCheckRoom tells a client whether a room code can be joined.
func (h *Handler) HandleCheckRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	var status models.RoomStatus
	err := h.query(r.Context(), func(reg *manager.Registry) {
		room, err := reg.GetRoom(code)
		if err != nil {
			return
		}
		status = models.RoomStatus{Exists: true, State: room.Status, Players: room.Len()}
	})
	if err != nil {
		log.Error().Err(err).Str("room_code", code).Msg("room lookup failed")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	var stats models.ServerStats
	err := h.query(r.Context(), func(reg *manager.Registry) {
		stats.Rooms, stats.Players, stats.ByState = reg.Stats()
	})
	if err != nil {
		log.Error().Err(err).Msg("stats lookup failed")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	stats.Connections = h.hub.Count()

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) query(ctx context.Context, fn func(*manager.Registry)) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := h.gateway.Query(ctx, fn)
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.New("gateway did not answer in time")
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
