package httpapi

import (
	"net/http"

	"github.com/chandana0511/tambola-backend/internal/archive"
	"github.com/chandana0511/tambola-backend/internal/hub"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/chandana0511/tambola-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(svc *room.Service, ids *identity.Provider, arch *archive.Archive, h *hub.Hub, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/guest", RegisterGuest(ids))
	r.Post("/rooms", CreateRoom(svc))
	r.Get("/rooms/{code}", GetRoom(svc))
	r.Post("/rooms/{code}/join", JoinRoom(svc))
	r.Get("/rooms/{code}/winners", RoomWinners(arch))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, svc, ids, log))
	return r
}
