package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chandana0511/tambola-backend/internal/archive"
	"github.com/chandana0511/tambola-backend/internal/identity"
	"github.com/chandana0511/tambola-backend/internal/room"
	"github.com/go-chi/chi/v5"
)

func RegisterGuest(ids *identity.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DisplayName string `json:"display_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, ids.Register(req.DisplayName))
	}
}

func CreateRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HostID string `json:"host_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		code, err := svc.CreateRoom(req.HostID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func GetRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		snap, err := svc.Snapshot(code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Code         string `json:"code"`
			Status       string `json:"status"`
			ResetVersion int64  `json:"reset_version"`
			PlayerCount  int    `json:"player_count"`
		}{
			Code:         snap.Code,
			Status:       snap.Status,
			ResetVersion: snap.ResetVersion,
			PlayerCount:  len(snap.Players),
		})
	}
}

func JoinRoom(svc *room.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		var req struct {
			PlayerID string `json:"player_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}

		t, err := svc.JoinRoom(code, req.PlayerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Code   string  `json:"code"`
			Ticket [][]int `json:"ticket"`
		}{Code: code, Ticket: t.Grid()})
	}
}

func RoomWinners(arch *archive.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if arch == nil {
			http.Error(w, "archive not configured", http.StatusNotFound)
			return
		}
		rows, err := arch.Winners(chi.URLParam(r, "code"))
		if err != nil {
			http.Error(w, "archive query failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated):
		http.Error(w, "not authenticated", http.StatusUnauthorized)
	case errors.Is(err, room.ErrRoomNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
	case errors.Is(err, room.ErrNoFreeRoomCode):
		http.Error(w, "could not allocate room code", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
