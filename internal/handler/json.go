package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dukerupert/purrfect/internal/account"
	"github.com/dukerupert/purrfect/internal/foodlog"
	"github.com/dukerupert/purrfect/internal/websocket"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// errorStatus maps domain errors to a status code and a message safe to show.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, foodlog.ErrInvalidDate):
		return http.StatusBadRequest, "date must be YYYY-MM-DD"
	case errors.Is(err, foodlog.ErrEmptyName):
		return http.StatusBadRequest, "food name is required"
	case errors.Is(err, foodlog.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown category"
	case errors.Is(err, foodlog.ErrFoodExists):
		return http.StatusConflict, "food already exists"
	case errors.Is(err, foodlog.ErrCorruptState):
		return http.StatusInternalServerError, "stored data is corrupt"
	case errors.Is(err, account.ErrMissingCredentials):
		return http.StatusBadRequest, "Please enter username and password."
	case errors.Is(err, account.ErrUserExists):
		return http.StatusConflict, "A user already exists. Please sign in."
	case errors.Is(err, account.ErrNoUser):
		return http.StatusNotFound, "No user found. Please sign up."
	case errors.Is(err, account.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials."
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

type broadcaster struct {
	hub *websocket.Hub
}

func (b broadcaster) broadcast(msg websocket.Message) {
	if b.hub != nil {
		b.hub.Broadcast(msg)
	}
}
