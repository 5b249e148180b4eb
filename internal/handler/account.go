package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/purrfect/internal/account"
	"github.com/dukerupert/purrfect/internal/foodlog"
	"github.com/dukerupert/purrfect/internal/middleware"
	"github.com/dukerupert/purrfect/internal/websocket"
)

type AccountHandler struct {
	broadcaster
	accounts *account.Service
	engine   *foodlog.Engine
	logger   *slog.Logger
}

func NewAccountHandler(accounts *account.Service, engine *foodlog.Engine, hub *websocket.Hub, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		broadcaster: broadcaster{hub: hub},
		accounts:    accounts,
		engine:      engine,
		logger:      logger,
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, "error", err, "request_id", middleware.RequestID(r.Context()))
	}
	writeError(w, status, msg)
}

func (h *AccountHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.SignUp(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, r, "sign up", err)
		return
	}
	h.logger.Info("account created")
	h.session(w, r, http.StatusCreated)
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.accounts.Login(r.Context(), req.Username, req.Password); err != nil {
		h.fail(w, r, "login", err)
		return
	}
	h.session(w, r, http.StatusOK)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		h.fail(w, r, "logout", err)
		return
	}
	h.session(w, r, http.StatusOK)
}

func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	h.session(w, r, http.StatusOK)
}

// Reset wipes every stored record, the account included, and reseeds the catalog.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.fail(w, r, "reset", err)
		return
	}
	h.logger.Warn("app data reset", "request_id", middleware.RequestID(r.Context()))
	h.broadcast(websocket.NewMessage("app", "reset", "", nil))
	writeJSON(w, http.StatusOK, map[string]string{"message": "All app data reset. You can sign up again."})
}

func (h *AccountHandler) session(w http.ResponseWriter, r *http.Request, status int) {
	in, err := h.accounts.LoggedIn(r.Context())
	if err != nil {
		h.fail(w, r, "session", err)
		return
	}
	name, err := h.accounts.Username(r.Context())
	if err != nil {
		h.fail(w, r, "session", err)
		return
	}
	writeJSON(w, status, map[string]any{"logged_in": in, "username": name})
}
