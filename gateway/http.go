package gateway

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain"
	"github.com/javascriptisbest/pbl4-sub001/errors"
	"github.com/javascriptisbest/pbl4-sub001/repositories"
	"github.com/javascriptisbest/pbl4-sub001/services"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterHandler creates an account and issues the initial session token.
func RegisterHandler(log *slog.Logger, authSvc services.IAuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
			return
		}

		token, err := authSvc.Register(creds.Email, creds.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
		case stderrors.Is(err, errors.ErrUserAlreadyExists):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "email already taken"})
		case stderrors.Is(err, errors.ErrInvalidPassword):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			log.Error("Registration failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
		}
	}
}

// LoginHandler exchanges credentials for a session token.
func LoginHandler(log *slog.Logger, authSvc services.IAuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
			return
		}

		token, err := authSvc.Login(creds.Email, creds.Password)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
		case stderrors.Is(err, errors.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
		default:
			log.Error("Login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "login failed"})
		}
	}
}

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// CreateGroupHandler creates a group with the caller as implicit member.
func CreateGroupHandler(log *slog.Logger, verifier contract.SessionVerifier,
	groups repositories.IGroupRepository) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := bearerUser(w, r, verifier)
		if !ok {
			return
		}

		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed body"})
			return
		}

		group, err := groups.CreateGroup(req.Name, append(req.Members, userID))
		if err != nil {
			log.Error("Group creation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "group creation failed"})
			return
		}
		writeJSON(w, http.StatusCreated, group)
	}
}

// HistoryHandler serves a cursor-paged conversation history. Live delivery
// is best-effort; this is where offline recipients catch up.
func HistoryHandler(log *slog.Logger, verifier contract.SessionVerifier,
	chat services.IChatService) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := bearerUser(w, r, verifier)
		if !ok {
			return
		}

		targetID := r.URL.Query().Get("target")
		if targetID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing target"})
			return
		}
		target := domain.UserTarget(targetID)
		if r.URL.Query().Get("kind") == string(domain.TargetGroup) {
			target = domain.GroupTarget(targetID)
		}
		var cursor *string
		if c := r.URL.Query().Get("cursor"); c != "" {
			cursor = &c
		}

		messages, next, err := chat.History(userID, target, cursor)
		if err != nil {
			log.Error("History fetch failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history fetch failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"messages": messages,
			"cursor":   next,
		})
	}
}

// bearerUser authenticates the Authorization header against the session
// verifier. Writes the 401 itself so handlers can just bail out.
func bearerUser(w http.ResponseWriter, r *http.Request, verifier contract.SessionVerifier) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	userID, err := verifier.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
