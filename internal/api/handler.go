package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/guard"
	"github.com/evep-health/evep/internal/obs"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*entity.UserTokens, entity.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*entity.UserTokens, entity.User, error)
	RevokeSession(ctx context.Context, userID uuid.UUID) error
}

type Handler struct {
	s Service
}

func NewHandler(s Service) *Handler {
	return &Handler{s: s}
}

// Health godoc
//
//	@Summary	Service liveness probe
//	@Success	200	{string}	string	"ok"
//	@Router		/api/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	SessionHash  string      `json:"session_hash,omitempty"`
	User         entity.User `json:"user"`
}

// Login godoc
//
//	@Summary	Authenticate with email and password
//	@Accept		json
//	@Produce	json
//	@Param		request	body		LoginRequest	true	"credentials"
//	@Success	200		{object}	LoginResponse
//	@Failure	401		{object}	ResponseError
//	@Router		/api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "invalid request body")
		return
	}

	tokens, user, err := h.s.Login(ctx, req.Email, req.Password)
	if err != nil {
		obs.ObserveLogin("failure")

		code, msg := authErrStatus(err)
		sendErr(ctx, w, code, err, msg)

		return
	}

	obs.ObserveLogin("success")

	sendJSON(ctx, w, http.StatusOK, LoginResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SessionHash:  tokens.SessionHash,
		User:         user,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         entity.User `json:"user"`
}

// Refresh godoc
//
//	@Summary	Exchange a refresh token for a new token pair
//	@Accept		json
//	@Produce	json
//	@Param		request	body		RefreshRequest	true	"refresh token"
//	@Success	200		{object}	RefreshResponse
//	@Failure	401		{object}	ResponseError
//	@Router		/api/v1/auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		sendErr(ctx, w, http.StatusUnauthorized, entity.ErrInvalidToken, "session expired, sign in again")
		return
	}

	tokens, user, err := h.s.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		code, msg := authErrStatus(err)
		sendErr(ctx, w, code, err, msg)

		return
	}

	obs.ObserveTokenRefresh()

	sendJSON(ctx, w, http.StatusOK, RefreshResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         user,
	})
}

// Logout godoc
//
//	@Summary	Revoke the caller's refresh tokens and session hash
//	@Security	BearerAuth
//	@Success	200	{string}	string	"ok"
//	@Router		/api/v1/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := entity.UserFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, entity.ErrUnauthorized, "unauthorized")
		return
	}

	if err := h.s.RevokeSession(ctx, user.ID); err != nil {
		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Me godoc
//
//	@Summary	Current user snapshot
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	entity.User
//	@Router		/api/v1/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := entity.UserFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, entity.ErrUnauthorized, "unauthorized")
		return
	}

	sendJSON(ctx, w, http.StatusOK, user)
}

type MenuResponse struct {
	Items []MenuItem `json:"items"`
}

type MenuItem struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Menu godoc
//
//	@Summary	Menu entries visible to the caller's role
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	MenuResponse
//	@Router		/api/v1/access/menu [get]
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := entity.UserFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, entity.ErrUnauthorized, "unauthorized")
		return
	}

	items := []MenuItem{}
	for _, entry := range entity.MenuForRole(user.Role) {
		items = append(items, MenuItem{Path: entry.Path, Description: entry.Description})
	}

	sendJSON(ctx, w, http.StatusOK, MenuResponse{Items: items})
}

type ScreeningTypesResponse struct {
	Items []ScreeningTypeItem `json:"items"`
}

type ScreeningTypeItem struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// ScreeningTypes godoc
//
//	@Summary	Screening types the caller's role may run, in display order
//	@Security	BearerAuth
//	@Produce	json
//	@Success	200	{object}	ScreeningTypesResponse
//	@Router		/api/v1/access/screening-types [get]
func (h *Handler) ScreeningTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := entity.UserFromCtx(ctx)
	if !ok {
		sendErr(ctx, w, http.StatusUnauthorized, entity.ErrUnauthorized, "unauthorized")
		return
	}

	items := []ScreeningTypeItem{}
	for _, st := range entity.AvailableScreeningTypes(user.Role) {
		items = append(items, ScreeningTypeItem{
			Value:    st.Value,
			Label:    st.Label,
			Category: string(st.Category),
		})
	}

	sendJSON(ctx, w, http.StatusOK, ScreeningTypesResponse{Items: items})
}

// CheckAccess godoc
//
//	@Summary	Evaluate the route guard for a menu path
//	@Security	BearerAuth
//	@Produce	json
//	@Param		path	query		string	true	"menu path"
//	@Success	200		{object}	guard.Decision
//	@Router		/api/v1/access/check [get]
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	path := r.URL.Query().Get("path")
	if path == "" {
		sendErr(ctx, w, http.StatusBadRequest, entity.ErrNotFound, "path query parameter is required")
		return
	}

	sess := entity.Session{AccessToken: entity.TokenFromCtx(ctx)}
	if user, ok := entity.UserFromCtx(ctx); ok {
		sess.User = &user
	}

	decision := guard.Evaluate(sess, false, path, guard.Requirement{MenuPath: path})

	if !decision.Granted() {
		slog.InfoContext(ctx, "access check denied", "path", path, "state", decision.State)
	}

	sendJSON(ctx, w, http.StatusOK, decision)
}

// ForceLogout godoc
//
//	@Summary	Revoke all sessions of a user (administrative)
//	@Security	BearerAuth
//	@Accept		json
//	@Success	200	{string}	string	"ok"
//	@Router		/internal/api/sessions/revoke [post]
func (h *Handler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		UserID string `json:"user_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "invalid request body")
		return
	}

	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		sendErr(ctx, w, http.StatusBadRequest, err, "invalid user_id")
		return
	}

	if err := h.s.RevokeSession(ctx, userID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			sendErr(ctx, w, http.StatusNotFound, err, "user not found")
			return
		}

		sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)

		return
	}

	w.WriteHeader(http.StatusOK)
}
