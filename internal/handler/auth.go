package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/quote-board/internal/config"
	"github.com/iliyamo/quote-board/internal/middleware"
	"github.com/iliyamo/quote-board/internal/model"
	"github.com/iliyamo/quote-board/internal/repository"
	"github.com/iliyamo/quote-board/internal/service"
	"github.com/iliyamo/quote-board/internal/utils"
)

// UserStore is the account persistence used by AuthHandler.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, firstName, lastName, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, password string, cost int) error
}

// TokenStore persists refresh token hashes.  *repository.TokenRepo
// satisfies it.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type signupReq struct {
	FirstName            string `json:"first_name" validate:"required,max=255"`
	LastName             string `json:"last_name" validate:"required,max=255"`
	Email                string `json:"email" validate:"required,email,max=255"`
	Password             string `json:"password" validate:"required,min=6,max=72,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type updatePasswordReq struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=6,max=72,eqfield=PasswordConfirmation"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type tokenResp struct {
	Token            string    `json:"token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

func (h *AuthHandler) issueTokens(ctx context.Context, uid uint64) (tokenResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return tokenResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenResp{}, err
	}
	return tokenResp{
		Token:            access.Token,
		TokenType:        "bearer",
		ExpiresAt:        access.Exp,
		RefreshToken:     refresh.Raw, // raw back to client
		RefreshExpiresAt: refresh.Exp,
	}, nil
}

// Signup creates an account.  It does not log the user in.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.FirstName, req.LastName, req.Email, req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		verr := &service.ValidationError{}
		verr.Add("email", "The email has already been taken.")
		return verr
	}
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  statusSuccess,
		"message": "User created successfully",
		"data":    u,
	})
}

// Login verifies credentials and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, service.ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	if utils.NeedsRehash(u.PasswordHash, h.Cfg.BcryptCost) {
		if err := h.Users.UpdatePassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("rehash password failed")
		}
	}

	tokens, err := h.issueTokens(ctx, u.ID)
	if err != nil {
		return err
	}
	return ok(c, tokens)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Tokens.ConsumeRefresh(ctx, hash)
	if err != nil {
		return err
	}
	tokens, err := h.issueTokens(ctx, uid)
	if err != nil {
		return err
	}
	return ok(c, tokens)
}

// Logout revokes every refresh token of the current user.  Access tokens
// stay valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return err
	}
	return okMessage(c, "Successfully logged out")
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, service.ErrNotFound) {
		return service.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	return ok(c, u)
}

// UpdatePassword changes the current user's password and signs out every
// other session by revoking refresh tokens.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	var req updatePasswordReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, service.ErrNotFound) {
		return service.ErrUnauthenticated
	}
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		verr := &service.ValidationError{}
		verr.Add("current_password", "The current password is incorrect.")
		return verr
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.Password, h.Cfg.BcryptCost); err != nil {
		return err
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return err
	}
	return okMessage(c, "Password updated successfully")
}
