package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Oluwablin/photography/internal/config"
	"github.com/Oluwablin/photography/internal/queue"
	"github.com/Oluwablin/photography/internal/repository"
	"github.com/Oluwablin/photography/internal/utils"
	"github.com/Oluwablin/photography/internal/validate"
)

// AuthHandler bundles registration, login, logout and profile endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Roles  *repository.RoleRepo
	Deny   *utils.Denylist
	Notify Notifier
}

type registerRequest struct {
	Firstname            string `json:"firstname" form:"firstname"`
	Lastname             string `json:"lastname" form:"lastname"`
	Email                string `json:"email" form:"email"`
	UserRole             string `json:"user_role" form:"user_role"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// userPayload is the user as serialized in responses, with roles attached.
type userPayload struct {
	repository.User
	Roles []repository.Role `json:"roles"`
}

// Register creates a user account, attaches the chosen role and publishes
// a welcome-mail event. The duplicate-email check runs before field
// validation; a concurrent duplicate insert is still caught by the unique
// index and reported with the same message.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	ctx := c.Request().Context()

	if req.Email != "" {
		exists, err := h.Users.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
		}
		if exists {
			return respond(c, http.StatusConflict, true, "Email already exists in the system", nil)
		}
	}

	if verr := validate.First(
		validate.Required(req.Firstname, "Firstname is required."),
		validate.Required(req.Lastname, "Lastname is required."),
		validate.Required(req.Email, "Email is required."),
		validate.Required(req.UserRole, "User role is required."),
		validate.Required(req.Password, "The password field is required."),
		validate.Min(req.Password, 4, []string{"The password must be at least 4 characters."}),
		validate.Confirmed(req.Password, req.PasswordConfirmation, []string{"The password confirmation does not match."}),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}

	roleID, err := strconv.ParseUint(req.UserRole, 10, 64)
	if err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "User role not found", nil)
	}
	role, err := h.Roles.GetByID(ctx, roleID)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return respond(c, http.StatusUnprocessableEntity, true, "User role not found", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
	}

	tx, err := h.Users.DB.BeginTx(ctx, nil)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	userID, err := h.Users.CreateTx(ctx, tx, req.Firstname, req.Lastname, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respond(c, http.StatusConflict, true, "Email already exists in the system", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
	}
	if err := h.Roles.AttachTx(ctx, tx, userID, role.ID); err != nil {
		return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
	}
	if err := tx.Commit(); err != nil {
		return respond(c, http.StatusInternalServerError, true, "User account could not be created", nil)
	}
	committed = true

	if h.Notify != nil {
		_ = h.Notify.UserRegistered(ctx, queue.UserRegisteredEvent{
			UserID:       userID,
			Email:        req.Email,
			Firstname:    req.Firstname,
			Subject:      "Welcome on board",
			RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	msg := "User account created successfully, Please check your mail :" + req.Email + " for more details"
	return respond(c, http.StatusCreated, false, msg, nil)
}

// Login verifies credentials and issues an access token. Credentials are
// checked before the active flag so a deactivated user cannot probe
// whether a password is correct without knowing it.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusUnprocessableEntity, true, "invalid request body", nil)
	}
	ctx := c.Request().Context()

	if verr := validate.First(
		validate.Required(req.Email, "email is required."),
		validate.Required(req.Password, "password is required."),
	); verr != nil {
		return respond(c, http.StatusUnprocessableEntity, true, verr.Message, nil)
	}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusUnauthorized, true, "You have not yet registered on this platform", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Login failed", nil)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respond(c, http.StatusUnauthorized, true, "Incorrect email or password", nil)
	}
	// Only the exact sentinel 1 counts as active.
	if u.IsActive != 1 {
		return respond(c, http.StatusUnauthorized, true, "You are no longer active on this platform", nil)
	}

	roles, err := h.Roles.ListForUser(ctx, u.ID)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Login failed", nil)
	}
	slugs := make([]string, 0, len(roles))
	for _, r := range roles {
		slugs = append(slugs, r.Slug)
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, slugs, h.Cfg.AccessTTLMin)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Login failed", nil)
	}

	data := echo.Map{
		"user":        userPayload{User: u, Roles: roles},
		"accessToken": tok.Token,
		"tokenType":   "bearer",
		"expiresIn":   h.Cfg.AccessTTLMin * 60,
	}
	return respond(c, http.StatusOK, false, "You are logged in successfully", data)
}

// Logout revokes the presented token by putting its jti on the denylist
// for the remainder of the token's lifetime.
func (h *AuthHandler) Logout(c echo.Context) error {
	jti, _ := c.Get("token_jti").(string)
	exp, _ := c.Get("token_exp").(time.Time)

	ttl := time.Until(exp)
	if jti != "" && ttl > 0 {
		_ = h.Deny.Revoke(c.Request().Context(), jti, ttl)
	}
	return respond(c, http.StatusOK, false, "Successfully logged out", nil)
}

// Me returns the authenticated user's profile with roles.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respond(c, http.StatusUnauthorized, true, "invalid token", nil)
	}
	ctx := c.Request().Context()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusNotFound, true, "User not found", nil)
		}
		return respond(c, http.StatusInternalServerError, true, "Could not load profile", nil)
	}
	roles, err := h.Roles.ListForUser(ctx, u.ID)
	if err != nil {
		return respond(c, http.StatusInternalServerError, true, "Could not load profile", nil)
	}
	return respond(c, http.StatusOK, false, nil, userPayload{User: u, Roles: roles})
}
