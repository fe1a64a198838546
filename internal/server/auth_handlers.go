package server

import (
	"strconv"
	"strings"
	"time"

	"snapgram/internal/cache"
	"snapgram/internal/middleware"
	"snapgram/internal/models"
	"snapgram/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
	FullName string `json:"full_name" validate:"max=100"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	Token            string      `json:"token"`
	ExpiresAt        time.Time   `json:"expires_at"`
	RefreshToken     string      `json:"refresh_token"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
	User             models.User `json:"user"`
}

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body signupRequest true "Signup request"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	user, err := s.users.Signup(c.UserContext(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate with a username or email and return a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}
	if identifier == "" {
		return models.RespondWithAppError(c, models.NewValidationError("Username or email is required"))
	}

	user, err := s.users.Authenticate(c.UserContext(), identifier, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return s.respondWithToken(c, fiber.StatusOK, user)
}

// Refresh handles POST /api/auth/refresh. The presented refresh token is
// revoked and a new token pair is issued, so each refresh token works once.
// @Summary Refresh tokens
// @Description Exchange a refresh token for a new access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh token"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bindBody(c, &req); err != nil {
		return nil
	}

	claims, err := middleware.ParseToken(s.config.JWTSecret, req.RefreshToken)
	if err != nil || claims.Type != middleware.TokenTypeRefresh {
		return models.RespondWithAppError(c, models.NewUnauthorizedError("Invalid or expired refresh token"))
	}
	if s.isRevoked(c, claims.JTI) {
		return models.RespondWithAppError(c, models.NewUnauthorizedError("Refresh token has been revoked"))
	}

	user, err := s.users.GetByID(c.UserContext(), claims.UserID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.RespondWithAppError(c, models.NewUnauthorizedError("Invalid or expired refresh token"))
		}
		return models.RespondWithAppError(c, err)
	}

	if err := s.revoke(c, claims); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return s.respondWithToken(c, fiber.StatusOK, user)
}

// Logout handles POST /api/auth/logout. The access token's jti, and the
// refresh token's when one is sent, are blacklisted until they would have
// expired anyway.
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Param request body logoutRequest false "Refresh token to revoke"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, ok := c.Locals("tokenClaims").(middleware.TokenClaims); ok {
		if err := s.revoke(c, claims); err != nil {
			return models.RespondWithAppError(c, models.NewInternalError(err))
		}
	}

	var req logoutRequest
	if len(c.Body()) > 0 && c.BodyParser(&req) == nil && req.RefreshToken != "" {
		refresh, err := middleware.ParseToken(s.config.JWTSecret, req.RefreshToken)
		if err == nil && refresh.Type == middleware.TokenTypeRefresh && refresh.UserID == actorID(c) {
			if err := s.revoke(c, refresh); err != nil {
				return models.RespondWithAppError(c, models.NewInternalError(err))
			}
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// revoke blacklists the token's jti for the rest of its lifetime.
func (s *Server) revoke(c *fiber.Ctx, claims middleware.TokenClaims) error {
	if s.redis == nil || claims.JTI == "" {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.JTI), "1", ttl).Err()
}

func (s *Server) isRevoked(c *fiber.Ctx, jti string) bool {
	if s.redis == nil || jti == "" {
		return false
	}
	n, err := s.redis.Exists(c.UserContext(), cache.BlacklistKey(jti)).Result()
	return err == nil && n > 0
}

// IssueWSTicket handles POST /api/ws/ticket. The ticket authenticates a
// single websocket upgrade within cache.TicketTTL.
// @Summary Issue a websocket ticket
// @Tags realtime
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Realtime tickets are unavailable",
		})
	}

	ticket := uuid.NewString()
	userID := strconv.FormatUint(uint64(actorID(c)), 10)
	if err := s.redis.Set(c.UserContext(), cache.WSTicketKey(ticket), userID, cache.TicketTTL).Err(); err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.TicketTTL.Seconds()),
	})
}

// GetMe handles GET /api/users/me
// @Summary Current user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.users.GetByID(c.UserContext(), actorID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(user)
}

func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	now := time.Now()
	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, now)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	refresh, refreshClaims, err := middleware.IssueRefreshToken(s.config.JWTSecret, user.ID, user.Username, now)
	if err != nil {
		return models.RespondWithAppError(c, models.NewInternalError(err))
	}
	return c.Status(status).JSON(authResponse{
		Token:            token,
		ExpiresAt:        claims.ExpiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshClaims.ExpiresAt,
		User:             *user,
	})
}
