package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/response"
	"github.com/avolkov/sonet/internal/service"
)

// UserHandler handles user registration, login and the user read surface
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterRequest is the POST /user/register payload
type RegisterRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	SecondName string `json:"second_name" binding:"required"`
	Birthdate  string `json:"birthdate"`
	Biography  string `json:"biography"`
	City       string `json:"city"`
	Password   string `json:"password" binding:"required"`
}

// Register handles POST /user/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	birthdate, err := parseBirthdate(req.Birthdate)
	if err != nil {
		response.BadRequest(c, "invalid birthdate")
		return
	}

	user, err := h.userService.Register(c.Request.Context(), service.RegisterRequest{
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
		Birthdate:  birthdate,
		Biography:  req.Biography,
		City:       req.City,
		Password:   req.Password,
	})
	if err != nil {
		appLogger.Error("Failed to register user", zap.Error(err))
		response.InternalError(c, "failed to register user")
		return
	}

	response.OK(c, gin.H{"user_id": user.ID})
}

// LoginRequest is the POST /login payload
type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.ID)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	token, err := h.userService.Login(c.Request.Context(), userID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid credentials")
			return
		}
		appLogger.Error("Failed to login", zap.Error(err))
		response.InternalError(c, "failed to login")
		return
	}

	response.OK(c, gin.H{"token": token})
}

// List handles GET /user
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		appLogger.Error("Failed to list users", zap.Error(err))
		response.InternalError(c, "failed to list users")
		return
	}
	response.OK(c, users)
}

// Get handles GET /user/get/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		appLogger.Error("Failed to get user", zap.Error(err))
		response.InternalError(c, "failed to get user")
		return
	}

	response.OK(c, user)
}

// Search handles GET /user/search?first_name&last_name
func (h *UserHandler) Search(c *gin.Context) {
	firstName := c.Query("first_name")
	lastName := c.Query("last_name")
	if firstName == "" && lastName == "" {
		response.BadRequest(c, "first_name or last_name is required")
		return
	}

	users, err := h.userService.Search(c.Request.Context(), firstName, lastName)
	if err != nil {
		appLogger.Error("Failed to search users", zap.Error(err))
		response.InternalError(c, "failed to search users")
		return
	}

	response.OK(c, users)
}

func parseBirthdate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}
