package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov/sonet/internal/config"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/repository"
)

// RegisterRequest carries the profile fields accepted at registration
type RegisterRequest struct {
	FirstName  string
	SecondName string
	Birthdate  time.Time
	Biography  string
	City       string
	Password   string
}

// TokenValidator is the slice of UserService the auth middleware needs
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// UserService covers registration, login and the user read surface. Tokens
// are signed JWTs whose claims carry a session id; the session row is the
// revocation authority, the signature only gates parsing.
type UserService interface {
	TokenValidator
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, userID uuid.UUID, password string) (string, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Search(ctx context.Context, firstName, secondName string) ([]*models.User, error)
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// userService implements UserService
type userService struct {
	users    repository.UserRepository
	sessions repository.SessionStorage
	jwtCfg   *config.JWTConfig
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repository.UserRepository,
	sessionStorage repository.SessionStorage,
	jwtCfg *config.JWTConfig,
) UserService {
	return &userService{
		users:    userRepo,
		sessions: sessionStorage,
		jwtCfg:   jwtCfg,
	}
}

// Register hashes the password and creates the user row
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		FirstName:    req.FirstName,
		SecondName:   req.SecondName,
		Birthdate:    req.Birthdate,
		Biography:    req.Biography,
		City:         req.City,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies the password, persists a session and signs the bearer token
func (s *userService) Login(ctx context.Context, userID uuid.UUID, password string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	session := &models.Session{
		ID:          uuid.New(),
		UserID:      user.ID,
		TimeCreated: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()
	claims := sessionClaims{
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.Expiration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// ValidateToken parses the bearer token and checks the session still exists
func (s *userService) ValidateToken(ctx context.Context, token string) (uuid.UUID, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}

// Get loads a user by id
func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// List returns every user
func (s *userService) List(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// Search matches users by name prefixes
func (s *userService) Search(ctx context.Context, firstName, secondName string) ([]*models.User, error) {
	return s.users.Search(ctx, firstName, secondName)
}
