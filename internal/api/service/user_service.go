package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ctchen222/Battleship/internal/api/models"
	"ctchen222/Battleship/internal/api/repository"
	"ctchen222/Battleship/internal/validator"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 72 * time.Hour

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username may only contain letters, digits, '.', '_' and '-'")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	// VerifyToken returns the username a token was issued to.
	VerifyToken(token string) (string, error)
}

type userService struct {
	userRepo repository.UserRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewUserService creates a new UserService signing HS256 tokens with secret.
// A non-positive ttl falls back to 72 hours.
func NewUserService(userRepo repository.UserRepository, secret string, ttl time.Duration) UserService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &userService{userRepo: userRepo, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Register handles user registration.
func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) error {
	if err := validator.GetValidator().Var(req.Username, "username"); err != nil {
		return ErrInvalidUsername
	}

	existingUser, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existingUser != nil {
		return ErrUsernameTaken
	}

	return s.userRepo.CreateUser(ctx, &models.User{Username: req.Username}, req.Password)
}

// Login checks the password and returns a signed token on success.
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": strconv.FormatInt(user.ID, 10),
		"un":  user.Username,
		"exp": s.now().Add(s.ttl).Unix(),
	})
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.LoginResponse{Token: tokenString, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

func (s *userService) VerifyToken(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	username, _ := claims["un"].(string)
	if username == "" {
		return "", fmt.Errorf("%w: missing username claim", ErrInvalidToken)
	}
	return username, nil
}
