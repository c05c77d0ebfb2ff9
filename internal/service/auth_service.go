package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/assesshub/assesshub-backend/internal/config"
	"github.com/assesshub/assesshub-backend/internal/model"
	"github.com/assesshub/assesshub-backend/internal/repository"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	AuthorID int    `json:"author_id"`
	Email    string `json:"email"`
}

// AuthService handles author authentication and JWT issuance. Candidate
// operations are unauthenticated by design — gated only by slug knowledge.
type AuthService struct {
	cfg     *config.Config
	authors *repository.AuthorRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, authors *repository.AuthorRepository) *AuthService {
	return &AuthService{cfg: cfg, authors: authors}
}

// Login verifies credentials and returns a signed JWT plus the author.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Author, error) {
	author, err := s.authors.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get author: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(author.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(author)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, author, nil
}

// GetAuthor loads the author behind a validated token's claims.
func (s *AuthService) GetAuthor(ctx context.Context, authorID int) (*model.Author, error) {
	author, err := s.authors.GetByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return author, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// ValidateToken parses and validates a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateToken(author *model.Author) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(author.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		AuthorID: author.ID,
		Email:    author.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
