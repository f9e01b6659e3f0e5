package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService registers users and issues login tokens.
type AuthService struct {
	Users       UserStore
	Secret      []byte
	TTL         time.Duration
	AdminEmails []string
}

// Register stores a new user with a bcrypt password hash.
func (s AuthService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = utils.NormalizeSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return models.User{}, domain.ValidationError{Field: "name", Msg: "required"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, domain.ValidationError{Field: "email", Msg: "invalid address"}
	}
	if len(password) < minPasswordLen {
		return models.User{}, domain.ValidationError{Field: "password", Msg: "too short"}
	}

	if _, err := s.Users.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, domain.ValidationError{Field: "email", Msg: "user already exists"}
	} else if !domain.IsNotFound(err) {
		return models.User{}, storeErr("register", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "hash password", Err: err}
	}
	u := models.User{
		ID:           idSource(s.Users)(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         s.roleFor(email),
		CreatedAt:    utils.NowUTC(),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return models.User{}, storeErr("register", err)
	}
	utils.LogEvent(domain.FromContext(ctx).RequestID, "auth", "register", "user_id="+u.ID)
	return u, nil
}

// Login checks the password and returns a signed token with the user.
func (s AuthService) Login(ctx context.Context, email, password string) (string, models.User, error) {
	bad := domain.UnauthorizedError{Msg: "invalid credentials"}
	u, err := s.Users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.IsNotFound(err) {
			return "", models.User{}, bad
		}
		return "", models.User{}, storeErr("login", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.User{}, bad
	}
	token, err := s.IssueToken(u)
	if err != nil {
		return "", models.User{}, err
	}
	utils.LogEvent(domain.FromContext(ctx).RequestID, "auth", "login", "user_id="+u.ID)
	return token, u, nil
}

func (s AuthService) IssueToken(u models.User) (string, error) {
	ttl := s.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", domain.InternalError{Msg: "sign token", Err: err}
	}
	return signed, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func (s AuthService) ParseToken(raw string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, domain.UnauthorizedError{Msg: "token expired"}
		}
		return Claims{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	if claims.UserID == "" {
		return Claims{}, domain.UnauthorizedError{Msg: "invalid token"}
	}
	return claims, nil
}

func (s AuthService) roleFor(email string) string {
	for _, a := range s.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(a), email) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
