package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

// Service handles registration, login and token verification.
type Service struct {
	users    repositories.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewService(users repositories.UserRepository, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		users:    users,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Claims carried in every issued token.
type Claims struct {
	UserID int64           `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     models.UserRole
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.InvalidArgument("a valid email is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.InvalidArgument("name is required")
	}
	if len(in.Password) < 8 {
		return nil, errs.InvalidArgument("password must be at least 8 characters")
	}
	if len(in.Password) > 72 {
		// bcrypt truncates beyond 72 bytes.
		return nil, errs.InvalidArgument("password too long (max 72 characters)")
	}

	role := in.Role
	switch role {
	case "":
		role = models.UserRoleBuyer
	case models.UserRoleBuyer, models.UserRoleSeller:
	default:
		return nil, errs.InvalidArgument("invalid role %q", in.Role)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.Conflict("an account with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Internal("failed to hash password", err)
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials and returns a signed token plus the user.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, errs.Forbidden("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, errs.Forbidden("invalid email or password")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, errs.Internal("failed to sign token", err)
	}
	return signed, user, nil
}

// VerifyToken parses and validates a token, returning its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Forbidden("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errs.Forbidden("invalid or expired token")
	}
	return claims, nil
}
