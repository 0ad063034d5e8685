package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// UserStore — хранилище учетных записей.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// ActivityWriter пишет строки в общую ленту активности.
type ActivityWriter interface {
	InsertActivity(ctx context.Context, entry *domain.ActivityLog) error
}

// AuthService — регистрация, вход и обновление токенов.
type AuthService struct {
	users    UserStore
	activity ActivityWriter
	tokens   *auth.Manager
}

func NewAuthService(users UserStore, activity ActivityWriter, tokens *auth.Manager) *AuthService {
	return &AuthService{users: users, activity: activity, tokens: tokens}
}

type RegisterRequest struct {
	Email    string
	Username string
	Password string
	FullName *string
}

// Register создает пользователя с глобальной ролью viewer.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if req.Email == "" || req.Username == "" {
		return nil, fmt.Errorf("%w: email and username are required", domain.ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:          req.Email,
		Username:       req.Username,
		HashedPassword: hashed,
		FullName:       req.FullName,
		Role:           domain.RoleViewer,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// TokenPair — пара токенов для клиента.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Login проверяет пароль и выпускает пару токенов. Неверные учетные данные
// и несуществующий пользователь неразличимы для клиента.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, *domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
		}
		return nil, nil, err
	}

	if !auth.VerifyPassword(password, user.HashedPassword) {
		return nil, nil, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, nil, fmt.Errorf("%w: account is deactivated", domain.ErrForbidden)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	resourceType := "user"
	err = s.activity.InsertActivity(ctx, &domain.ActivityLog{
		UserID:       user.ID,
		Action:       "auth.login",
		ResourceType: &resourceType,
	})
	if err != nil {
		return nil, nil, err
	}

	return pair, user, nil
}

// Refresh обменивает живой refresh-токен на новый access-токен.
// Сам refresh-токен возвращается без изменений.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", domain.ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", domain.ErrInvalidToken)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrForbidden)
	}

	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (s *AuthService) issuePair(user *domain.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// Me возвращает профиль текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers — справочник пользователей для выдачи прав.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}
