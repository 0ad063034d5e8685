package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/malipravin2580/Data-Manager/internal/auth"
	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// ShareLinkStore — хранилище share-ссылок.
type ShareLinkStore interface {
	Create(ctx context.Context, link *domain.ShareLink) error
	GetByToken(ctx context.Context, token string) (*domain.ShareLink, error)
	GetByID(ctx context.Context, id int64) (*domain.ShareLink, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]domain.ShareLink, error)
	ConsumeView(ctx context.Context, id int64) (*domain.ShareLink, bool, error)
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// ShareService выпускает и проверяет анонимные ссылки на файлы.
type ShareService struct {
	links             ShareLinkStore
	frontendURL       string
	defaultExpireDays int
}

func NewShareService(links ShareLinkStore, frontendURL string, defaultExpireDays int) *ShareService {
	return &ShareService{
		links:             links,
		frontendURL:       frontendURL,
		defaultExpireDays: defaultExpireDays,
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// CreateShareParams — параметры новой ссылки. Проверку права view на файл
// делает вызывающая сторона.
type CreateShareParams struct {
	FilePath    string
	CreatorID   int64
	Permission  domain.PermissionLevel
	ExpiresDays int
	Password    *string
	MaxViews    *int
}

func (s *ShareService) Create(ctx context.Context, params CreateShareParams) (*domain.ShareLink, error) {
	if params.FilePath == "" {
		return nil, fmt.Errorf("%w: file_path is required", domain.ErrValidation)
	}
	if params.MaxViews != nil && *params.MaxViews <= 0 {
		return nil, fmt.Errorf("%w: max_views must be positive", domain.ErrValidation)
	}
	if params.Permission == "" {
		params.Permission = domain.PermissionView
	}
	if params.ExpiresDays <= 0 {
		params.ExpiresDays = s.defaultExpireDays
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	var passwordHash *string
	if params.Password != nil && *params.Password != "" {
		hashed, err := auth.HashPassword(*params.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		passwordHash = &hashed
	}

	link := &domain.ShareLink{
		Token:        token,
		FilePath:     params.FilePath,
		CreatorID:    params.CreatorID,
		Permission:   params.Permission,
		ExpiresAt:    time.Now().UTC().AddDate(0, 0, params.ExpiresDays),
		PasswordHash: passwordHash,
		MaxViews:     params.MaxViews,
	}

	if err := s.links.Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Validate проверяет токен и списывает один просмотр. Невалидная ссылка —
// ожидаемый исход, а не ошибка: возвращается (nil, nil) для неизвестного
// токена, погашенной или истекшей ссылки, неверного пароля и исчерпанного
// лимита. Каждая успешная проверка потребляет просмотр; вызов, который
// исчерпывает лимит, еще успешен и при этом гасит ссылку навсегда.
func (s *ShareService) Validate(ctx context.Context, token string, password string) (*domain.ShareLink, error) {
	link, err := s.links.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil || !link.IsActive || link.Expired(time.Now().UTC()) {
		return nil, nil
	}

	if link.PasswordHash != nil {
		if password == "" || !auth.VerifyPassword(password, *link.PasswordHash) {
			return nil, nil
		}
	}

	if link.Exhausted() {
		if err := s.links.Deactivate(ctx, link.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	updated, consumed, err := s.links.ConsumeView(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// Лимит выбрали между чтением и списанием.
		if err := s.links.Deactivate(ctx, link.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return updated, nil
}

func (s *ShareService) MyLinks(ctx context.Context, creatorID int64) ([]domain.ShareLink, error) {
	return s.links.ListByCreator(ctx, creatorID)
}

// Delete удаляет ссылку. Разрешено только ее создателю.
func (s *ShareService) Delete(ctx context.Context, id, callerID int64) error {
	link, err := s.links.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if link.CreatorID != callerID {
		return fmt.Errorf("%w: not your share link", domain.ErrForbidden)
	}
	return s.links.Delete(ctx, id)
}

// ShareURL строит публичный адрес ссылки.
func (s *ShareService) ShareURL(token string) string {
	return strings.TrimSuffix(s.frontendURL, "/") + "/share/" + token
}
