package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

type ShareLinkRepository struct {
	db *sqlx.DB
}

func NewShareLinkRepository(db *sqlx.DB) *ShareLinkRepository {
	return &ShareLinkRepository{db: db}
}

func (r *ShareLinkRepository) Create(ctx context.Context, link *domain.ShareLink) error {
	query := `
        INSERT INTO share_links (
            token, file_path, creator_id, permission,
            expires_at, password_hash, max_views
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, is_active, view_count, created_at`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		link.Token,
		link.FilePath,
		link.CreatorID,
		link.Permission,
		link.ExpiresAt,
		link.PasswordHash,
		link.MaxViews,
	).Scan(&link.ID, &link.IsActive, &link.ViewCount, &link.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create share link: %w", err)
	}
	return nil
}

func (r *ShareLinkRepository) GetByToken(ctx context.Context, token string) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, `SELECT * FROM share_links WHERE token = $1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get share link by token: %w", err)
	}
	return &link, nil
}

func (r *ShareLinkRepository) GetByID(ctx context.Context, id int64) (*domain.ShareLink, error) {
	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, `SELECT * FROM share_links WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: share link %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get share link: %w", err)
	}
	return &link, nil
}

func (r *ShareLinkRepository) ListByCreator(ctx context.Context, creatorID int64) ([]domain.ShareLink, error) {
	var links []domain.ShareLink
	err := r.db.SelectContext(
		ctx,
		&links,
		`SELECT * FROM share_links WHERE creator_id = $1 ORDER BY created_at DESC, id DESC`,
		creatorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list share links: %w", err)
	}
	return links, nil
}

// ConsumeView атомарно списывает один просмотр. Вызов, который доводит
// счетчик до max_views, одновременно деактивирует ссылку; проигравший
// гонку за последний просмотр не проходит условие WHERE и получает false.
// Счетчик никогда не превышает max_views.
func (r *ShareLinkRepository) ConsumeView(ctx context.Context, id int64) (*domain.ShareLink, bool, error) {
	query := `
        UPDATE share_links
        SET view_count = view_count + 1,
            is_active = NOT (max_views IS NOT NULL AND view_count + 1 >= max_views)
        WHERE id = $1
        AND is_active
        AND (max_views IS NULL OR view_count < max_views)
        RETURNING *`

	var link domain.ShareLink
	err := r.db.GetContext(ctx, &link, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to consume view: %w", err)
	}
	return &link, true, nil
}

// Deactivate гасит ссылку навсегда. Пути обратно нет.
func (r *ShareLinkRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE share_links SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate share link: %w", err)
	}
	return nil
}

func (r *ShareLinkRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM share_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete share link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: share link %d", domain.ErrNotFound, id)
	}
	return nil
}
