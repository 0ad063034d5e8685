package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// EffectiveLevels возвращает уровни всех строк ACL, действующих на
// пользователя: прямые гранты плюс гранты командам, где он состоит.
func (r *PermissionRepository) EffectiveLevels(ctx context.Context, userID int64, filePath string) ([]domain.PermissionLevel, error) {
	query := `
        SELECT permission FROM file_permissions
        WHERE file_path = $1
        AND (
            user_id = $2
            OR team_id IN (SELECT team_id FROM team_members WHERE user_id = $2)
        )`

	var levels []domain.PermissionLevel
	if err := r.db.SelectContext(ctx, &levels, query, filePath, userID); err != nil {
		return nil, fmt.Errorf("failed to get effective levels: %w", err)
	}
	return levels, nil
}

func (r *PermissionRepository) ListForFile(ctx context.Context, filePath string) ([]domain.FilePermission, error) {
	var perms []domain.FilePermission
	err := r.db.SelectContext(
		ctx,
		&perms,
		`SELECT * FROM file_permissions WHERE file_path = $1 ORDER BY granted_at ASC, id ASC`,
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list file permissions: %w", err)
	}
	return perms, nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*domain.FilePermission, error) {
	var perm domain.FilePermission
	err := r.db.GetContext(ctx, &perm, `SELECT * FROM file_permissions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: permission %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

// UpsertTx вставляет или обновляет грант для пары (путь, цель) в рамках
// переданной транзакции. Возвращает прежний уровень, если строка существовала.
func (r *PermissionRepository) UpsertTx(ctx context.Context, q sqlx.ExtContext, perm *domain.FilePermission) (*domain.PermissionLevel, error) {
	var existing domain.FilePermission
	var err error
	if perm.UserID != nil {
		err = sqlx.GetContext(ctx, q, &existing,
			`SELECT * FROM file_permissions WHERE file_path = $1 AND user_id = $2 FOR UPDATE`,
			perm.FilePath, *perm.UserID)
	} else {
		err = sqlx.GetContext(ctx, q, &existing,
			`SELECT * FROM file_permissions WHERE file_path = $1 AND team_id = $2 FOR UPDATE`,
			perm.FilePath, *perm.TeamID)
	}

	if err == nil {
		old := existing.Permission
		_, err = q.ExecContext(
			ctx,
			`UPDATE file_permissions SET permission = $1, granted_by = $2, granted_at = CURRENT_TIMESTAMP WHERE id = $3`,
			perm.Permission,
			perm.GrantedBy,
			existing.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update permission: %w", err)
		}
		perm.ID = existing.ID
		return &old, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing permission: %w", err)
	}

	err = q.QueryRowxContext(
		ctx,
		`INSERT INTO file_permissions (file_path, user_id, team_id, permission, granted_by)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, granted_at`,
		perm.FilePath,
		perm.UserID,
		perm.TeamID,
		perm.Permission,
		perm.GrantedBy,
	).Scan(&perm.ID, &perm.GrantedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert permission: %w", err)
	}
	return nil, nil
}

func (r *PermissionRepository) DeleteTx(ctx context.Context, q sqlx.ExtContext, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM file_permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: permission %d", domain.ErrNotFound, id)
	}
	return nil
}

// DeleteAllForFileTx снимает все гранты с пути. Используется при удалении файла.
func (r *PermissionRepository) DeleteAllForFileTx(ctx context.Context, q sqlx.ExtContext, filePath string) error {
	_, err := q.ExecContext(ctx, `DELETE FROM file_permissions WHERE file_path = $1`, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete permissions for %s: %w", filePath, err)
	}
	return nil
}

// ListViewablePaths отбирает из paths те, на которые у пользователя есть хотя
// бы какой-нибудь грант (прямой или через команду).
func (r *PermissionRepository) ListViewablePaths(ctx context.Context, userID int64, paths []string) (map[string]bool, error) {
	if len(paths) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := sqlx.In(`
        SELECT DISTINCT file_path FROM file_permissions
        WHERE file_path IN (?)
        AND (
            user_id = ?
            OR team_id IN (SELECT team_id FROM team_members WHERE user_id = ?)
        )`, paths, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var viewable []string
	if err := r.db.SelectContext(ctx, &viewable, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list viewable paths: %w", err)
	}

	result := make(map[string]bool, len(viewable))
	for _, p := range viewable {
		result[p] = true
	}
	return result, nil
}
