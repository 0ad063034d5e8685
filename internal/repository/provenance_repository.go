package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// ProvenanceRepository владеет журналами доступа, аудита прав и графом
// происхождения. Все таблицы append-only: кроме INSERT здесь только SELECT.
type ProvenanceRepository struct {
	db *sqlx.DB
}

func NewProvenanceRepository(db *sqlx.DB) *ProvenanceRepository {
	return &ProvenanceRepository{db: db}
}

func (r *ProvenanceRepository) InsertProvenanceTx(ctx context.Context, q sqlx.ExtContext, rec *domain.FileProvenance) error {
	err := q.QueryRowxContext(
		ctx,
		`INSERT INTO file_provenance (
            file_path, source_file_path, transformation_type,
            transformation_details, created_by
         ) VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at`,
		rec.FilePath,
		rec.SourceFilePath,
		rec.TransformationType,
		rec.TransformationDetails,
		rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert provenance record: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) InsertAccessLogTx(ctx context.Context, q sqlx.ExtContext, entry *domain.FileAccessLog) error {
	err := q.QueryRowxContext(
		ctx,
		`INSERT INTO file_access_logs (file_path, user_id, action, ip_address, user_agent, details)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at`,
		entry.FilePath,
		entry.UserID,
		entry.Action,
		entry.IPAddress,
		entry.UserAgent,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert access log: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) InsertAccessLog(ctx context.Context, entry *domain.FileAccessLog) error {
	return r.InsertAccessLogTx(ctx, r.db, entry)
}

func (r *ProvenanceRepository) InsertPermissionAuditTx(ctx context.Context, q sqlx.ExtContext, entry *domain.PermissionAuditLog) error {
	err := q.QueryRowxContext(
		ctx,
		`INSERT INTO permission_audit_logs (
            file_path, action, target_user_id, target_team_id,
            old_permission, new_permission, performed_by
         ) VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at`,
		entry.FilePath,
		entry.Action,
		entry.TargetUserID,
		entry.TargetTeamID,
		entry.OldPermission,
		entry.NewPermission,
		entry.PerformedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert permission audit log: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) InsertActivityTx(ctx context.Context, q sqlx.ExtContext, entry *domain.ActivityLog) error {
	err := q.QueryRowxContext(
		ctx,
		`INSERT INTO activity_logs (
            user_id, action, resource_type, resource_id,
            details, ip_address, user_agent
         ) VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id, created_at`,
		entry.UserID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Details,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) InsertActivity(ctx context.Context, entry *domain.ActivityLog) error {
	return r.InsertActivityTx(ctx, r.db, entry)
}

// EdgesByFile возвращает ребра, у которых путь является выходом,
// от старых к новым.
func (r *ProvenanceRepository) EdgesByFile(ctx context.Context, filePath string) ([]domain.FileProvenance, error) {
	var edges []domain.FileProvenance
	err := r.db.SelectContext(
		ctx,
		&edges,
		`SELECT * FROM file_provenance
         WHERE file_path = $1
         ORDER BY created_at ASC, id ASC`,
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get provenance edges: %w", err)
	}
	return edges, nil
}

// EdgesBySource возвращает ребра, у которых путь является входом,
// от новых к старым.
func (r *ProvenanceRepository) EdgesBySource(ctx context.Context, filePath string) ([]domain.FileProvenance, error) {
	var edges []domain.FileProvenance
	err := r.db.SelectContext(
		ctx,
		&edges,
		`SELECT * FROM file_provenance
         WHERE source_file_path = $1
         ORDER BY created_at DESC, id DESC`,
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get provenance edges by source: %w", err)
	}
	return edges, nil
}

// EdgesByFiles — пакетная выборка ребер для фронта обхода графа вверх.
func (r *ProvenanceRepository) EdgesByFiles(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error) {
	if len(filePaths) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM file_provenance WHERE file_path IN (?)`, filePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var edges []domain.FileProvenance
	if err := r.db.SelectContext(ctx, &edges, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get provenance edges batch: %w", err)
	}
	return edges, nil
}

// EdgesBySources — пакетная выборка ребер для фронта обхода графа вниз.
func (r *ProvenanceRepository) EdgesBySources(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error) {
	if len(filePaths) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM file_provenance WHERE source_file_path IN (?)`, filePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var edges []domain.FileProvenance
	if err := r.db.SelectContext(ctx, &edges, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get provenance edges batch: %w", err)
	}
	return edges, nil
}

func (r *ProvenanceRepository) AccessHistory(ctx context.Context, filePath string, limit int) ([]domain.FileAccessLog, error) {
	var logs []domain.FileAccessLog
	err := r.db.SelectContext(
		ctx,
		&logs,
		`SELECT * FROM file_access_logs
         WHERE file_path = $1
         ORDER BY created_at DESC, id DESC
         LIMIT $2`,
		filePath,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get access history: %w", err)
	}
	return logs, nil
}

func (r *ProvenanceRepository) PermissionAuditHistory(ctx context.Context, filePath string, limit int) ([]domain.PermissionAuditLog, error) {
	var logs []domain.PermissionAuditLog
	err := r.db.SelectContext(
		ctx,
		&logs,
		`SELECT * FROM permission_audit_logs
         WHERE file_path = $1
         ORDER BY created_at DESC, id DESC
         LIMIT $2`,
		filePath,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get permission audit history: %w", err)
	}
	return logs, nil
}

// AuditFeedFilter — фильтры глобальной ленты аудита прав.
type AuditFeedFilter struct {
	FilePath    string
	PerformedBy *int64
	Days        int
	Limit       int
}

func (r *ProvenanceRepository) PermissionAuditFeed(ctx context.Context, filter AuditFeedFilter) ([]domain.PermissionAuditLog, error) {
	query := `SELECT * FROM permission_audit_logs WHERE created_at >= $1`
	args := []interface{}{time.Now().UTC().AddDate(0, 0, -filter.Days)}

	if filter.FilePath != "" {
		args = append(args, filter.FilePath)
		query += ` AND file_path = $` + strconv.Itoa(len(args))
	}
	if filter.PerformedBy != nil {
		args = append(args, *filter.PerformedBy)
		query += ` AND performed_by = $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	var logs []domain.PermissionAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get permission audit feed: %w", err)
	}
	return logs, nil
}

// AccessFeedFilter — фильтры ленты активности поверх журнала доступа.
type AccessFeedFilter struct {
	UserID   *int64
	FilePath string
	Action   string
	Days     int
	Limit    int
}

func (r *ProvenanceRepository) AccessFeed(ctx context.Context, filter AccessFeedFilter) ([]domain.FileAccessLog, error) {
	query := `SELECT * FROM file_access_logs WHERE created_at >= $1`
	args := []interface{}{time.Now().UTC().AddDate(0, 0, -filter.Days)}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if filter.FilePath != "" {
		args = append(args, filter.FilePath)
		query += ` AND file_path = $` + strconv.Itoa(len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	var logs []domain.FileAccessLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get access feed: %w", err)
	}
	return logs, nil
}
