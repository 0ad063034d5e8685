package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// PermissionStore — доступ к строкам ACL.
type PermissionStore interface {
	EffectiveLevels(ctx context.Context, userID int64, filePath string) ([]domain.PermissionLevel, error)
	ListForFile(ctx context.Context, filePath string) ([]domain.FilePermission, error)
	GetByID(ctx context.Context, id int64) (*domain.FilePermission, error)
	UpsertTx(ctx context.Context, q sqlx.ExtContext, perm *domain.FilePermission) (*domain.PermissionLevel, error)
	DeleteTx(ctx context.Context, q sqlx.ExtContext, id int64) error
}

// PermissionAuditWriter пишет записи аудита прав в рамках транзакции.
type PermissionAuditWriter interface {
	InsertPermissionAuditTx(ctx context.Context, q sqlx.ExtContext, entry *domain.PermissionAuditLog) error
}

// PermissionService отвечает на вопрос "достаточно ли прав" и ведет
// жизненный цикл грантов. Глобальная роль пользователя здесь не участвует:
// файл без строк ACL недоступен никому, включая администраторов.
type PermissionService struct {
	db    *sqlx.DB
	perms PermissionStore
	audit PermissionAuditWriter
}

func NewPermissionService(db *sqlx.DB, perms PermissionStore, audit PermissionAuditWriter) *PermissionService {
	return &PermissionService{db: db, perms: perms, audit: audit}
}

// Check сравнивает эффективный ранг пользователя с требуемым.
// Ноль строк ACL означает отказ.
func (s *PermissionService) Check(ctx context.Context, userID int64, filePath string, required domain.PermissionLevel) (bool, error) {
	levels, err := s.perms.EffectiveLevels(ctx, userID, filePath)
	if err != nil {
		return false, err
	}

	best := 0
	for _, l := range levels {
		if l.Rank() > best {
			best = l.Rank()
		}
	}
	return best >= required.Rank(), nil
}

// GetUserPermission возвращает наивысший уровень пользователя на файл
// или nil. Используется для отображения, не для контроля доступа.
func (s *PermissionService) GetUserPermission(ctx context.Context, userID int64, filePath string) (*domain.PermissionLevel, error) {
	levels, err := s.perms.EffectiveLevels(ctx, userID, filePath)
	if err != nil {
		return nil, err
	}

	perms := make([]domain.FilePermission, 0, len(levels))
	for _, l := range levels {
		perms = append(perms, domain.FilePermission{Permission: l})
	}
	best, ok := domain.EffectiveLevel(perms)
	if !ok {
		return nil, nil
	}
	return &best, nil
}

// GrantRequest — запрос на выдачу гранта: ровно одна цель, пользователь
// или команда.
type GrantRequest struct {
	FilePath     string
	TargetUserID *int64
	TargetTeamID *int64
	Level        domain.PermissionLevel
	PerformedBy  int64
}

// Grant выдает или повышает/понижает грант. Повторный грант той же цели
// обновляет существующую строку. Изменение и запись аудита фиксируются
// одной транзакцией.
func (s *PermissionService) Grant(ctx context.Context, req GrantRequest) (*domain.FilePermission, error) {
	if (req.TargetUserID == nil) == (req.TargetTeamID == nil) {
		return nil, fmt.Errorf("%w: either user_id or team_id required", domain.ErrValidation)
	}

	allowed, err := s.Check(ctx, req.PerformedBy, req.FilePath, domain.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no permission to grant permissions on %s", domain.ErrForbidden, req.FilePath)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	perm := &domain.FilePermission{
		FilePath:   req.FilePath,
		UserID:     req.TargetUserID,
		TeamID:     req.TargetTeamID,
		Permission: req.Level,
		GrantedBy:  req.PerformedBy,
	}

	oldLevel, err := s.perms.UpsertTx(ctx, tx, perm)
	if err != nil {
		return nil, err
	}

	action := "grant"
	var oldValue *string
	if oldLevel != nil {
		action = "update"
		v := string(*oldLevel)
		oldValue = &v
	}
	newValue := string(req.Level)

	err = s.audit.InsertPermissionAuditTx(ctx, tx, &domain.PermissionAuditLog{
		FilePath:      req.FilePath,
		Action:        action,
		TargetUserID:  req.TargetUserID,
		TargetTeamID:  req.TargetTeamID,
		OldPermission: oldValue,
		NewPermission: &newValue,
		PerformedBy:   req.PerformedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit grant: %w", err)
	}
	return perm, nil
}

// Revoke снимает грант по id. Требует admin на файл гранта; удаление и
// запись аудита фиксируются одной транзакцией.
func (s *PermissionService) Revoke(ctx context.Context, permissionID, performedBy int64) error {
	perm, err := s.perms.GetByID(ctx, permissionID)
	if err != nil {
		return err
	}

	allowed, err := s.Check(ctx, performedBy, perm.FilePath, domain.PermissionAdmin)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: no permission to revoke on %s", domain.ErrForbidden, perm.FilePath)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.perms.DeleteTx(ctx, tx, permissionID); err != nil {
		return err
	}

	oldValue := string(perm.Permission)
	err = s.audit.InsertPermissionAuditTx(ctx, tx, &domain.PermissionAuditLog{
		FilePath:      perm.FilePath,
		Action:        "revoke",
		TargetUserID:  perm.UserID,
		TargetTeamID:  perm.TeamID,
		OldPermission: &oldValue,
		PerformedBy:   performedBy,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revoke: %w", err)
	}
	return nil
}

// ListForFile возвращает все гранты на файл. Только для держателей admin.
func (s *PermissionService) ListForFile(ctx context.Context, callerID int64, filePath string) ([]domain.FilePermission, error) {
	allowed, err := s.Check(ctx, callerID, filePath, domain.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no permission to view permissions on %s", domain.ErrForbidden, filePath)
	}
	return s.perms.ListForFile(ctx, filePath)
}
