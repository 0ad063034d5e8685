package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/storage/s3"
	"github.com/malipravin2580/Data-Manager/internal/tabular"
)

// PermissionChecker отвечает, хватает ли пользователю прав на файл.
type PermissionChecker interface {
	Check(ctx context.Context, userID int64, filePath string, required domain.PermissionLevel) (bool, error)
}

// FileACLStore — операции над строками ACL, нужные файловым сценариям.
type FileACLStore interface {
	ListForFile(ctx context.Context, filePath string) ([]domain.FilePermission, error)
	UpsertTx(ctx context.Context, q sqlx.ExtContext, perm *domain.FilePermission) (*domain.PermissionLevel, error)
	DeleteAllForFileTx(ctx context.Context, q sqlx.ExtContext, filePath string) error
	ListViewablePaths(ctx context.Context, userID int64, paths []string) (map[string]bool, error)
}

// FileLogWriter пишет журналы в рамках транзакций файловых операций.
type FileLogWriter interface {
	InsertAccessLog(ctx context.Context, entry *domain.FileAccessLog) error
	InsertAccessLogTx(ctx context.Context, q sqlx.ExtContext, entry *domain.FileAccessLog) error
	InsertActivityTx(ctx context.Context, q sqlx.ExtContext, entry *domain.ActivityLog) error
	InsertProvenanceTx(ctx context.Context, q sqlx.ExtContext, rec *domain.FileProvenance) error
	InsertPermissionAuditTx(ctx context.Context, q sqlx.ExtContext, entry *domain.PermissionAuditLog) error
}

// RequestMeta — кто и откуда, для журналов.
type RequestMeta struct {
	IPAddress *string
	UserAgent *string
}

// FileService связывает объектное хранилище, ACL и журналы в файловые
// сценарии. Каждая мутация и ее журнальные записи фиксируются одной
// транзакцией; сам объект в бакете в транзакцию не входит.
type FileService struct {
	db          *sqlx.DB
	objects     tabular.ObjectStore
	tables      tabular.Store
	checker     PermissionChecker
	acl         FileACLStore
	logs        FileLogWriter
	maxFileSize int64
}

func NewFileService(
	db *sqlx.DB,
	objects tabular.ObjectStore,
	tables tabular.Store,
	checker PermissionChecker,
	acl FileACLStore,
	logs FileLogWriter,
	maxFileSize int64,
) *FileService {
	return &FileService{
		db:          db,
		objects:     objects,
		tables:      tables,
		checker:     checker,
		acl:         acl,
		logs:        logs,
		maxFileSize: maxFileSize,
	}
}

// Upload сохраняет файл. Новый файл автоматически получает admin-грант для
// загрузившего; перезапись существующего требует edit.
func (s *FileService) Upload(ctx context.Context, userID int64, filePath string, data []byte, meta RequestMeta) (*tabular.Info, error) {
	if filePath == "" {
		return nil, fmt.Errorf("%w: file path is required", domain.ErrValidation)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file exceeds maximum size of %d bytes", domain.ErrValidation, s.maxFileSize)
	}

	existing, err := s.acl.ListForFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	isNew := len(existing) == 0

	if !isNew {
		allowed, err := s.checker.Check(ctx, userID, filePath, domain.PermissionEdit)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: no permission to overwrite %s", domain.ErrForbidden, filePath)
		}
	}

	if err := s.objects.PutObject(ctx, filePath, data); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.recordUpload(ctx, tx, userID, filePath, len(data), isNew, meta); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upload: %w", err)
	}

	return s.tables.GetInfo(ctx, filePath)
}

// recordUpload пишет журнальные записи загрузки. Узел происхождения
// создается на каждую загрузку, включая перезапись; автогрант и его
// аудит — только для нового файла.
func (s *FileService) recordUpload(ctx context.Context, q sqlx.ExtContext, userID int64, filePath string, size int, isNew bool, meta RequestMeta) error {
	if isNew {
		level := domain.PermissionAdmin
		perm := &domain.FilePermission{
			FilePath:   filePath,
			UserID:     &userID,
			Permission: level,
			GrantedBy:  userID,
		}
		if _, err := s.acl.UpsertTx(ctx, q, perm); err != nil {
			return err
		}

		newValue := string(level)
		err := s.logs.InsertPermissionAuditTx(ctx, q, &domain.PermissionAuditLog{
			FilePath:      filePath,
			Action:        "grant",
			TargetUserID:  &userID,
			NewPermission: &newValue,
			PerformedBy:   userID,
		})
		if err != nil {
			return err
		}
	}

	err := s.logs.InsertProvenanceTx(ctx, q, &domain.FileProvenance{
		FilePath:           filePath,
		TransformationType: "upload",
		TransformationDetails: domain.Details{
			"size_bytes": size,
		},
		CreatedBy: userID,
	})
	if err != nil {
		return err
	}

	resourceType := "file"
	err = s.logs.InsertActivityTx(ctx, q, &domain.ActivityLog{
		UserID:       userID,
		Action:       "file.upload",
		ResourceType: &resourceType,
		ResourceID:   &filePath,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	if err != nil {
		return err
	}

	return s.logs.InsertAccessLogTx(ctx, q, &domain.FileAccessLog{
		FilePath:  filePath,
		UserID:    userID,
		Action:    "upload",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details:   domain.Details{"size_bytes": size},
	})
}

// PreviewResult — первые строки таблицы со сводкой по колонкам.
type PreviewResult struct {
	FilePath  string                   `json:"file_path"`
	Columns   []tabular.ColumnStats    `json:"columns"`
	Rows      []map[string]interface{} `json:"rows"`
	TotalRows int                      `json:"total_rows"`
}

// Preview читает таблицу и возвращает первые rows строк. Требует view.
func (s *FileService) Preview(ctx context.Context, userID int64, filePath string, rows int, meta RequestMeta) (*PreviewResult, error) {
	if rows <= 0 {
		rows = 100
	}

	if err := s.require(ctx, userID, filePath, domain.PermissionView); err != nil {
		return nil, err
	}

	table, err := s.tables.Load(ctx, filePath)
	if err != nil {
		return nil, err
	}

	err = s.logs.InsertAccessLog(ctx, &domain.FileAccessLog{
		FilePath:  filePath,
		UserID:    userID,
		Action:    "view",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		FilePath:  filePath,
		Columns:   table.Stats(),
		Rows:      table.Head(rows),
		TotalRows: len(table.Rows),
	}, nil
}

// Download отдает сырые байты файла. Требует view.
func (s *FileService) Download(ctx context.Context, userID int64, filePath string, meta RequestMeta) ([]byte, error) {
	if err := s.require(ctx, userID, filePath, domain.PermissionView); err != nil {
		return nil, err
	}

	data, err := s.objects.GetObject(ctx, filePath)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, filePath)
		}
		return nil, err
	}

	err = s.logs.InsertAccessLog(ctx, &domain.FileAccessLog{
		FilePath:  filePath,
		UserID:    userID,
		Action:    "download",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Info возвращает метаданные файла. Требует view.
func (s *FileService) Info(ctx context.Context, userID int64, filePath string) (*tabular.Info, error) {
	if err := s.require(ctx, userID, filePath, domain.PermissionView); err != nil {
		return nil, err
	}
	return s.tables.GetInfo(ctx, filePath)
}

// Delete удаляет файл, все его гранты и пишет журналы. Требует admin.
// Журналы самого файла остаются: история переживает файл.
func (s *FileService) Delete(ctx context.Context, userID int64, filePath string, meta RequestMeta) error {
	if err := s.require(ctx, userID, filePath, domain.PermissionAdmin); err != nil {
		return err
	}

	if err := s.objects.DeleteObject(ctx, filePath); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.acl.DeleteAllForFileTx(ctx, tx, filePath); err != nil {
		return err
	}

	resourceType := "file"
	err = s.logs.InsertActivityTx(ctx, tx, &domain.ActivityLog{
		UserID:       userID,
		Action:       "file.delete",
		ResourceType: &resourceType,
		ResourceID:   &filePath,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	})
	if err != nil {
		return err
	}

	err = s.logs.InsertAccessLogTx(ctx, tx, &domain.FileAccessLog{
		FilePath:  filePath,
		UserID:    userID,
		Action:    "delete",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// List перечисляет объекты по префиксу, оставляя только те, на которые у
// пользователя есть хоть какой-нибудь грант.
func (s *FileService) List(ctx context.Context, userID int64, prefix string) ([]s3.ObjectInfo, error) {
	objects, err := s.objects.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return []s3.ObjectInfo{}, nil
	}

	paths := make([]string, 0, len(objects))
	for _, obj := range objects {
		paths = append(paths, obj.Key)
	}

	viewable, err := s.acl.ListViewablePaths(ctx, userID, paths)
	if err != nil {
		return nil, err
	}

	visible := make([]s3.ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if viewable[obj.Key] {
			visible = append(visible, obj)
		}
	}
	return visible, nil
}

// TransformRequest — заявка на фиксацию производного файла.
type TransformRequest struct {
	SourcePaths        []string
	OutputPath         string
	TransformationType string
	Details            domain.Details
}

// Transform фиксирует происхождение производного файла: требует view на
// каждый вход, а для выхода с существующим ACL — edit. Новый выход получает
// admin-грант автору. Все ребра и журналы пишутся одной транзакцией.
func (s *FileService) Transform(ctx context.Context, userID int64, req TransformRequest, meta RequestMeta) ([]*domain.FileProvenance, error) {
	if len(req.SourcePaths) == 0 {
		return nil, fmt.Errorf("%w: at least one source file required", domain.ErrValidation)
	}
	if req.OutputPath == "" || req.TransformationType == "" {
		return nil, fmt.Errorf("%w: output_path and transformation_type are required", domain.ErrValidation)
	}

	for _, src := range req.SourcePaths {
		if err := s.require(ctx, userID, src, domain.PermissionView); err != nil {
			return nil, err
		}
	}

	existing, err := s.acl.ListForFile(ctx, req.OutputPath)
	if err != nil {
		return nil, err
	}
	isNew := len(existing) == 0
	if !isNew {
		if err := s.require(ctx, userID, req.OutputPath, domain.PermissionEdit); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if isNew {
		level := domain.PermissionAdmin
		perm := &domain.FilePermission{
			FilePath:   req.OutputPath,
			UserID:     &userID,
			Permission: level,
			GrantedBy:  userID,
		}
		if _, err := s.acl.UpsertTx(ctx, tx, perm); err != nil {
			return nil, err
		}

		newValue := string(level)
		err = s.logs.InsertPermissionAuditTx(ctx, tx, &domain.PermissionAuditLog{
			FilePath:      req.OutputPath,
			Action:        "grant",
			TargetUserID:  &userID,
			NewPermission: &newValue,
			PerformedBy:   userID,
		})
		if err != nil {
			return nil, err
		}
	}

	recs := make([]*domain.FileProvenance, 0, len(req.SourcePaths))
	for _, src := range req.SourcePaths {
		src := src
		rec := &domain.FileProvenance{
			FilePath:              req.OutputPath,
			SourceFilePath:        &src,
			TransformationType:    req.TransformationType,
			TransformationDetails: req.Details,
			CreatedBy:             userID,
		}
		if err := s.logs.InsertProvenanceTx(ctx, tx, rec); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	err = s.logs.InsertAccessLogTx(ctx, tx, &domain.FileAccessLog{
		FilePath:  req.OutputPath,
		UserID:    userID,
		Action:    "transform",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Details:   domain.Details{"sources": req.SourcePaths, "type": req.TransformationType},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transform: %w", err)
	}
	return recs, nil
}

func (s *FileService) require(ctx context.Context, userID int64, filePath string, level domain.PermissionLevel) error {
	allowed, err := s.checker.Check(ctx, userID, filePath, level)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s access required on %s", domain.ErrForbidden, level, filePath)
	}
	return nil
}
