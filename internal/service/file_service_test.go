package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/storage/s3"
	"github.com/malipravin2580/Data-Manager/internal/tabular"
)

type fakeChecker struct {
	allowed map[string]domain.PermissionLevel
}

func (f *fakeChecker) Check(_ context.Context, _ int64, filePath string, required domain.PermissionLevel) (bool, error) {
	level, ok := f.allowed[filePath]
	if !ok {
		return false, nil
	}
	return level.Rank() >= required.Rank(), nil
}

type fakeACL struct {
	viewable map[string]bool
}

func (f *fakeACL) ListForFile(_ context.Context, _ string) ([]domain.FilePermission, error) {
	return nil, nil
}

func (f *fakeACL) UpsertTx(_ context.Context, _ sqlx.ExtContext, _ *domain.FilePermission) (*domain.PermissionLevel, error) {
	return nil, nil
}

func (f *fakeACL) DeleteAllForFileTx(_ context.Context, _ sqlx.ExtContext, _ string) error {
	return nil
}

func (f *fakeACL) ListViewablePaths(_ context.Context, _ int64, paths []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, p := range paths {
		if f.viewable[p] {
			out[p] = true
		}
	}
	return out, nil
}

type fakeFileLogs struct {
	access     []domain.FileAccessLog
	provenance []domain.FileProvenance
	audit      []domain.PermissionAuditLog
}

func (f *fakeFileLogs) InsertAccessLog(_ context.Context, entry *domain.FileAccessLog) error {
	f.access = append(f.access, *entry)
	return nil
}

func (f *fakeFileLogs) InsertAccessLogTx(ctx context.Context, _ sqlx.ExtContext, entry *domain.FileAccessLog) error {
	return f.InsertAccessLog(ctx, entry)
}

func (f *fakeFileLogs) InsertActivityTx(_ context.Context, _ sqlx.ExtContext, _ *domain.ActivityLog) error {
	return nil
}

func (f *fakeFileLogs) InsertProvenanceTx(_ context.Context, _ sqlx.ExtContext, rec *domain.FileProvenance) error {
	f.provenance = append(f.provenance, *rec)
	return nil
}

func (f *fakeFileLogs) InsertPermissionAuditTx(_ context.Context, _ sqlx.ExtContext, entry *domain.PermissionAuditLog) error {
	f.audit = append(f.audit, *entry)
	return nil
}

type memObjects struct {
	data map[string][]byte
}

func (m *memObjects) PutObject(_ context.Context, key string, data []byte) error {
	m.data[key] = data
	return nil
}

func (m *memObjects) GetObject(_ context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return data, nil
}

func (m *memObjects) HeadObject(_ context.Context, key string) (*s3.ObjectInfo, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return &s3.ObjectInfo{Key: key, SizeBytes: int64(len(data)), LastModified: time.Now()}, nil
}

func (m *memObjects) DeleteObject(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memObjects) ListObjects(_ context.Context, prefix string) ([]s3.ObjectInfo, error) {
	var infos []s3.ObjectInfo
	for key, data := range m.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			infos = append(infos, s3.ObjectInfo{Key: key, SizeBytes: int64(len(data))})
		}
	}
	return infos, nil
}

func newTestFileService(objects *memObjects, checker *fakeChecker, acl *fakeACL, logs *fakeFileLogs) *FileService {
	return NewFileService(nil, objects, tabular.NewObjectBackedStore(objects), checker, acl, logs, 1024)
}

func TestUploadSizeLimit(t *testing.T) {
	objects := &memObjects{data: make(map[string][]byte)}
	svc := newTestFileService(objects, &fakeChecker{}, &fakeACL{}, &fakeFileLogs{})

	big := make([]byte, 2048)
	_, err := svc.Upload(context.Background(), 1, "big.csv", big, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upload(context.Background(), 1, "", []byte("x"), RequestMeta{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestPreviewRequiresView(t *testing.T) {
	objects := &memObjects{data: map[string][]byte{"data.csv": []byte("id\n1\n2\n")}}
	checker := &fakeChecker{allowed: map[string]domain.PermissionLevel{}}
	svc := newTestFileService(objects, checker, &fakeACL{}, &fakeFileLogs{})

	_, err := svc.Preview(context.Background(), 1, "data.csv", 10, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPreview(t *testing.T) {
	objects := &memObjects{data: map[string][]byte{"data.csv": []byte("id,name\n1,alice\n2,bob\n3,carol\n")}}
	checker := &fakeChecker{allowed: map[string]domain.PermissionLevel{"data.csv": domain.PermissionView}}
	logs := &fakeFileLogs{}
	svc := newTestFileService(objects, checker, &fakeACL{}, logs)

	preview, err := svc.Preview(context.Background(), 1, "data.csv", 2, RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, 3, preview.TotalRows)
	require.Len(t, preview.Rows, 2)
	require.Len(t, preview.Columns, 2)

	// Просмотр оставляет след в журнале
	require.Len(t, logs.access, 1)
	require.Equal(t, "view", logs.access[0].Action)
}

func TestUploadJournal(t *testing.T) {
	logs := &fakeFileLogs{}
	objects := &memObjects{data: make(map[string][]byte)}
	svc := newTestFileService(objects, &fakeChecker{}, &fakeACL{}, logs)
	ctx := context.Background()

	// Перезапись: узел происхождения есть, автогранта нет
	err := svc.recordUpload(ctx, nil, 1, "data.csv", 42, false, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, logs.provenance, 1)
	require.Equal(t, "data.csv", logs.provenance[0].FilePath)
	require.Equal(t, "upload", logs.provenance[0].TransformationType)
	require.Empty(t, logs.audit)

	// Новый файл: узел происхождения плюс автогрант с аудитом
	err = svc.recordUpload(ctx, nil, 1, "new.csv", 42, true, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, logs.provenance, 2)
	require.Len(t, logs.audit, 1)
	require.Equal(t, "grant", logs.audit[0].Action)
}

func TestDownloadMissingFile(t *testing.T) {
	objects := &memObjects{data: make(map[string][]byte)}
	checker := &fakeChecker{allowed: map[string]domain.PermissionLevel{"gone.csv": domain.PermissionView}}
	svc := newTestFileService(objects, checker, &fakeACL{}, &fakeFileLogs{})

	_, err := svc.Download(context.Background(), 1, "gone.csv", RequestMeta{})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByPermission(t *testing.T) {
	objects := &memObjects{data: map[string][]byte{
		"mine.csv":   []byte("a\n"),
		"theirs.csv": []byte("b\n"),
	}}
	acl := &fakeACL{viewable: map[string]bool{"mine.csv": true}}
	svc := newTestFileService(objects, &fakeChecker{}, acl, &fakeFileLogs{})

	files, err := svc.List(context.Background(), 1, "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "mine.csv", files[0].Key)
}

func TestTransformValidation(t *testing.T) {
	objects := &memObjects{data: make(map[string][]byte)}
	svc := newTestFileService(objects, &fakeChecker{}, &fakeACL{}, &fakeFileLogs{})
	ctx := context.Background()

	_, err := svc.Transform(ctx, 1, TransformRequest{OutputPath: "out.csv", TransformationType: "merge"}, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Transform(ctx, 1, TransformRequest{SourcePaths: []string{"a.csv"}, TransformationType: "merge"}, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrValidation)

	// view на вход обязателен
	_, err = svc.Transform(ctx, 1, TransformRequest{
		SourcePaths:        []string{"a.csv"},
		OutputPath:         "out.csv",
		TransformationType: "merge",
	}, RequestMeta{})
	require.ErrorIs(t, err, domain.ErrForbidden)
}
