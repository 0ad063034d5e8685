package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/repository"
)

// fakeProvenanceStore хранит ребра в памяти в порядке вставки.
type fakeProvenanceStore struct {
	edges  []domain.FileProvenance
	access []domain.FileAccessLog
	audit  []domain.PermissionAuditLog
}

func (f *fakeProvenanceStore) addEdge(output string, source *string, transformationType string) {
	f.edges = append(f.edges, domain.FileProvenance{
		ID:                 int64(len(f.edges) + 1),
		FilePath:           output,
		SourceFilePath:     source,
		TransformationType: transformationType,
		CreatedBy:          1,
		CreatedAt:          time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(f.edges)) * time.Minute),
	})
}

func (f *fakeProvenanceStore) addDerived(output string, sources ...string) {
	for _, src := range sources {
		src := src
		f.addEdge(output, &src, "merge")
	}
}

func (f *fakeProvenanceStore) InsertAccessLog(_ context.Context, entry *domain.FileAccessLog) error {
	entry.ID = int64(len(f.access) + 1)
	f.access = append(f.access, *entry)
	return nil
}

func (f *fakeProvenanceStore) EdgesByFile(_ context.Context, filePath string) ([]domain.FileProvenance, error) {
	var out []domain.FileProvenance
	for _, e := range f.edges {
		if e.FilePath == filePath {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeProvenanceStore) EdgesBySource(_ context.Context, filePath string) ([]domain.FileProvenance, error) {
	var out []domain.FileProvenance
	for i := len(f.edges) - 1; i >= 0; i-- {
		e := f.edges[i]
		if e.SourceFilePath != nil && *e.SourceFilePath == filePath {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeProvenanceStore) EdgesByFiles(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error) {
	var out []domain.FileProvenance
	for _, p := range filePaths {
		edges, _ := f.EdgesByFile(ctx, p)
		out = append(out, edges...)
	}
	return out, nil
}

func (f *fakeProvenanceStore) EdgesBySources(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error) {
	var out []domain.FileProvenance
	for _, p := range filePaths {
		edges, _ := f.EdgesBySource(ctx, p)
		out = append(out, edges...)
	}
	return out, nil
}

func (f *fakeProvenanceStore) AccessHistory(_ context.Context, filePath string, limit int) ([]domain.FileAccessLog, error) {
	var out []domain.FileAccessLog
	for i := len(f.access) - 1; i >= 0 && len(out) < limit; i-- {
		if f.access[i].FilePath == filePath {
			out = append(out, f.access[i])
		}
	}
	return out, nil
}

func (f *fakeProvenanceStore) PermissionAuditHistory(_ context.Context, filePath string, limit int) ([]domain.PermissionAuditLog, error) {
	var out []domain.PermissionAuditLog
	for i := len(f.audit) - 1; i >= 0 && len(out) < limit; i-- {
		if f.audit[i].FilePath == filePath {
			out = append(out, f.audit[i])
		}
	}
	return out, nil
}

func (f *fakeProvenanceStore) PermissionAuditFeed(_ context.Context, filter repository.AuditFeedFilter) ([]domain.PermissionAuditLog, error) {
	var out []domain.PermissionAuditLog
	for i := len(f.audit) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		out = append(out, f.audit[i])
	}
	return out, nil
}

func TestLineageRoundTrip(t *testing.T) {
	store := &fakeProvenanceStore{}
	store.addEdge("a.csv", nil, "upload")
	store.addEdge("b.csv", nil, "upload")
	store.addDerived("c.csv", "a.csv", "b.csv")

	svc := NewProvenanceService(store)
	ctx := context.Background()

	lineage, err := svc.Lineage(ctx, 1, "c.csv", 0, RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "c.csv", lineage.CurrentFile)
	require.Len(t, lineage.Ancestors, 2)
	require.Equal(t, "a.csv", lineage.Ancestors[0].FilePath)
	require.Equal(t, "b.csv", lineage.Ancestors[1].FilePath)
	require.Empty(t, lineage.Descendants)

	lineage, err = svc.Lineage(ctx, 1, "a.csv", 0, RequestMeta{})
	require.NoError(t, err)
	require.Empty(t, lineage.Ancestors)
	require.Len(t, lineage.Descendants, 1)
	require.Equal(t, "c.csv", lineage.Descendants[0].FilePath)
}

func TestLineageDepth(t *testing.T) {
	store := &fakeProvenanceStore{}
	store.addDerived("out.csv", "s1.csv", "s2.csv", "s3.csv")

	svc := NewProvenanceService(store)

	lineage, err := svc.Lineage(context.Background(), 1, "out.csv", 2, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, lineage.Ancestors, 2)
	require.Equal(t, "s2.csv", lineage.Ancestors[0].FilePath)
	require.Equal(t, "s3.csv", lineage.Ancestors[1].FilePath)
}

func TestLineageGraphBFS(t *testing.T) {
	store := &fakeProvenanceStore{}
	// a -> b -> c, a -> c
	store.addDerived("b.csv", "a.csv")
	store.addDerived("c.csv", "b.csv", "a.csv")

	svc := NewProvenanceService(store)
	ctx := context.Background()

	graph, err := svc.LineageGraph(ctx, 1, "c.csv", 5, RequestMeta{})
	require.NoError(t, err)
	require.Equal(t, "c.csv", graph.CurrentFile)

	// a и b на глубине 1; a не дублируется на глубине 2
	require.Len(t, graph.Ancestors, 2)
	depths := map[string]int{}
	for _, node := range graph.Ancestors {
		depths[node.FilePath] = node.Depth
	}
	require.Equal(t, 1, depths["a.csv"])
	require.Equal(t, 1, depths["b.csv"])

	graph, err = svc.LineageGraph(ctx, 1, "a.csv", 5, RequestMeta{})
	require.NoError(t, err)
	require.Empty(t, graph.Ancestors)
	require.Len(t, graph.Descendants, 2)
	depths = map[string]int{}
	for _, node := range graph.Descendants {
		depths[node.FilePath] = node.Depth
	}
	require.Equal(t, 1, depths["b.csv"])
	require.Equal(t, 1, depths["c.csv"])
}

func TestLineageGraphDepthLimit(t *testing.T) {
	store := &fakeProvenanceStore{}
	// Цепочка f0 -> f1 -> f2 -> f3
	store.addDerived("f1.csv", "f0.csv")
	store.addDerived("f2.csv", "f1.csv")
	store.addDerived("f3.csv", "f2.csv")

	svc := NewProvenanceService(store)

	graph, err := svc.LineageGraph(context.Background(), 1, "f3.csv", 2, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, graph.Ancestors, 2)
	for _, node := range graph.Ancestors {
		require.LessOrEqual(t, node.Depth, 2)
	}
}

func TestLineageLogsAccess(t *testing.T) {
	store := &fakeProvenanceStore{}
	store.addDerived("out.csv", "in.csv")

	svc := NewProvenanceService(store)
	ctx := context.Background()

	_, err := svc.Lineage(ctx, 7, "out.csv", 0, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, store.access, 1)
	require.Equal(t, "lineage-view", store.access[0].Action)
	require.Equal(t, "out.csv", store.access[0].FilePath)
	require.Equal(t, int64(7), store.access[0].UserID)

	_, err = svc.LineageGraph(ctx, 7, "out.csv", 3, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, store.access, 2)
	require.Equal(t, "lineage-view", store.access[1].Action)
}

func TestHistoryDefaults(t *testing.T) {
	store := &fakeProvenanceStore{
		access: []domain.FileAccessLog{
			{ID: 1, FilePath: "data.csv", UserID: 1, Action: "upload"},
			{ID: 2, FilePath: "data.csv", UserID: 2, Action: "view"},
		},
		audit: []domain.PermissionAuditLog{
			{ID: 1, FilePath: "data.csv", Action: "grant", PerformedBy: 1},
		},
	}
	svc := NewProvenanceService(store)
	ctx := context.Background()

	access, err := svc.AccessHistory(ctx, "data.csv", 0)
	require.NoError(t, err)
	require.Len(t, access, 2)
	// Свежие записи первыми
	require.Equal(t, "view", access[0].Action)

	audit, err := svc.PermissionAuditFeed(ctx, repository.AuditFeedFilter{})
	require.NoError(t, err)
	require.Len(t, audit, 1)
}
