package service

import (
	"context"
	"sort"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/repository"
)

// ProvenanceStore — чтение графа происхождения и журналов плюс след
// о просмотре lineage. Остальные журнальные записи делают файловые
// сценарии в рамках своих транзакций.
type ProvenanceStore interface {
	InsertAccessLog(ctx context.Context, entry *domain.FileAccessLog) error
	EdgesByFile(ctx context.Context, filePath string) ([]domain.FileProvenance, error)
	EdgesBySource(ctx context.Context, filePath string) ([]domain.FileProvenance, error)
	EdgesByFiles(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error)
	EdgesBySources(ctx context.Context, filePaths []string) ([]domain.FileProvenance, error)
	AccessHistory(ctx context.Context, filePath string, limit int) ([]domain.FileAccessLog, error)
	PermissionAuditHistory(ctx context.Context, filePath string, limit int) ([]domain.PermissionAuditLog, error)
	PermissionAuditFeed(ctx context.Context, filter repository.AuditFeedFilter) ([]domain.PermissionAuditLog, error)
}

const (
	defaultLineageDepth  = 5
	maxLineageGraphDepth = 10
	defaultHistoryLimit  = 100
)

// ProvenanceService отвечает на вопросы "откуда взялся файл" и "кто его
// трогал" поверх append-only журналов.
type ProvenanceService struct {
	store ProvenanceStore
}

func NewProvenanceService(store ProvenanceStore) *ProvenanceService {
	return &ProvenanceService{store: store}
}

// Lineage возвращает плоское происхождение: прямых предков (не больше depth,
// самые свежие) и всех прямых потомков. Просмотр попадает в журнал доступа.
func (s *ProvenanceService) Lineage(ctx context.Context, userID int64, filePath string, depth int, meta RequestMeta) (*domain.Lineage, error) {
	if depth <= 0 {
		depth = defaultLineageDepth
	}

	upstream, err := s.store.EdgesByFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	downstream, err := s.store.EdgesBySource(ctx, filePath)
	if err != nil {
		return nil, err
	}

	if err := s.logLineageView(ctx, userID, filePath, meta); err != nil {
		return nil, err
	}

	return &domain.Lineage{
		CurrentFile: filePath,
		Ancestors:   domain.BuildAncestors(upstream, depth),
		Descendants: domain.BuildDescendants(downstream),
	}, nil
}

// LineageGraph обходит граф в ширину в обе стороны на depth шагов.
// Каждый путь попадает в ответ один раз, на минимальной глубине.
func (s *ProvenanceService) LineageGraph(ctx context.Context, userID int64, filePath string, depth int, meta RequestMeta) (*domain.LineageGraph, error) {
	if depth <= 0 {
		depth = defaultLineageDepth
	}
	if depth > maxLineageGraphDepth {
		depth = maxLineageGraphDepth
	}

	ancestors, err := s.walk(ctx, filePath, depth, s.store.EdgesByFiles, func(e domain.FileProvenance) *string {
		return e.SourceFilePath
	})
	if err != nil {
		return nil, err
	}

	descendants, err := s.walk(ctx, filePath, depth, s.store.EdgesBySources, func(e domain.FileProvenance) *string {
		return &e.FilePath
	})
	if err != nil {
		return nil, err
	}

	if err := s.logLineageView(ctx, userID, filePath, meta); err != nil {
		return nil, err
	}

	return &domain.LineageGraph{
		CurrentFile: filePath,
		Ancestors:   ancestors,
		Descendants: descendants,
	}, nil
}

func (s *ProvenanceService) logLineageView(ctx context.Context, userID int64, filePath string, meta RequestMeta) error {
	return s.store.InsertAccessLog(ctx, &domain.FileAccessLog{
		FilePath:  filePath,
		UserID:    userID,
		Action:    "lineage-view",
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	})
}

func (s *ProvenanceService) walk(
	ctx context.Context,
	start string,
	depth int,
	fetch func(ctx context.Context, paths []string) ([]domain.FileProvenance, error),
	next func(domain.FileProvenance) *string,
) ([]domain.LineageGraphNode, error) {
	visited := map[string]bool{start: true}
	frontier := []string{start}
	var nodes []domain.LineageGraphNode

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		edges, err := fetch(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var nextFrontier []string
		for _, e := range edges {
			p := next(e)
			if p == nil || visited[*p] {
				continue
			}
			visited[*p] = true
			nodes = append(nodes, domain.LineageGraphNode{FilePath: *p, Depth: level})
			nextFrontier = append(nextFrontier, *p)
		}
		sort.Strings(nextFrontier)
		frontier = nextFrontier
	}
	return nodes, nil
}

// AccessHistory возвращает последние записи журнала доступа к файлу.
func (s *ProvenanceService) AccessHistory(ctx context.Context, filePath string, limit int) ([]domain.FileAccessLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.AccessHistory(ctx, filePath, limit)
}

// PermissionAuditHistory возвращает последние записи аудита прав по файлу.
func (s *ProvenanceService) PermissionAuditHistory(ctx context.Context, filePath string, limit int) ([]domain.PermissionAuditLog, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.PermissionAuditHistory(ctx, filePath, limit)
}

// PermissionAuditFeed — глобальная лента аудита прав с фильтрами.
func (s *ProvenanceService) PermissionAuditFeed(ctx context.Context, filter repository.AuditFeedFilter) ([]domain.PermissionAuditLog, error) {
	if filter.Days <= 0 {
		filter.Days = 7
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	return s.store.PermissionAuditFeed(ctx, filter)
}
