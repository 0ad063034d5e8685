package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Details хранится в колонках JSONB.
type Details map[string]interface{}

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *Details) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Details", src)
	}
	return json.Unmarshal(b, d)
}

// FileProvenance — ребро графа происхождения. Загрузка создает запись без
// источника, трансформация — по одной записи на каждый входной файл.
// Записи неизменяемы после вставки.
type FileProvenance struct {
	ID                    int64     `json:"id" db:"id"`
	FilePath              string    `json:"file_path" db:"file_path"`
	SourceFilePath        *string   `json:"source_file_path,omitempty" db:"source_file_path"`
	TransformationType    string    `json:"transformation_type" db:"transformation_type"`
	TransformationDetails Details   `json:"transformation_details,omitempty" db:"transformation_details"`
	CreatedBy             int64     `json:"created_by" db:"created_by"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

type FileAccessLog struct {
	ID        int64     `json:"id" db:"id"`
	FilePath  string    `json:"file_path" db:"file_path"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Action    string    `json:"action" db:"action"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	Details   Details   `json:"details,omitempty" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type PermissionAuditLog struct {
	ID            int64     `json:"id" db:"id"`
	FilePath      string    `json:"file_path" db:"file_path"`
	Action        string    `json:"action" db:"action"`
	TargetUserID  *int64    `json:"target_user_id,omitempty" db:"target_user_id"`
	TargetTeamID  *int64    `json:"target_team_id,omitempty" db:"target_team_id"`
	OldPermission *string   `json:"old_permission,omitempty" db:"old_permission"`
	NewPermission *string   `json:"new_permission,omitempty" db:"new_permission"`
	PerformedBy   int64     `json:"performed_by" db:"performed_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type ActivityLog struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Action       string    `json:"action" db:"action"`
	ResourceType *string   `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string   `json:"resource_id,omitempty" db:"resource_id"`
	Details      *string   `json:"details,omitempty" db:"details"`
	IPAddress    *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    *string   `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LineageEntry — один узел в ответе о происхождении файла.
type LineageEntry struct {
	FilePath           string    `json:"file_path"`
	TransformationType string    `json:"transformation_type"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedBy          int64     `json:"created_by"`
}

type Lineage struct {
	CurrentFile string         `json:"current_file"`
	Ancestors   []LineageEntry `json:"ancestors"`
	Descendants []LineageEntry `json:"descendants"`
}

// BuildAncestors собирает прямых предков из ребер, где file_path — выход.
// Ребра приходят отсортированными от старых к новым; дубликаты источников
// схлопываются по первому вхождению, после чего список усекается до
// последних depth элементов.
func BuildAncestors(edges []FileProvenance, depth int) []LineageEntry {
	seen := make(map[string]bool)
	ancestors := make([]LineageEntry, 0, len(edges))
	for _, e := range edges {
		if e.SourceFilePath == nil || seen[*e.SourceFilePath] {
			continue
		}
		seen[*e.SourceFilePath] = true
		ancestors = append(ancestors, LineageEntry{
			FilePath:           *e.SourceFilePath,
			TransformationType: e.TransformationType,
			CreatedAt:          e.CreatedAt,
			CreatedBy:          e.CreatedBy,
		})
	}
	if depth < 0 {
		depth = 0
	}
	if len(ancestors) > depth {
		ancestors = ancestors[len(ancestors)-depth:]
	}
	return ancestors
}

// BuildDescendants собирает потомков из ребер, где source_file_path — вход.
// Ребра приходят от новых к старым; дубликаты выходов схлопываются,
// глубина список не ограничивает.
func BuildDescendants(edges []FileProvenance) []LineageEntry {
	seen := make(map[string]bool)
	descendants := make([]LineageEntry, 0, len(edges))
	for _, e := range edges {
		if seen[e.FilePath] {
			continue
		}
		seen[e.FilePath] = true
		descendants = append(descendants, LineageEntry{
			FilePath:           e.FilePath,
			TransformationType: e.TransformationType,
			CreatedAt:          e.CreatedAt,
			CreatedBy:          e.CreatedBy,
		})
	}
	return descendants
}

// LineageGraphNode — узел обхода графа происхождения в ширину.
type LineageGraphNode struct {
	FilePath string `json:"file_path"`
	Depth    int    `json:"depth"`
}

type LineageGraph struct {
	CurrentFile string             `json:"current_file"`
	Ancestors   []LineageGraphNode `json:"ancestors"`
	Descendants []LineageGraphNode `json:"descendants"`
}
