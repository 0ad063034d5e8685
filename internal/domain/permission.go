package domain

import (
	"fmt"
	"time"
)

type PermissionLevel string

const (
	PermissionView  PermissionLevel = "view"
	PermissionEdit  PermissionLevel = "edit"
	PermissionAdmin PermissionLevel = "admin"
)

// Rank возвращает числовой ранг уровня: view < edit < admin.
// Неизвестный уровень получает ранг 0 и не дает никакого доступа.
func (l PermissionLevel) Rank() int {
	switch l {
	case PermissionView:
		return 1
	case PermissionEdit:
		return 2
	case PermissionAdmin:
		return 3
	default:
		return 0
	}
}

func ParsePermissionLevel(s string) (PermissionLevel, error) {
	switch PermissionLevel(s) {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return PermissionLevel(s), nil
	default:
		return "", fmt.Errorf("%w: unknown permission level %q", ErrValidation, s)
	}
}

// FilePermission — строка ACL: грант пользователю или команде (ровно одному).
type FilePermission struct {
	ID         int64           `json:"id" db:"id"`
	FilePath   string          `json:"file_path" db:"file_path"`
	UserID     *int64          `json:"user_id,omitempty" db:"user_id"`
	TeamID     *int64          `json:"team_id,omitempty" db:"team_id"`
	Permission PermissionLevel `json:"permission" db:"permission"`
	GrantedBy  int64           `json:"granted_by" db:"granted_by"`
	GrantedAt  time.Time       `json:"granted_at" db:"granted_at"`
}

// EffectiveLevel выбирает максимальный ранг среди строк ACL.
// Пустой список означает полное отсутствие доступа.
func EffectiveLevel(perms []FilePermission) (PermissionLevel, bool) {
	best := PermissionLevel("")
	for _, p := range perms {
		if p.Permission.Rank() > best.Rank() {
			best = p.Permission
		}
	}
	if best.Rank() == 0 {
		return "", false
	}
	return best, true
}
