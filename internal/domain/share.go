package domain

import "time"

// ShareLink — анонимная ссылка на один файл, ограниченная по времени
// и опционально по числу просмотров и паролю.
type ShareLink struct {
	ID           int64           `json:"id" db:"id"`
	Token        string          `json:"token" db:"token"`
	FilePath     string          `json:"file_path" db:"file_path"`
	CreatorID    int64           `json:"creator_id" db:"creator_id"`
	Permission   PermissionLevel `json:"permission" db:"permission"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	ExpiresAt    time.Time       `json:"expires_at" db:"expires_at"`
	PasswordHash *string         `json:"-" db:"password_hash"`
	MaxViews     *int            `json:"max_views,omitempty" db:"max_views"`
	ViewCount    int             `json:"view_count" db:"view_count"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Expired сообщает, истекла ли ссылка к моменту now.
func (s *ShareLink) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Exhausted сообщает, исчерпан ли лимит просмотров.
func (s *ShareLink) Exhausted() bool {
	return s.MaxViews != nil && s.ViewCount >= *s.MaxViews
}
