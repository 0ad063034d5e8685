package service

import (
	"context"

	"github.com/malipravin2580/Data-Manager/internal/domain"
	"github.com/malipravin2580/Data-Manager/internal/repository"
)

// AccessFeedReader читает ленту активности поверх журнала доступа к файлам.
type AccessFeedReader interface {
	AccessFeed(ctx context.Context, filter repository.AccessFeedFilter) ([]domain.FileAccessLog, error)
}

// RoleReader отдает глобальную роль пользователя для пиннинга ленты.
type RoleReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// ActivityService собирает ленту активности. Не-администратор видит только
// собственные записи независимо от запрошенных фильтров.
type ActivityService struct {
	feed  AccessFeedReader
	users RoleReader
}

func NewActivityService(feed AccessFeedReader, users RoleReader) *ActivityService {
	return &ActivityService{feed: feed, users: users}
}

// Feed возвращает записи по фильтру. Для не-администраторов фильтр по
// пользователю принудительно закрепляется на самом вызывающем.
func (s *ActivityService) Feed(ctx context.Context, callerID int64, filter repository.AccessFeedFilter) ([]domain.FileAccessLog, error) {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin {
		filter.UserID = &callerID
	}

	if filter.Days <= 0 {
		filter.Days = 7
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	return s.feed.AccessFeed(ctx, filter)
}

// MyActivity — последние действия самого пользователя.
func (s *ActivityService) MyActivity(ctx context.Context, userID int64, days, limit int) ([]domain.FileAccessLog, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.feed.AccessFeed(ctx, repository.AccessFeedFilter{
		UserID: &userID,
		Days:   days,
		Limit:  limit,
	})
}
