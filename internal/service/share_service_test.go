package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// fakeShareStore воспроизводит семантику ShareLinkRepository в памяти.
type fakeShareStore struct {
	nextID int64
	links  map[int64]*domain.ShareLink
}

func newFakeShareStore() *fakeShareStore {
	return &fakeShareStore{nextID: 1, links: make(map[int64]*domain.ShareLink)}
}

func (f *fakeShareStore) Create(_ context.Context, link *domain.ShareLink) error {
	link.ID = f.nextID
	f.nextID++
	link.IsActive = true
	link.CreatedAt = time.Now().UTC()
	f.links[link.ID] = link
	return nil
}

func (f *fakeShareStore) GetByToken(_ context.Context, token string) (*domain.ShareLink, error) {
	for _, link := range f.links {
		if link.Token == token {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeShareStore) GetByID(_ context.Context, id int64) (*domain.ShareLink, error) {
	link, ok := f.links[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *link
	return &copied, nil
}

func (f *fakeShareStore) ListByCreator(_ context.Context, creatorID int64) ([]domain.ShareLink, error) {
	var out []domain.ShareLink
	for _, link := range f.links {
		if link.CreatorID == creatorID {
			out = append(out, *link)
		}
	}
	return out, nil
}

func (f *fakeShareStore) ConsumeView(_ context.Context, id int64) (*domain.ShareLink, bool, error) {
	link, ok := f.links[id]
	if !ok || !link.IsActive {
		return nil, false, nil
	}
	if link.MaxViews != nil && link.ViewCount >= *link.MaxViews {
		return nil, false, nil
	}
	link.ViewCount++
	if link.MaxViews != nil && link.ViewCount >= *link.MaxViews {
		link.IsActive = false
	}
	copied := *link
	return &copied, true, nil
}

func (f *fakeShareStore) Deactivate(_ context.Context, id int64) error {
	if link, ok := f.links[id]; ok {
		link.IsActive = false
	}
	return nil
}

func (f *fakeShareStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.links[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.links, id)
	return nil
}

func newTestShareService(store *fakeShareStore) *ShareService {
	return NewShareService(store, "http://localhost:5173", 7)
}

func TestShareCreateDefaults(t *testing.T) {
	store := newFakeShareStore()
	svc := newTestShareService(store)
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1})
	require.NoError(t, err)
	require.Equal(t, domain.PermissionView, link.Permission)
	require.NotEmpty(t, link.Token)
	require.True(t, link.IsActive)
	require.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 7), link.ExpiresAt, time.Minute)
	require.Nil(t, link.PasswordHash)
}

func TestShareCreateValidation(t *testing.T) {
	svc := newTestShareService(newFakeShareStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateShareParams{CreatorID: 1})
	require.ErrorIs(t, err, domain.ErrValidation)

	zero := 0
	_, err = svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1, MaxViews: &zero})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestShareValidateUnknownToken(t *testing.T) {
	svc := newTestShareService(newFakeShareStore())

	link, err := svc.Validate(context.Background(), "no-such-token", "")
	require.NoError(t, err)
	require.Nil(t, link)
}

func TestShareValidateExpired(t *testing.T) {
	store := newFakeShareStore()
	svc := newTestShareService(store)
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1})
	require.NoError(t, err)
	store.links[link.ID].ExpiresAt = time.Now().UTC().Add(-time.Hour)

	got, err := svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestShareValidatePassword(t *testing.T) {
	store := newFakeShareStore()
	svc := newTestShareService(store)
	ctx := context.Background()

	password := "letmein99"
	link, err := svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1, Password: &password})
	require.NoError(t, err)

	got, err := svc.Validate(ctx, link.Token, "wrong")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = svc.Validate(ctx, link.Token, password)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, got.ViewCount)
}

func TestShareValidateViewLimit(t *testing.T) {
	store := newFakeShareStore()
	svc := newTestShareService(store)
	ctx := context.Background()

	maxViews := 2
	link, err := svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1, MaxViews: &maxViews})
	require.NoError(t, err)

	// Первый просмотр проходит
	got, err := svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 1, got.ViewCount)
	require.True(t, got.IsActive)

	// Последний разрешенный просмотр проходит и гасит ссылку
	got, err = svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 2, got.ViewCount)
	require.False(t, got.IsActive)

	// Дальше ссылка мертва, счетчик не растет
	got, err = svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, 2, store.links[link.ID].ViewCount)
}

func TestShareDeleteCreatorOnly(t *testing.T) {
	store := newFakeShareStore()
	svc := newTestShareService(store)
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateShareParams{FilePath: "data.csv", CreatorID: 1})
	require.NoError(t, err)

	err = svc.Delete(ctx, link.ID, 2)
	require.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, link.ID, 1))

	got, err := svc.Validate(ctx, link.Token, "")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestShareURL(t *testing.T) {
	svc := NewShareService(newFakeShareStore(), "http://localhost:5173/", 7)
	require.Equal(t, "http://localhost:5173/share/abc", svc.ShareURL("abc"))
}
