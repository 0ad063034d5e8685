package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

type fakeTeamStore struct {
	nextID  int64
	teams   map[int64]*domain.Team
	members map[int64][]domain.TeamMember
}

func newFakeTeamStore() *fakeTeamStore {
	return &fakeTeamStore{nextID: 1, teams: make(map[int64]*domain.Team), members: make(map[int64][]domain.TeamMember)}
}

func (f *fakeTeamStore) Create(_ context.Context, team *domain.Team) error {
	team.ID = f.nextID
	f.nextID++
	team.CreatedAt = time.Now().UTC()
	f.teams[team.ID] = team
	f.members[team.ID] = []domain.TeamMember{{
		TeamID: team.ID,
		UserID: team.OwnerID,
		Role:   domain.RoleAdmin,
	}}
	return nil
}

func (f *fakeTeamStore) GetByID(_ context.Context, id int64) (*domain.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return nil, fmt.Errorf("%w: team %d", domain.ErrNotFound, id)
	}
	copied := *team
	return &copied, nil
}

func (f *fakeTeamStore) ListByUser(_ context.Context, userID int64) ([]domain.Team, error) {
	var out []domain.Team
	for teamID, members := range f.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, *f.teams[teamID])
			}
		}
	}
	return out, nil
}

func (f *fakeTeamStore) AddMember(_ context.Context, member *domain.TeamMember) error {
	for _, m := range f.members[member.TeamID] {
		if m.UserID == member.UserID {
			return fmt.Errorf("%w: user already in team", domain.ErrValidation)
		}
	}
	f.members[member.TeamID] = append(f.members[member.TeamID], *member)
	return nil
}

func (f *fakeTeamStore) ListMembers(_ context.Context, teamID int64) ([]domain.TeamMember, error) {
	return f.members[teamID], nil
}

func TestTeamCreate(t *testing.T) {
	svc := NewTeamService(newFakeTeamStore())
	ctx := context.Background()

	team, err := svc.Create(ctx, "analytics", nil, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), team.OwnerID)

	// Владелец сразу в составе
	members, err := svc.ListMembers(ctx, team.ID, 1)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, int64(1), members[0].UserID)

	_, err = svc.Create(ctx, "", nil, 1)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTeamAddMemberOwnerOnly(t *testing.T) {
	svc := NewTeamService(newFakeTeamStore())
	ctx := context.Background()

	team, err := svc.Create(ctx, "analytics", nil, 1)
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, team.ID, 3, 2, domain.RoleViewer)
	require.ErrorIs(t, err, domain.ErrForbidden)

	member, err := svc.AddMember(ctx, team.ID, 3, 1, "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleViewer, member.Role)

	_, err = svc.AddMember(ctx, team.ID, 3, 1, domain.RoleViewer)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTeamListMembersRequiresMembership(t *testing.T) {
	svc := NewTeamService(newFakeTeamStore())
	ctx := context.Background()

	team, err := svc.Create(ctx, "analytics", nil, 1)
	require.NoError(t, err)

	_, err = svc.ListMembers(ctx, team.ID, 42)
	require.ErrorIs(t, err, domain.ErrForbidden)
}
