package service

import (
	"context"
	"fmt"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

// TeamStore — хранилище команд и составов.
type TeamStore interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Team, error)
	AddMember(ctx context.Context, member *domain.TeamMember) error
	ListMembers(ctx context.Context, teamID int64) ([]domain.TeamMember, error)
}

// TeamService управляет командами. Команда — цель групповых грантов:
// грант команде действует на каждого ее участника.
type TeamService struct {
	teams TeamStore
}

func NewTeamService(teams TeamStore) *TeamService {
	return &TeamService{teams: teams}
}

// Create создает команду; владелец сразу входит в состав.
func (s *TeamService) Create(ctx context.Context, name string, description *string, ownerID int64) (*domain.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", domain.ErrValidation)
	}

	team := &domain.Team{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// ListMine — команды, где пользователь состоит.
func (s *TeamService) ListMine(ctx context.Context, userID int64) ([]domain.Team, error) {
	return s.teams.ListByUser(ctx, userID)
}

// AddMember добавляет участника. Разрешено только владельцу команды.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID, callerID int64, role domain.UserRole) (*domain.TeamMember, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != callerID {
		return nil, fmt.Errorf("%w: only the team owner can add members", domain.ErrForbidden)
	}
	switch role {
	case "":
		role = domain.RoleViewer
	case domain.RoleAdmin, domain.RoleEditor, domain.RoleViewer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}

	member := &domain.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// ListMembers — состав команды. Доступно любому ее участнику.
func (s *TeamService) ListMembers(ctx context.Context, teamID, callerID int64) ([]domain.TeamMember, error) {
	members, err := s.teams.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	isMember := false
	for _, m := range members {
		if m.UserID == callerID {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, fmt.Errorf("%w: not a member of team %d", domain.ErrForbidden, teamID)
	}
	return members, nil
}
