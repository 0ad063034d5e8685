package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/malipravin2580/Data-Manager/internal/domain"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create создает команду и сразу добавляет владельца в состав.
func (r *TeamRepository) Create(ctx context.Context, team *domain.Team) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowxContext(
		ctx,
		`INSERT INTO teams (name, description, owner_id)
         VALUES ($1, $2, $3)
         RETURNING id, created_at`,
		team.Name,
		team.Description,
		team.OwnerID,
	).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)`,
		team.ID,
		team.OwnerID,
		domain.RoleAdmin,
	)
	if err != nil {
		return fmt.Errorf("failed to add team owner: %w", err)
	}

	return tx.Commit()
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var team domain.Team
	err := r.db.GetContext(ctx, &team, `SELECT * FROM teams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: team %d", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

func (r *TeamRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Team, error) {
	query := `
        SELECT t.* FROM teams t
        JOIN team_members tm ON tm.team_id = t.id
        WHERE tm.user_id = $1
        ORDER BY t.name ASC`

	var teams []domain.Team
	if err := r.db.SelectContext(ctx, &teams, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (r *TeamRepository) AddMember(ctx context.Context, member *domain.TeamMember) error {
	err := r.db.QueryRowxContext(
		ctx,
		`INSERT INTO team_members (team_id, user_id, role)
         VALUES ($1, $2, $3)
         RETURNING id, joined_at`,
		member.TeamID,
		member.UserID,
		member.Role,
	).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return fmt.Errorf("%w: user already in team", domain.ErrValidation)
		}
		return fmt.Errorf("failed to add team member: %w", err)
	}
	return nil
}

func (r *TeamRepository) ListMembers(ctx context.Context, teamID int64) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := r.db.SelectContext(
		ctx,
		&members,
		`SELECT * FROM team_members WHERE team_id = $1 ORDER BY joined_at ASC`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}
