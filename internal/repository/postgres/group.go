package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
)

// PostgresGroupRepository implements the GroupRepository interface
type PostgresGroupRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(config *RepositoryConfig) repositories.GroupRepository {
	return &PostgresGroupRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new group
func (r *PostgresGroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, NOW())
		RETURNING created_at
	`, r.tables.Groups)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, group.ID, group.Name).Scan(&group.CreatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("group '%s': %w", group.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create group: %w", err)
	}

	return nil
}

// AddMember adds a user to a group (idempotent)
func (r *PostgresGroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (group_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, r.tables.GroupMembers)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, groupID, userID); err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("group %s: %w", groupID, domain.ErrNotFound)
		}
		return fmt.Errorf("add group member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a group
func (r *PostgresGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE group_id = $1 AND user_id = $2
	`, r.tables.GroupMembers)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("membership %s/%s: %w", groupID, userID, domain.ErrNotFound)
	}

	return nil
}

// GetUserGroupIDs expands a user into the set of groups whose grants apply
func (r *PostgresGroupRepository) GetUserGroupIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT group_id
		FROM %s
		WHERE user_id = $1
		ORDER BY group_id ASC
	`, r.tables.GroupMembers)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get user groups: %w", err)
	}
	defer rows.Close()

	var groupIDs []string
	for rows.Next() {
		var groupID string
		if err := rows.Scan(&groupID); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		groupIDs = append(groupIDs, groupID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group ids: %w", err)
	}

	return groupIDs, nil
}
