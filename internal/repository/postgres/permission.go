package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
)

const permissionColumns = "id, page_id, user_id, group_id, role, created_at, updated_at, deleted_at"

// PostgresPermissionRepository implements the PermissionRepository interface
type PostgresPermissionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(config *RepositoryConfig) repositories.PermissionRepository {
	return &PostgresPermissionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Upsert records a grant, replacing any live grant for the same page and
// principal. Re-granting after a revocation inserts a fresh row so history
// is preserved.
func (r *PostgresPermissionRepository) Upsert(ctx context.Context, perm *models.PagePermission) error {
	executor := GetExecutor(ctx, r.pool)

	retire := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE page_id = $1
		  AND user_id IS NOT DISTINCT FROM $2
		  AND group_id IS NOT DISTINCT FROM $3
		  AND deleted_at IS NULL
	`, r.tables.Permissions)

	if _, err := executor.Exec(ctx, retire, perm.PageID, perm.UserID, perm.GroupID); err != nil {
		return fmt.Errorf("retire previous grant: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (id, page_id, user_id, group_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`, r.tables.Permissions)

	err := executor.QueryRow(ctx, insert,
		perm.ID,
		perm.PageID,
		perm.UserID,
		perm.GroupID,
		perm.Role,
	).Scan(&perm.CreatedAt, &perm.UpdatedAt)

	if err != nil {
		if isPgForeignKeyError(err) {
			return fmt.Errorf("grant page %s: %w", perm.PageID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert grant: %w", err)
	}

	return nil
}

// SoftDelete revokes the live grant for a page and principal
func (r *PostgresPermissionRepository) SoftDelete(ctx context.Context, pageID string, userID, groupID *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE page_id = $1
		  AND user_id IS NOT DISTINCT FROM $2
		  AND group_id IS NOT DISTINCT FROM $3
		  AND deleted_at IS NULL
	`, r.tables.Permissions)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, pageID, userID, groupID)
	if err != nil {
		return fmt.Errorf("revoke grant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("grant on page %s: %w", pageID, domain.ErrNotFound)
	}

	return nil
}

// ListByPage retrieves all live grants on a page
func (r *PostgresPermissionRepository) ListByPage(ctx context.Context, pageID string) ([]models.PagePermission, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE page_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`, permissionColumns, r.tables.Permissions)

	return r.list(ctx, query, pageID)
}

// ListMatching retrieves every live grant on any of the given pages that
// matches the user directly or via one of the groups. This is the single
// fetch the batch resolver runs over a request's pages plus all their
// ancestors.
func (r *PostgresPermissionRepository) ListMatching(ctx context.Context, pageIDs []string, userID string, groupIDs []string) ([]models.PagePermission, error) {
	if len(pageIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE page_id = ANY($1)
		  AND deleted_at IS NULL
		  AND (user_id = $2 OR group_id = ANY($3))
	`, permissionColumns, r.tables.Permissions)

	return r.list(ctx, query, pageIDs, userID, groupIDs)
}

// ListForPrincipals retrieves every live grant anywhere that matches the user
// directly or via one of the groups
func (r *PostgresPermissionRepository) ListForPrincipals(ctx context.Context, userID string, groupIDs []string) ([]models.PagePermission, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NULL
		  AND (user_id = $1 OR group_id = ANY($2))
	`, permissionColumns, r.tables.Permissions)

	return r.list(ctx, query, userID, groupIDs)
}

func (r *PostgresPermissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.PagePermission, error) {
	executor := GetExecutor(ctx, r.pool)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	return scanPermissions(rows)
}

func scanPermissions(rows pgx.Rows) ([]models.PagePermission, error) {
	var perms []models.PagePermission
	for rows.Next() {
		var perm models.PagePermission
		err := rows.Scan(
			&perm.ID,
			&perm.PageID,
			&perm.UserID,
			&perm.GroupID,
			&perm.Role,
			&perm.CreatedAt,
			&perm.UpdatedAt,
			&perm.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		perms = append(perms, perm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grants: %w", err)
	}

	return perms, nil
}
