package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
)

// PostgresSpaceRepository implements the SpaceRepository interface
type PostgresSpaceRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSpaceRepository creates a new space repository
func NewSpaceRepository(config *RepositoryConfig) repositories.SpaceRepository {
	return &PostgresSpaceRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new space
func (r *PostgresSpaceRepository) Create(ctx context.Context, space *models.Space) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING created_at, updated_at
	`, r.tables.Spaces)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, space.ID, space.Name).Scan(&space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("space '%s': %w", space.Name, domain.ErrConflict)
		}
		return fmt.Errorf("create space: %w", err)
	}

	return nil
}

// GetByID retrieves a space by ID
func (r *PostgresSpaceRepository) GetByID(ctx context.Context, id string) (*models.Space, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Spaces)

	executor := GetExecutor(ctx, r.pool)

	var space models.Space
	err := executor.QueryRow(ctx, query, id).Scan(
		&space.ID,
		&space.Name,
		&space.CreatedAt,
		&space.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get space: %w", err)
	}

	return &space, nil
}

// List retrieves all spaces
func (r *PostgresSpaceRepository) List(ctx context.Context) ([]models.Space, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at, updated_at
		FROM %s
		ORDER BY created_at ASC
	`, r.tables.Spaces)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []models.Space
	for rows.Next() {
		var space models.Space
		err := rows.Scan(&space.ID, &space.Name, &space.CreatedAt, &space.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, space)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spaces: %w", err)
	}

	return spaces, nil
}
