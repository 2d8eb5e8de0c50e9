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

const pageColumns = "id, space_id, parent_page_id, title, position, created_at, updated_at, deleted_at"

// PostgresPageRepository implements the PageRepository interface
type PostgresPageRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewPageRepository creates a new page repository
func NewPageRepository(config *RepositoryConfig) repositories.PageRepository {
	return &PostgresPageRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new page
func (r *PostgresPageRepository) Create(ctx context.Context, page *models.Page) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, space_id, parent_page_id, title, position, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		page.ID,
		page.SpaceID,
		page.ParentPageID,
		page.Title,
		page.Position,
		page.CreatedAt,
		page.UpdatedAt,
	).Scan(&page.CreatedAt, &page.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("page %s: %w", page.ID, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("page parent or space: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create page: %w", err)
	}

	return nil
}

// GetByID retrieves a page by ID, including soft-deleted pages
func (r *PostgresPageRepository) GetByID(ctx context.Context, id string) (*models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, pageColumns, r.tables.Pages)

	return r.getOne(ctx, query, id)
}

// GetLive retrieves a live (non-deleted) page by ID
func (r *PostgresPageRepository) GetLive(ctx context.Context, id string) (*models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND deleted_at IS NULL
	`, pageColumns, r.tables.Pages)

	return r.getOne(ctx, query, id)
}

// ListLive retrieves every live page across all spaces
func (r *PostgresPageRepository) ListLive(ctx context.Context) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE deleted_at IS NULL
		ORDER BY id ASC
	`, pageColumns, r.tables.Pages)

	return r.list(ctx, query)
}

// ListAll retrieves every page, soft-deleted included
func (r *PostgresPageRepository) ListAll(ctx context.Context) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY id ASC
	`, pageColumns, r.tables.Pages)

	return r.list(ctx, query)
}

// ListLiveBySpace retrieves all live pages in a space
func (r *PostgresPageRepository) ListLiveBySpace(ctx context.Context, spaceID string) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE space_id = $1 AND deleted_at IS NULL
		ORDER BY id ASC
	`, pageColumns, r.tables.Pages)

	return r.list(ctx, query, spaceID)
}

// ListLiveByIDs retrieves the live subset of the given pages
func (r *PostgresPageRepository) ListLiveByIDs(ctx context.Context, ids []string) ([]models.Page, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1) AND deleted_at IS NULL
		ORDER BY id ASC
	`, pageColumns, r.tables.Pages)

	return r.list(ctx, query, ids)
}

// ListLiveChildren retrieves the live direct children of a page
func (r *PostgresPageRepository) ListLiveChildren(ctx context.Context, parentID string) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE parent_page_id = $1 AND deleted_at IS NULL
		ORDER BY position ASC, id ASC
	`, pageColumns, r.tables.Pages)

	return r.list(ctx, query, parentID)
}

// Move re-parents a live page and assigns the target space to the page and
// its entire live subtree. Run inside a transaction so the parent update and
// the space cascade land together.
func (r *PostgresPageRepository) Move(ctx context.Context, id string, parentPageID *string, spaceID string) error {
	executor := GetExecutor(ctx, r.pool)

	update := fmt.Sprintf(`
		UPDATE %s
		SET parent_page_id = $1, space_id = $2, updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, r.tables.Pages)

	result, err := executor.Exec(ctx, update, parentPageID, spaceID, id)
	if err != nil {
		return fmt.Errorf("move page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}

	// Carry the live subtree into the target space
	cascade := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %s WHERE id = $1 AND deleted_at IS NULL
			UNION ALL
			SELECT p.id
			FROM %s p
			JOIN subtree s ON p.parent_page_id = s.id
			WHERE p.deleted_at IS NULL
		)
		UPDATE %s
		SET space_id = $2
		WHERE id IN (SELECT id FROM subtree) AND space_id <> $2
	`, r.tables.Pages, r.tables.Pages, r.tables.Pages)

	if _, err := executor.Exec(ctx, cascade, id, spaceID); err != nil {
		return fmt.Errorf("cascade page space: %w", err)
	}

	return nil
}

// SoftDelete marks a live page deleted
func (r *PostgresPageRepository) SoftDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft-delete page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Restore clears the soft-delete marker
func (r *PostgresPageRepository) Restore(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL
	`, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("restore page: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("deleted page %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// GetAncestorChains walks live parent_page_id links for each requested page
// using a recursive CTE. Chains are ordered from the page itself up to the
// root. Deleted and unknown pages produce no chain; a chain also stops short
// at the first deleted ancestor, so grants above a deleted page never apply.
func (r *PostgresPageRepository) GetAncestorChains(ctx context.Context, pageIDs []string) (map[string][]string, error) {
	if len(pageIDs) == 0 {
		return map[string][]string{}, nil
	}

	query := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT id, parent_page_id, id AS start_id, 0 AS hops
			FROM %s
			WHERE id = ANY($1) AND deleted_at IS NULL
			UNION ALL
			SELECT p.id, p.parent_page_id, c.start_id, c.hops + 1
			FROM %s p
			JOIN chain c ON p.id = c.parent_page_id
			WHERE p.deleted_at IS NULL
		)
		SELECT start_id, id
		FROM chain
		ORDER BY start_id, hops ASC
	`, r.tables.Pages, r.tables.Pages)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("get ancestor chains: %w", err)
	}
	defer rows.Close()

	chains := make(map[string][]string)
	for rows.Next() {
		var startID, pageID string
		if err := rows.Scan(&startID, &pageID); err != nil {
			return nil, fmt.Errorf("scan ancestor chain: %w", err)
		}
		chains[startID] = append(chains[startID], pageID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ancestor chains: %w", err)
	}

	return chains, nil
}

func (r *PostgresPageRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Page, error) {
	executor := GetExecutor(ctx, r.pool)

	var page models.Page
	err := executor.QueryRow(ctx, query, args...).Scan(
		&page.ID,
		&page.SpaceID,
		&page.ParentPageID,
		&page.Title,
		&page.Position,
		&page.CreatedAt,
		&page.UpdatedAt,
		&page.DeletedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("page: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page: %w", err)
	}

	return &page, nil
}

func (r *PostgresPageRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Page, error) {
	executor := GetExecutor(ctx, r.pool)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	pages, err := scanPages(rows)
	if err != nil {
		return nil, err
	}

	return pages, nil
}

func scanPages(rows pgx.Rows) ([]models.Page, error) {
	var pages []models.Page
	for rows.Next() {
		var page models.Page
		err := rows.Scan(
			&page.ID,
			&page.SpaceID,
			&page.ParentPageID,
			&page.Title,
			&page.Position,
			&page.CreatedAt,
			&page.UpdatedAt,
			&page.DeletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}

	return pages, nil
}
