package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
)

// PostgresHierarchyRepository implements the HierarchyRepository interface.
// The closure relation is replaced wholesale (delete then bulk-insert) so a
// concurrent reader sees either the old slice or the new one, never a mix.
type PostgresHierarchyRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewHierarchyRepository creates a new hierarchy repository
func NewHierarchyRepository(config *RepositoryConfig) repositories.HierarchyRepository {
	return &PostgresHierarchyRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ReplaceAll swaps the entire relation for the given edges
func (r *PostgresHierarchyRepository) ReplaceAll(ctx context.Context, edges []models.HierarchyEdge) (int, error) {
	executor := GetExecutor(ctx, r.pool)

	query := fmt.Sprintf("DELETE FROM %s", r.tables.Hierarchy)
	if _, err := executor.Exec(ctx, query); err != nil {
		return 0, fmt.Errorf("clear hierarchy: %w", err)
	}

	return r.bulkInsert(ctx, executor, edges)
}

// ReplaceSpace deletes every edge whose descendant belongs to the space and
// inserts the given edges
func (r *PostgresHierarchyRepository) ReplaceSpace(ctx context.Context, spaceID string, edges []models.HierarchyEdge) (int, error) {
	executor := GetExecutor(ctx, r.pool)

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE descendant_page_id IN (SELECT id FROM %s WHERE space_id = $1)
	`, r.tables.Hierarchy, r.tables.Pages)

	if _, err := executor.Exec(ctx, query, spaceID); err != nil {
		return 0, fmt.Errorf("clear hierarchy for space %s: %w", spaceID, err)
	}

	return r.bulkInsert(ctx, executor, edges)
}

// ListAll retrieves the stored relation
func (r *PostgresHierarchyRepository) ListAll(ctx context.Context) ([]models.HierarchyEdge, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_page_id, descendant_page_id, depth
		FROM %s
		ORDER BY ancestor_page_id, descendant_page_id
	`, r.tables.Hierarchy)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hierarchy: %w", err)
	}
	defer rows.Close()

	var edges []models.HierarchyEdge
	for rows.Next() {
		var edge models.HierarchyEdge
		if err := rows.Scan(&edge.AncestorPageID, &edge.DescendantPageID, &edge.Depth); err != nil {
			return nil, fmt.Errorf("scan hierarchy edge: %w", err)
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hierarchy edges: %w", err)
	}

	return edges, nil
}

// ListAncestors retrieves a page's live ancestors ordered root-first
func (r *PostgresHierarchyRepository) ListAncestors(ctx context.Context, pageID string) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s h
		JOIN %s p ON p.id = h.ancestor_page_id
		WHERE h.descendant_page_id = $1 AND h.depth > 0 AND p.deleted_at IS NULL
		ORDER BY h.depth DESC
	`, prefixedPageColumns("p"), r.tables.Hierarchy, r.tables.Pages)

	return r.listPages(ctx, query, pageID)
}

// ListDescendants retrieves a page's live descendants, unordered
func (r *PostgresHierarchyRepository) ListDescendants(ctx context.Context, pageID string) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s h
		JOIN %s p ON p.id = h.descendant_page_id
		WHERE h.ancestor_page_id = $1 AND h.depth > 0 AND p.deleted_at IS NULL
	`, prefixedPageColumns("p"), r.tables.Hierarchy, r.tables.Pages)

	return r.listPages(ctx, query, pageID)
}

func (r *PostgresHierarchyRepository) listPages(ctx context.Context, query string, args ...interface{}) ([]models.Page, error) {
	executor := GetExecutor(ctx, r.pool)

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query hierarchy pages: %w", err)
	}
	defer rows.Close()

	return scanPages(rows)
}

func (r *PostgresHierarchyRepository) bulkInsert(ctx context.Context, executor repositories.DBTX, edges []models.HierarchyEdge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}

	copied, err := executor.CopyFrom(ctx,
		pgx.Identifier{r.tables.Hierarchy},
		[]string{"ancestor_page_id", "descendant_page_id", "depth"},
		pgx.CopyFromSlice(len(edges), func(i int) ([]interface{}, error) {
			return []interface{}{edges[i].AncestorPageID, edges[i].DescendantPageID, edges[i].Depth}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("insert hierarchy edges: %w", err)
	}

	return int(copied), nil
}

// prefixedPageColumns qualifies the page column list with a table alias for
// join queries.
func prefixedPageColumns(alias string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.space_id, %[1]s.parent_page_id, %[1]s.title, %[1]s.position, %[1]s.created_at, %[1]s.updated_at, %[1]s.deleted_at", alias)
}
