package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"canopy/internal/config"
	"canopy/internal/domain/models"
	"canopy/internal/domain/services"
	"canopy/internal/repository/postgres"
	"canopy/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	clearData := flag.Bool("clear-data", false, "Clear all rows (keep schema)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *clearData {
		log.Printf("🧹 Clearing data only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	if *clearData {
		log.Println("🧹 Clearing existing rows...")
		if err := clearAllData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		log.Println("✅ Data cleared successfully")
		return
	}

	// Create repositories and services
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	spaceRepo := postgres.NewSpaceRepository(repoConfig)
	pageRepo := postgres.NewPageRepository(repoConfig)
	hierarchyRepo := postgres.NewHierarchyRepository(repoConfig)
	permRepo := postgres.NewPermissionRepository(repoConfig)
	groupRepo := postgres.NewGroupRepository(repoConfig)
	lockManager := postgres.NewAdvisoryLockManager(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	hierarchyService := service.NewHierarchyService(pageRepo, hierarchyRepo, lockManager, txManager, logger)
	accessService := service.NewAccessService(pageRepo, permRepo, groupRepo, txManager, logger)
	pageService := service.NewPageService(pageRepo, spaceRepo, txManager, hierarchyService, logger)
	spaceService := service.NewSpaceService(spaceRepo, logger)
	groupService := service.NewGroupService(groupRepo, logger)

	// Clear existing data so seeding is repeatable
	log.Println("⚠️  Clearing existing rows...")
	if err := clearAllData(ctx, pool, tables); err != nil {
		log.Printf("Warning: Could not clear data: %v", err)
	}

	log.Println("📝 Seeding demo workspace...")
	if err := seedDemoWorkspace(ctx, spaceService, pageService, groupService, accessService); err != nil {
		log.Fatalf("Failed to seed demo workspace: %v", err)
	}

	// The page service rebuilds per space as it goes; a final global rebuild
	// leaves the closure relation verifiably consistent.
	edges, _, err := hierarchyService.RebuildAll(ctx)
	if err != nil {
		log.Fatalf("Failed to rebuild hierarchy: %v", err)
	}
	log.Printf("✅ Hierarchy rebuilt (%d edges)", edges)

	log.Println("🎉 Seeding complete!")
}

// seedDemoWorkspace creates a small page tree with a group and a few grants
// exercising inheritance, denial and override.
func seedDemoWorkspace(
	ctx context.Context,
	spaceService services.SpaceService,
	pageService services.PageService,
	groupService services.GroupService,
	accessService services.AccessService,
) error {
	space, err := spaceService.CreateSpace(ctx, &services.CreateSpaceRequest{Name: "Engineering"})
	if err != nil {
		return err
	}
	log.Printf("✅ Created space: %s (ID: %s)", space.Name, space.ID)

	type pageSeed struct {
		title  string
		parent *string
	}

	handbook, err := pageService.CreatePage(ctx, &services.CreatePageRequest{
		SpaceID: space.ID,
		Title:   "Handbook",
	})
	if err != nil {
		return err
	}

	seeds := []pageSeed{
		{title: "Onboarding", parent: &handbook.ID},
		{title: "Architecture", parent: &handbook.ID},
		{title: "Runbooks", parent: nil},
	}

	created := map[string]*models.Page{"Handbook": handbook}
	for _, seed := range seeds {
		page, err := pageService.CreatePage(ctx, &services.CreatePageRequest{
			SpaceID:      space.ID,
			ParentPageID: seed.parent,
			Title:        seed.title,
		})
		if err != nil {
			return err
		}
		created[seed.title] = page
		log.Printf("✅ Created page: %s (ID: %s)", page.Title, page.ID)
	}

	// Secrets lives under Architecture so the deny-then-override path is
	// exercised: the team is denied on Architecture's child but the lead gets
	// an explicit grant back.
	secrets, err := pageService.CreatePage(ctx, &services.CreatePageRequest{
		SpaceID:      space.ID,
		ParentPageID: &created["Architecture"].ID,
		Title:        "Secrets",
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Created page: %s (ID: %s)", secrets.Title, secrets.ID)

	team, err := groupService.CreateGroup(ctx, &services.CreateGroupRequest{Name: "eng-team"})
	if err != nil {
		return err
	}

	const (
		leadUserID   = "00000000-0000-0000-0000-000000000001"
		memberUserID = "00000000-0000-0000-0000-000000000002"
	)
	for _, userID := range []string{leadUserID, memberUserID} {
		if err := groupService.AddMember(ctx, team.ID, userID); err != nil {
			return err
		}
	}
	log.Printf("✅ Created group: %s with 2 members", team.Name)

	grants := []services.GrantRoleRequest{
		{PageID: handbook.ID, GroupID: &team.ID, Role: models.RoleReader},
		{PageID: created["Runbooks"].ID, GroupID: &team.ID, Role: models.RoleWriter},
		{PageID: secrets.ID, GroupID: &team.ID, Role: models.RoleNone},
		{PageID: secrets.ID, UserID: strPtr(leadUserID), Role: models.RoleAdmin},
	}
	for _, grant := range grants {
		if _, err := accessService.GrantRole(ctx, &grant); err != nil {
			return err
		}
	}
	log.Printf("✅ Created %d grants", len(grants))

	return nil
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	// Enable UUID extension
	_, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")
	if err != nil {
		return err
	}

	// Create spaces table
	createSpaces := `
		CREATE TABLE IF NOT EXISTS ` + tables.Spaces + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSpaces); err != nil {
		return err
	}

	// Create pages table. parent_page_id has no ON DELETE action because
	// pages are soft-deleted; live children of a deleted page are orphans
	// until restored or moved.
	createPages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Pages + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			space_id UUID NOT NULL REFERENCES ` + tables.Spaces + `(id) ON DELETE CASCADE,
			parent_page_id UUID REFERENCES ` + tables.Pages + `(id),
			title TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createPages); err != nil {
		return err
	}

	// Create closure table. Fully derived from pages; rebuilt wholesale,
	// never updated incrementally.
	createHierarchy := `
		CREATE TABLE IF NOT EXISTS ` + tables.Hierarchy + ` (
			ancestor_page_id UUID NOT NULL,
			descendant_page_id UUID NOT NULL,
			depth INTEGER NOT NULL,
			PRIMARY KEY (ancestor_page_id, descendant_page_id)
		)
	`
	if _, err := pool.Exec(ctx, createHierarchy); err != nil {
		return err
	}

	// Create permissions table. Retired grants keep their rows with
	// deleted_at set, preserving grant history.
	createPermissions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Permissions + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			page_id UUID NOT NULL REFERENCES ` + tables.Pages + `(id) ON DELETE CASCADE,
			user_id UUID,
			group_id UUID,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			CHECK ((user_id IS NULL) != (group_id IS NULL))
		)
	`
	if _, err := pool.Exec(ctx, createPermissions); err != nil {
		return err
	}

	// Create groups table
	createGroups := `
		CREATE TABLE IF NOT EXISTS ` + tables.Groups + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createGroups); err != nil {
		return err
	}

	// Create group members table
	createGroupMembers := `
		CREATE TABLE IF NOT EXISTS ` + tables.GroupMembers + ` (
			group_id UUID NOT NULL REFERENCES ` + tables.Groups + `(id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		)
	`
	if _, err := pool.Exec(ctx, createGroupMembers); err != nil {
		return err
	}

	// Create indexes
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `pages_space_id ON ` + tables.Pages + `(space_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `pages_parent ON ` + tables.Pages + `(parent_page_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `hierarchy_descendant ON ` + tables.Hierarchy + `(descendant_page_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `permissions_page ON ` + tables.Permissions + `(page_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `permissions_user ON ` + tables.Permissions + `(user_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `permissions_group ON ` + tables.Permissions + `(group_id) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `group_members_user ON ` + tables.GroupMembers + `(user_id)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.GroupMembers,
		tables.Groups,
		tables.Permissions,
		tables.Hierarchy,
		tables.Pages,
		tables.Spaces,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}

// clearAllData deletes all rows in dependency order
func clearAllData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.GroupMembers,
		tables.Groups,
		tables.Permissions,
		tables.Hierarchy,
		tables.Pages,
		tables.Spaces,
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	return nil
}

// strPtr returns a pointer to a string
func strPtr(s string) *string {
	return &s
}
