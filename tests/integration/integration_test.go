package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/actudb/data"
	"github.com/localnerve/actudb/internal/config"
	"github.com/localnerve/actudb/internal/database"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const testTenant = "33333333-3333-3333-3333-333333333333"

func dbImage(envKey, fallback string) string {
	if img := os.Getenv(envKey); img != "" {
		return img
	}
	return fallback
}

// TestWithMariaDB tests the engine against a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	mariadbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage("DB_IMAGE", "mariadb:11"),
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "rootpass",
				"MYSQL_DATABASE":      "actudb",
				"MYSQL_USER":          "actudb",
				"MYSQL_PASSWORD":      "testpass",
			},
			WaitingFor: wait.ForLog("ready for connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}
	defer func() {
		if err := mariadbContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate MariaDB container: %v", err)
		}
	}()

	host, err := mariadbContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := mariadbContainer.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	// Wait for database to be ready
	time.Sleep(5 * time.Second)

	// Apply the packaged DDL as root, the way deployments initialize
	initMariaDBSchema(t, host, port.Port())

	cfg := &config.Config{
		DBType:            "mysql",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "actudb",
		DBUser:            "root",
		DBPassword:        "rootpass",
		DBConnectionLimit: 10,
	}

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Reconcile any drift between the DDL and the models
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	runEngineSuite(t, db, cfg)

	t.Run("ConcurrentSnapshots", func(t *testing.T) {
		testConcurrentSnapshots(t, db, cfg)
	})
	t.Run("ConcurrentApprove", func(t *testing.T) {
		testConcurrentApprove(t, db, cfg)
	})
}

// TestWithPostgreSQL tests the engine against a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage("POSTGRES_IMAGE", "postgres:16"),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_USER":     "actudb",
				"POSTGRES_DB":       "actudb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}()

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		DBType:            "postgres",
		DBHost:            host,
		DBPort:            port.Port(),
		DBDatabase:        "actudb",
		DBUser:            "actudb",
		DBPassword:        "testpass",
		DBConnectionLimit: 10,
	}

	// Wait for database to be ready
	time.Sleep(2 * time.Second)

	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	runEngineSuite(t, db, cfg)

	t.Run("ConcurrentSnapshots", func(t *testing.T) {
		testConcurrentSnapshots(t, db, cfg)
	})
	t.Run("ConcurrentApprove", func(t *testing.T) {
		testConcurrentApprove(t, db, cfg)
	})
}

// initMariaDBSchema executes the packaged initdb DDL against the container
func initMariaDBSchema(t *testing.T, host, port string) {
	db, err := sql.Open("mysql", fmt.Sprintf("root:rootpass@tcp(%s:%s)/", host, port))
	if err != nil {
		t.Fatalf("Failed to connect for schema init: %v", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		t.Fatalf("MariaDB not ready after 30 seconds: %v", err)
	}

	if err := executeSQL(db, data.InitdbMariaDBTables); err != nil {
		t.Fatalf("Failed to execute tables init sql: %v", err)
	}
	if err := executeSQL(db, data.InitdbMariaDBPrivileges); err != nil {
		t.Fatalf("Failed to execute privileges init sql: %v", err)
	}
}

// executeSQL runs a multi-statement script, skipping comment lines
func executeSQL(db *sql.DB, script string) error {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), stmt)
		}
	}
	return nil
}

func newEngine(db *gorm.DB, cfg *config.Config) (*services.VersioningService, *services.ApprovalService, *services.DiffService) {
	if cfg.VersionCommentMaxLength == 0 {
		cfg.VersionCommentMaxLength = 500
	}
	if cfg.ReviewCommentMinLength == 0 {
		cfg.ReviewCommentMinLength = 10
	}
	if cfg.ReviewCommentMaxLength == 0 {
		cfg.ReviewCommentMaxLength = 500
	}
	versioning := services.NewVersioningService(db, cfg, services.NewLiveTableStore())
	approvals := services.NewApprovalService(db, cfg, versioning)
	diff := services.NewDiffService(db, versioning)
	return versioning, approvals, diff
}

func testActor(role string) services.Actor {
	return services.Actor{
		UserID:   uuid.New(),
		TenantID: uuid.MustParse(testTenant),
		Role:     role,
	}
}

// seedTable creates a mortality table with two columns and three rows
func seedTable(t *testing.T, db *gorm.DB, name string) uuid.UUID {
	table := models.AssumptionTable{
		TenantID:  uuid.MustParse(testTenant),
		Name:      name,
		CreatedBy: uuid.New(),
	}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}

	age := models.AssumptionColumn{TableID: table.ID, Name: "age", DataKind: models.KindInteger, Position: 0}
	qx := models.AssumptionColumn{TableID: table.ID, Name: "qx", DataKind: models.KindDecimal, Position: 1}
	if err := db.Create(&age).Error; err != nil {
		t.Fatalf("Failed to create column: %v", err)
	}
	if err := db.Create(&qx).Error; err != nil {
		t.Fatalf("Failed to create column: %v", err)
	}

	for i, pair := range [][2]string{{"30", "0.00105"}, {"31", "0.00112"}, {"32", "0.00120"}} {
		row := models.AssumptionRow{TableID: table.ID, RowIndex: i}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("Failed to create row: %v", err)
		}
		a, q := pair[0], pair[1]
		cells := []models.AssumptionCell{
			{RowID: row.ID, ColumnID: age.ID, Value: &a},
			{RowID: row.ID, ColumnID: qx.ID, Value: &q},
		}
		for j := range cells {
			if err := db.Create(&cells[j]).Error; err != nil {
				t.Fatalf("Failed to create cell: %v", err)
			}
		}
	}
	return table.ID
}

func runEngineSuite(t *testing.T, db *gorm.DB, cfg *config.Config) {
	t.Run("SnapshotAndDiff", func(t *testing.T) {
		testSnapshotAndDiff(t, db, cfg)
	})
	t.Run("RestoreRoundTrip", func(t *testing.T) {
		testRestoreRoundTrip(t, db, cfg)
	})
	t.Run("ApprovalWorkflow", func(t *testing.T) {
		testApprovalWorkflow(t, db, cfg)
	})
	t.Run("HealthCheck", func(t *testing.T) {
		testHealthCheck(t, db, cfg)
	})
}

// testHealthCheck verifies the database probe against the live container.
// No authorizer runs in this suite, so the overall status is unhealthy.
func testHealthCheck(t *testing.T, db *gorm.DB, cfg *config.Config) {
	probe := *cfg
	probe.AuthzURL = "http://localhost:1"

	result := services.HealthCheck(&probe, db)
	if result.Database != "ok" {
		t.Errorf("Expected database ok, got %s", result.Database)
	}
	if result.Authorizer != "unreachable" {
		t.Errorf("Expected authorizer unreachable, got %s", result.Authorizer)
	}
	if result.Status != "unhealthy" {
		t.Errorf("Expected unhealthy overall status, got %s", result.Status)
	}
}

func testSnapshotAndDiff(t *testing.T, db *gorm.DB, cfg *config.Config) {
	versioning, _, diff := newEngine(db, cfg)
	actor := testActor(models.RoleAnalyst)
	tableID := seedTable(t, db, "mortality-"+uuid.NewString()[:8])

	v1, err := versioning.CreateVersion(actor, tableID, "Baseline study")
	if err != nil {
		t.Fatalf("Failed to create v1: %v", err)
	}
	if v1.VersionNumber != 1 {
		t.Errorf("Expected version 1, got %d", v1.VersionNumber)
	}

	// Modify one cell, snapshot again
	var row models.AssumptionRow
	if err := db.Where("table_id = ? AND row_index = ?", tableID, 1).First(&row).Error; err != nil {
		t.Fatalf("Failed to find row: %v", err)
	}
	var col models.AssumptionColumn
	if err := db.Where("table_id = ? AND name = ?", tableID, "qx").First(&col).Error; err != nil {
		t.Fatalf("Failed to find column: %v", err)
	}
	if err := db.Model(&models.AssumptionCell{}).
		Where("row_id = ? AND column_id = ?", row.ID, col.ID).
		Update("value", "0.00150").Error; err != nil {
		t.Fatalf("Failed to update cell: %v", err)
	}

	v2, err := versioning.CreateVersion(actor, tableID, "Shock scenario")
	if err != nil {
		t.Fatalf("Failed to create v2: %v", err)
	}

	result, err := diff.ComputeDiff(actor, v1.ID, v2.ID, services.DiffOptions{})
	if err != nil {
		t.Fatalf("Failed to compute diff: %v", err)
	}
	if result.Summary.CellsModified != 1 || result.Summary.TotalChanges != 1 {
		t.Errorf("Unexpected diff summary: %+v", result.Summary)
	}

	csvBytes, err := diff.ExportDiffCSV(actor, v1.ID, v2.ID, services.DiffOptions{})
	if err != nil {
		t.Fatalf("Failed to export CSV: %v", err)
	}
	if !strings.Contains(string(csvBytes), "1,qx,0.00112,0.00150,modified") {
		t.Errorf("Expected modification line in CSV, got:\n%s", string(csvBytes))
	}
}

func testRestoreRoundTrip(t *testing.T, db *gorm.DB, cfg *config.Config) {
	versioning, _, diff := newEngine(db, cfg)
	actor := testActor(models.RoleAnalyst)
	tableID := seedTable(t, db, "restore-"+uuid.NewString()[:8])

	v1, err := versioning.CreateVersion(actor, tableID, "Baseline")
	if err != nil {
		t.Fatalf("Failed to create v1: %v", err)
	}

	// Drop a row and snapshot the reduced table
	var row models.AssumptionRow
	if err := db.Where("table_id = ? AND row_index = ?", tableID, 2).First(&row).Error; err != nil {
		t.Fatalf("Failed to find row: %v", err)
	}
	if err := db.Where("row_id = ?", row.ID).Delete(&models.AssumptionCell{}).Error; err != nil {
		t.Fatalf("Failed to delete cells: %v", err)
	}
	if err := db.Delete(&models.AssumptionRow{}, "id = ?", row.ID).Error; err != nil {
		t.Fatalf("Failed to delete row: %v", err)
	}
	if _, err := versioning.CreateVersion(actor, tableID, "Truncated"); err != nil {
		t.Fatalf("Failed to create v2: %v", err)
	}

	restored, err := versioning.RestoreVersion(actor, v1.ID)
	if err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	result, err := diff.ComputeDiff(actor, v1.ID, restored.ID, services.DiffOptions{})
	if err != nil {
		t.Fatalf("Failed to diff: %v", err)
	}
	if result.Summary.TotalChanges != 0 {
		t.Errorf("Expected restore to reproduce the baseline, got %+v", result.Summary)
	}
}

func testApprovalWorkflow(t *testing.T, db *gorm.DB, cfg *config.Config) {
	versioning, approvals, _ := newEngine(db, cfg)
	analyst := testActor(models.RoleAnalyst)
	admin := testActor(models.RoleAdmin)
	tableID := seedTable(t, db, "approval-"+uuid.NewString()[:8])

	meta, err := versioning.CreateVersion(analyst, tableID, "For review")
	if err != nil {
		t.Fatalf("Failed to create version: %v", err)
	}
	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}
	if _, err := approvals.Reject(admin, meta.ID, "The qx loading looks double-counted"); err != nil {
		t.Fatalf("Failed to reject: %v", err)
	}
	if _, err := approvals.Resubmit(analyst, meta.ID, "Removed the duplicated loading factor"); err != nil {
		t.Fatalf("Failed to resubmit: %v", err)
	}
	approved, err := approvals.Approve(admin, meta.ID, "")
	if err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Errorf("Expected approved, got %s", approved.Status)
	}

	history, err := approvals.GetHistory(analyst, meta.ID)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	// creation, submit, reject, resubmit, approve
	if len(history) != 5 {
		t.Errorf("Expected 5 history entries, got %d", len(history))
	}
}

// testConcurrentSnapshots verifies version numbers stay contiguous under load
func testConcurrentSnapshots(t *testing.T, db *gorm.DB, cfg *config.Config) {
	versioning, _, _ := newEngine(db, cfg)
	actor := testActor(models.RoleAnalyst)
	tableID := seedTable(t, db, "concurrent-"+uuid.NewString()[:8])

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := versioning.CreateVersion(actor, tableID, "Concurrent snapshot"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	var failed int
	for err := range errs {
		// Conflicts are acceptable under contention, silent gaps are not
		if types.KindOf(err) != types.ErrConflict {
			t.Errorf("Unexpected error from concurrent snapshot: %v", err)
		}
		failed++
	}

	versions, err := versioning.ListVersions(actor, tableID, nil)
	if err != nil {
		t.Fatalf("Failed to list versions: %v", err)
	}
	if len(versions) != writers-failed {
		t.Fatalf("Expected %d versions, got %d", writers-failed, len(versions))
	}
	// Newest first, contiguous 1..N
	for i, v := range versions {
		expected := len(versions) - i
		if v.VersionNumber != expected {
			t.Errorf("Expected version %d at position %d, got %d", expected, i, v.VersionNumber)
		}
	}
}

// testConcurrentApprove verifies exactly one writer wins the approve race
func testConcurrentApprove(t *testing.T, db *gorm.DB, cfg *config.Config) {
	versioning, approvals, _ := newEngine(db, cfg)
	analyst := testActor(models.RoleAnalyst)
	tableID := seedTable(t, db, "race-"+uuid.NewString()[:8])

	meta, err := versioning.CreateVersion(analyst, tableID, "Race target")
	if err != nil {
		t.Fatalf("Failed to create version: %v", err)
	}
	if _, err := approvals.Submit(analyst, meta.ID, ""); err != nil {
		t.Fatalf("Failed to submit: %v", err)
	}

	const reviewers = 4
	var wg sync.WaitGroup
	outcomes := make(chan error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := approvals.Approve(testActor(models.RoleAdmin), meta.ID, "")
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var wins, refusals int
	for err := range outcomes {
		switch {
		case err == nil:
			wins++
		case types.KindOf(err) == types.ErrInvalidStateTransition:
			refusals++
		default:
			t.Errorf("Unexpected error from approve race: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("Expected exactly 1 winning approval, got %d", wins)
	}
	if refusals != reviewers-1 {
		t.Errorf("Expected %d refused approvals, got %d", reviewers-1, refusals)
	}

	// Exactly one approve entry lands in history
	history, err := approvals.GetHistory(analyst, meta.ID)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	var approveEntries int
	for _, entry := range history {
		if entry.ToStatus == models.StatusApproved {
			approveEntries++
		}
	}
	if approveEntries != 1 {
		t.Errorf("Expected 1 approve history entry, got %d", approveEntries)
	}
}
