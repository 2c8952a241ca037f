package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/rhuss/mmbridge/pkg/quota"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return newWithDB(mock), mock
}

var testKey = quota.Key{
	TenantID:     "t1",
	ProviderName: "minimax",
	ProviderType: quota.ProviderTypeSystem,
	QuotaType:    quota.QuotaTypeTrial,
}

func TestDeductQuota_Applied(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE providers").
		WithArgs(int64(5), "t1", "minimax", "system", "trial").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	applied, err := store.DeductQuota(context.Background(), testKey, 5)
	if err != nil {
		t.Fatalf("DeductQuota failed: %v", err)
	}
	if !applied {
		t.Error("expected applied=true when a row was updated")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeductQuota_GuardMatchesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("AND quota_limit > quota_used").
		WithArgs(int64(1), "t1", "minimax", "system", "trial").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectCommit()

	applied, err := store.DeductQuota(context.Background(), testKey, 1)
	if err != nil {
		t.Fatalf("zero rows should not be an error: %v", err)
	}
	if applied {
		t.Error("expected applied=false when no row matched the guard")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeductQuota_ExecErrorRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	dbErr := errors.New("deadlock detected")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE providers").
		WithArgs(int64(2), "t1", "minimax", "system", "trial").
		WillReturnError(dbErr)
	mock.ExpectRollback()

	_, err := store.DeductQuota(context.Background(), testKey, 2)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeductQuota_BeginError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	if _, err := store.DeductQuota(context.Background(), testKey, 1); err == nil {
		t.Fatal("expected error when the transaction cannot begin")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetQuota(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT quota_limit, quota_used").
		WithArgs("t1", "minimax", "system", "trial").
		WillReturnRows(pgxmock.NewRows([]string{"quota_limit", "quota_used"}).AddRow(int64(100), int64(40)))

	rec, err := store.GetQuota(context.Background(), testKey)
	if err != nil {
		t.Fatalf("GetQuota failed: %v", err)
	}
	if rec.Limit != 100 || rec.Used != 40 {
		t.Errorf("got limit=%d used=%d, want 100/40", rec.Limit, rec.Used)
	}
	if rec.Key != testKey {
		t.Errorf("got key %+v, want %+v", rec.Key, testKey)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetQuota_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT quota_limit, quota_used").
		WithArgs("t1", "minimax", "system", "trial").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetQuota(context.Background(), testKey)
	if !errors.Is(err, quota.ErrNotFound) {
		t.Errorf("expected quota.ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsertQuota(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO providers").
		WithArgs("t1", "minimax", "system", "trial", int64(1000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.UpsertQuota(context.Background(), testKey, 1000); err != nil {
		t.Fatalf("UpsertQuota failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrate_AppliesPending(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	mock.ExpectQuery("SELECT EXISTS").WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS providers").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectQuery("SELECT EXISTS").WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPendingMigrationsOrdered(t *testing.T) {
	migrations, err := pendingMigrations()
	if err != nil {
		t.Fatalf("pendingMigrations failed: %v", err)
	}
	if len(migrations) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(migrations))
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations out of order: %v", migrations)
		}
	}
	if migrations[0].name != "001_create_providers.sql" {
		t.Errorf("first migration = %q", migrations[0].name)
	}
}

func TestHealthCheck(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectPing()
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthCheck_PingError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	if err := store.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected ping failure to be reported")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{DSN: "postgres://localhost/db"}, false},
		{"missing dsn", Config{}, true},
		{"negative max", Config{DSN: "postgres://localhost/db", MaxConns: -1}, true},
		{"min above max", Config{DSN: "postgres://localhost/db", MaxConns: 2, MinConns: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{DSN: "postgres://localhost/db", MaxConns: 4}
	cfg.defaults()

	if cfg.MaxConns != 4 {
		t.Errorf("MaxConns = %d, want explicit 4 kept", cfg.MaxConns)
	}
	if cfg.MinConns != 1 || cfg.MaxConnLifetime != 5*time.Minute || cfg.HealthCheckPeriod != time.Minute {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}
