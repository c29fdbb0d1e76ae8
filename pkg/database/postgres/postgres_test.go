package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(c *Config) {}},
		{name: "empty host", mutate: func(c *Config) { c.Primary.Host = "" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Primary.Port = 70000 }, wantErr: true},
		{name: "bad replica", mutate: func(c *Config) { c.Replicas = []DBConfig{{Host: "r1"}} }, wantErr: true},
		{name: "min over max", mutate: func(c *Config) { c.Pool.MinConns = 30 }, wantErr: true},
		{name: "unknown balance", mutate: func(c *Config) { c.ReplicaLoadBalance = "weighted" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDBConfig_ConnString(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "gacha", Password: "p'w d", DBName: "gacha", SSLMode: "disable"}

	got := c.ConnString(5 * time.Second)
	for _, want := range []string{"host=db", "port=5432", `password='p\'w d'`, "sslmode=disable", "connect_timeout=5"} {
		if !strings.Contains(got, want) {
			t.Errorf("ConnString() = %q, missing %q", got, want)
		}
	}

	c.Password = "secret"
	if u := c.URL(); u != "postgres://gacha:secret@db:5432/gacha?sslmode=disable" {
		t.Errorf("URL() = %q", u)
	}
}

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("insert draw: %w", &pgconn.PgError{Code: code})
	}

	tests := []struct {
		err           error
		retryable     bool
		serialization bool
		unique        bool
	}{
		{err: wrap(CodeSerializationFailure), retryable: true, serialization: true},
		{err: wrap(CodeDeadlockDetected), retryable: true, serialization: true},
		{err: wrap(CodeLockNotAvailable), retryable: true},
		{err: wrap(CodeUniqueViolation), retryable: true, unique: true},
		{err: wrap("42P01")},
		{err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.retryable {
			t.Errorf("IsRetryable(%v) = %v", tt.err, got)
		}
		if got := IsSerializationFailure(tt.err); got != tt.serialization {
			t.Errorf("IsSerializationFailure(%v) = %v", tt.err, got)
		}
		if got := IsUniqueViolation(tt.err); got != tt.unique {
			t.Errorf("IsUniqueViolation(%v) = %v", tt.err, got)
		}
	}
}

type kvRow struct {
	K string `db:"k"`
	V int64  `db:"v"`
}

// 需要真实数据库：GACHA_TEST_POSTGRES_HOST 等环境变量未设置时跳过
func newTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	host := os.Getenv("GACHA_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("GACHA_TEST_POSTGRES_HOST not set")
	}
	cfg := &Config{Primary: DBConfig{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("GACHA_TEST_POSTGRES_USER"),
		Password: os.Getenv("GACHA_TEST_POSTGRES_PASSWORD"),
		DBName:   os.Getenv("GACHA_TEST_POSTGRES_DB"),
	}}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_WithTx(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	if _, err := c.Primary().Exec(ctx, `CREATE TABLE IF NOT EXISTS pg_client_test_kv (k TEXT PRIMARY KEY, v BIGINT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _, _ = c.Primary().Exec(context.Background(), `DROP TABLE IF EXISTS pg_client_test_kv`) })

	boom := errors.New("boom")
	err := c.WithTx(ctx, TxOptions{}, func(tx Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO pg_client_test_kv (k, v) VALUES ('a', 1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := QueryOne[kvRow](ctx, c.Primary(), `SELECT k, v FROM pg_client_test_kv WHERE k = 'a'`); !errors.Is(err, ErrNoRows) {
		t.Errorf("expected rollback, got %v", err)
	}

	err = c.WithTx(ctx, TxOptions{IsoLevel: TxIsolationLevelSerializable}, func(tx Tx) error {
		_, err := ExecBuilder(ctx, tx, QueryBuilder.Insert("pg_client_test_kv").Columns("k", "v").Values("b", 2))
		return err
	})
	if err != nil {
		t.Fatalf("WithTx() error = %v", err)
	}

	rows, err := QueryAllBuilder[kvRow](ctx, c.Replica(), QueryBuilder.Select("k", "v").From("pg_client_test_kv"))
	if err != nil {
		t.Fatalf("QueryAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0].V != 2 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}
