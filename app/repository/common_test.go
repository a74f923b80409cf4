package repository

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestRebindPostgres(t *testing.T) {
	got := rebindPostgres("UPDATE organizers SET identity_status = ? WHERE id = ? AND version = ?")
	want := "UPDATE organizers SET identity_status = $1 WHERE id = $2 AND version = $3"
	if got != want {
		t.Fatalf("unexpected query:\n got %s\nwant %s", got, want)
	}
}

func TestWithDialectKeepsMySQLUnwrapped(t *testing.T) {
	if _, ok := WithDialect(nil, DialectMySQL).(*postgresDB); ok {
		t.Fatal("mysql dialect must not be wrapped")
	}
	if _, ok := WithDialect(nil, DialectPostgres).(*postgresDB); !ok {
		t.Fatal("postgres dialect must be wrapped")
	}
}

func TestSQLDriverName(t *testing.T) {
	if SQLDriverName(DialectPostgres) != "pgx" {
		t.Fatal("expected pgx driver for postgres")
	}
	if SQLDriverName(DialectMySQL) != "mysql" {
		t.Fatal("expected mysql driver")
	}
}

func TestIsDuplicateEntryError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql duplicate", fmt.Errorf("insert: %w", &mysqlDriver.MySQLError{Number: 1062}), true},
		{"mysql other", &mysqlDriver.MySQLError{Number: 1213}, false},
		{"postgres unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"postgres other", &pgconn.PgError{Code: "40001"}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := isDuplicateEntryError(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
