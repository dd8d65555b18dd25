package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/turma-scheduler/pkg/config"
)

const uniqueViolation = pq.ErrorCode("23505")

var keyDetailPattern = regexp.MustCompile(`^Key \((.+)\)=\((.+)\) already exists`)

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// UniqueViolation reports whether err is a Postgres unique violation and returns the constraint name.
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if pqErr.Code != uniqueViolation {
		return "", false
	}
	return pqErr.Constraint, true
}

// ViolatedKey returns the columns and values of the key a unique violation rejected, read from
// a detail such as "Key (room_id, hour_ts)=(room-3, 2026-02-10 10:00:00+00) already exists.".
func ViolatedKey(err error) (map[string]string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil, false
	}
	match := keyDetailPattern.FindStringSubmatch(pqErr.Detail)
	if match == nil {
		return nil, false
	}
	columns := strings.Split(match[1], ", ")
	values := strings.Split(match[2], ", ")
	if len(columns) != len(values) {
		return nil, false
	}
	key := make(map[string]string, len(columns))
	for i, column := range columns {
		key[column] = values[i]
	}
	return key, true
}
