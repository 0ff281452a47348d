package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

type Config struct {
	URL             string        `envconfig:"URL" split_words:"true" default:"sqlite://dikas.db"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" split_words:"true" default:"5m"`
}

// Open picks the dialect from the URL scheme: postgres:// and postgresql://
// use pgdriver, anything else is treated as a sqlite path.
func Open(cfg Config) (*bun.DB, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("database url is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
		if cfg.MaxOpenConns > 0 {
			sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		return bun.NewDB(sqldb, pgdialect.New()), nil
	}

	dsn := strings.TrimPrefix(strings.TrimPrefix(url, "sqlite://"), "sqlite:")
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer; an in-memory database also lives
	// only as long as its one connection.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the tables and indexes when missing.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*userModel)(nil),
		(*conversationModel)(nil),
		(*messageModel)(nil),
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table %T: %w", m, err)
		}
	}

	if _, err := db.NewCreateIndex().
		Model((*messageModel)(nil)).
		Index("messages_conversation_sequence_idx").
		Unique().
		Column("conversation_id", "sequence").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create messages index: %w", err)
	}
	return nil
}
