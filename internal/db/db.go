package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iot-ingest-backend/internal/apperr"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var (
	ErrConnectFailed          = errors.New("connect failed")
	ErrMigrationFailed        = errors.New("migration failed")
	ErrInsertFailed           = errors.New("insert operation failed")
	ErrUpdateFailed           = errors.New("update operation failed")
	ErrDeleteFailed           = errors.New("delete operation failed")
	ErrTransactionStartFailed = errors.New("transaction start failed")
	ErrTransactionFailed      = errors.New("transaction commit failed")
	ErrSelectFailed           = errors.New("select operation failed")
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Config struct {
	ConnString     string
	MigrationsPath string
	MaxConns       int32
}

type DB struct {
	connString     string
	migrationsPath string
	pool           *pgxpool.Pool
}

func (db *DB) Migrate(ctx context.Context) error {
	slog.InfoContext(ctx, "Running database migrations...", "path", db.migrationsPath)
	m, err := migrate.New(
		"file://"+db.migrationsPath,
		db.connString,
	)
	if err != nil {
		return fmt.Errorf("DB:Migrate:%w:%w", ErrMigrationFailed, err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("DB:Migrate:%w:%w", ErrMigrationFailed, err)
	}
	return nil
}

func Init(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("DB:Init:%w:%w", ErrConnectFailed, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.ConnectConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("DB:Init:%w:%w", ErrConnectFailed, err)
	}

	db := &DB{
		pool:           pool,
		connString:     cfg.ConnString,
		migrationsPath: cfg.MigrationsPath,
	}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() {
	db.pool.Close()
}

// inTx runs fn in a transaction, committing only when fn returns nil.
func (db *DB) inTx(ctx context.Context, fn string, body func(tx pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w:%w", fn, ErrTransactionStartFailed, apperr.ErrStorage, err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("%s:%w:%w:%w", fn, ErrTransactionFailed, apperr.ErrStorage, cerr)
		}
	}()
	return body(tx)
}

// wrap annotates a driver error with the operation sentinel and the matching
// apperr kind. notFound is the caller-facing message used when no row matched.
func wrap(fn string, op error, notFound string, err error) error {
	return fmt.Errorf("%s:%w:%w", fn, op, classify(notFound, err))
}

func classify(notFound string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%w:%w", apperr.New(apperr.ErrNotFound, notFound), err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w:%w", apperr.New(apperr.ErrConflict, conflictMessage(pgErr.ConstraintName)), err)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w:%w", apperr.New(apperr.ErrNotFound, "referenced record not found"), err)
		}
	}
	return fmt.Errorf("%w:%w", apperr.ErrStorage, err)
}

func conflictMessage(constraint string) string {
	switch constraint {
	case "devices_serial_number_key":
		return "serial number already in use"
	case "users_email_key":
		return "email already registered"
	case "stock_devices_pkey":
		return "stock device already exists"
	case "stock_devices_device_id_key":
		return "stock device id already in use"
	}
	return "record already exists"
}
