package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/botgrid/gateway/pkg/models"
)

// PostgresRegistry is the production Registry backed by a pgx connection
// pool.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry connects to the database and verifies the
// connection.
func NewPostgresRegistry(ctx context.Context, url string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRegistry{pool: pool}, nil
}

// Migrate applies pending migrations from dir against url. Safe to call
// on every startup; an already current schema is not an error.
func Migrate(url, dir string) error {
	m, err := migrate.New("file://"+dir, url)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info().Str("dir", dir).Msg("database migrations applied")
	return nil
}

func (r *PostgresRegistry) Resolve(ctx context.Context, name string) (*models.Bot, error) {
	var bot models.Bot
	err := r.pool.QueryRow(ctx,
		`SELECT name, host, port, type FROM bots WHERE name = $1 LIMIT 1`, name,
	).Scan(&bot.Name, &bot.Host, &bot.Port, &bot.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("query bot %q: %w", name, err)
	}
	return &bot, nil
}

func (r *PostgresRegistry) List(ctx context.Context) ([]models.Bot, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, host, port, type FROM bots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list bots: %w", err)
	}
	defer rows.Close()

	var bots []models.Bot
	for rows.Next() {
		var bot models.Bot
		if err := rows.Scan(&bot.Name, &bot.Host, &bot.Port, &bot.Type); err != nil {
			return nil, fmt.Errorf("scan bot row: %w", err)
		}
		bots = append(bots, bot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot rows: %w", err)
	}
	return bots, nil
}

func (r *PostgresRegistry) Register(ctx context.Context, bot *models.Bot) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bots (name, host, port, type) VALUES ($1, $2, $3, $4)`,
		bot.Name, bot.Host, bot.Port, bot.Type)
	if err != nil {
		return fmt.Errorf("insert bot %q: %w", bot.Name, err)
	}
	return nil
}

func (r *PostgresRegistry) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRegistry) Close() error {
	r.pool.Close()
	return nil
}
