package infra

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/watchparty/internal/models"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresMediaRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresMediaRepo serves both media and notes from one pool.
func NewPostgresMediaRepo(pool *pgxpool.Pool) *PostgresMediaRepo {
	return &PostgresMediaRepo{pool: pool}
}

var (
	_ ports.MediaRepository = (*PostgresMediaRepo)(nil)
	_ ports.NoteRepository  = (*PostgresMediaRepo)(nil)
)

func (r *PostgresMediaRepo) InsertMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	query := `
		INSERT INTO media (title, url, uploaded_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	row := r.pool.QueryRow(ctx, query, media.Title, media.URL, media.UploadedBy)
	if err := row.Scan(&media.ID, &media.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	return media, nil
}

func (r *PostgresMediaRepo) ListMedia(ctx context.Context) ([]models.Media, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, url, uploaded_by, created_at
		 FROM media
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	out := make([]models.Media, 0)
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.Title, &m.URL, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	return out, nil
}

func (r *PostgresMediaRepo) InsertNote(ctx context.Context, note *models.Note) (*models.Note, error) {
	query := `
		INSERT INTO notes (content, author)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	row := r.pool.QueryRow(ctx, query, note.Content, note.Author)
	if err := row.Scan(&note.ID, &note.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert note: %w", err)
	}
	return note, nil
}

func (r *PostgresMediaRepo) ListNotes(ctx context.Context) ([]models.Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, content, author, created_at
		 FROM notes
		 ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.Content, &n.Author, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}
