package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NoteCursor is the keyset position for paging notes by (created_at, id).
type NoteCursor struct {
	CreatedAt time.Time
	ID        string
}

type Repository interface {
	// Create inserts feedback; an existing row for the same booking and
	// investor yields ErrDuplicateFeedback.
	Create(ctx context.Context, f *Feedback) error
	// InsertIfAbsent inserts feedback unless one already exists for the
	// booking and investor, and reports whether a row was written.
	InsertIfAbsent(ctx context.Context, f *Feedback) (bool, error)
	ListByBookingIDs(ctx context.Context, bookingIDs []string) (map[string][]*Feedback, error)

	CreateNote(ctx context.Context, n *Note) error
	ListNotesByBookingIDs(ctx context.Context, bookingIDs []string) (map[string][]*Note, error)
	// ListLegacyNotes returns notes carrying the legacy feedback marker after
	// the cursor, oldest first.
	ListLegacyNotes(ctx context.Context, after NoteCursor, limit int) ([]*Note, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, f *Feedback) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.feedback").
		Columns("booking_id", "investor_id", "analyst_id", "rating", "comment").
		Values(f.BookingID, f.InvestorID, f.AnalystID, f.Rating, f.Comment).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create feedback query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&f.ID, &f.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateFeedback
		}
		return fmt.Errorf("create feedback failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) InsertIfAbsent(ctx context.Context, f *Feedback) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.feedback").
		Columns("booking_id", "investor_id", "analyst_id", "rating", "comment", "created_at").
		Values(f.BookingID, f.InvestorID, f.AnalystID, f.Rating, f.Comment, f.CreatedAt).
		Suffix("ON CONFLICT ON CONSTRAINT feedback_booking_investor_uniq DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert feedback query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&f.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert feedback failed: %w", err)
	}
	return true, nil
}

func (r *pgxRepository) ListByBookingIDs(ctx context.Context, bookingIDs []string) (map[string][]*Feedback, error) {
	out := make(map[string][]*Feedback)
	if len(bookingIDs) == 0 {
		return out, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "booking_id", "investor_id", "analyst_id", "rating", "comment", "created_at").
		From("public.feedback").
		Where(squirrel.Eq{"booking_id": bookingIDs}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list feedback query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.BookingID, &f.InvestorID, &f.AnalystID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback failed: %w", err)
		}
		out[f.BookingID] = append(out[f.BookingID], &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback failed: %w", err)
	}
	return out, nil
}

func (r *pgxRepository) CreateNote(ctx context.Context, n *Note) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.notes").
		Columns("booking_id", "author_id", "author_role", "text").
		Values(n.BookingID, n.AuthorID, n.AuthorRole, n.Text).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create note query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("create note failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListNotesByBookingIDs(ctx context.Context, bookingIDs []string) (map[string][]*Note, error) {
	out := make(map[string][]*Note)
	if len(bookingIDs) == 0 {
		return out, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(noteColumns...).
		From("public.notes").
		Where(squirrel.Eq{"booking_id": bookingIDs}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list notes query failed: %w", err)
	}

	notes, err := r.queryNotes(ctx, query, args)
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		out[n.BookingID] = append(out[n.BookingID], n)
	}
	return out, nil
}

func (r *pgxRepository) ListLegacyNotes(ctx context.Context, after NoteCursor, limit int) ([]*Note, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(noteColumns...).
		From("public.notes").
		Where(squirrel.Like{`ltrim(text, E' \t\r\n')`: legacyMarker + "%"})
	if !after.CreatedAt.IsZero() {
		q = q.Where(squirrel.Expr("(created_at, id) > (?, ?)", after.CreatedAt, after.ID))
	}

	query, args, err := q.OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list legacy notes query failed: %w", err)
	}

	return r.queryNotes(ctx, query, args)
}

var noteColumns = []string{"id", "booking_id", "author_id", "author_role", "text", "created_at"}

func (r *pgxRepository) queryNotes(ctx context.Context, query string, args []any) ([]*Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notes failed: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.BookingID, &n.AuthorID, &n.AuthorRole, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note failed: %w", err)
		}
		notes = append(notes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes failed: %w", err)
	}
	return notes, nil
}
