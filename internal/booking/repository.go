package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VideoLinks are the persisted results of video provisioning.
type VideoLinks struct {
	JoinURL           string
	HostURL           string
	ProviderMeetingID string
}

type Repository interface {
	// Create inserts the booking. A live booking on the same analyst slot
	// yields ErrSlotAlreadyBooked.
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ListActiveInRange returns the analyst's non-cancelled bookings intersecting [from, to).
	ListActiveInRange(ctx context.Context, analystID string, from, to time.Time) ([]*Booking, error)
	// UpdateStatus moves a booking from one stored status to another.
	// It returns ErrInvalidTransition if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Booking, error)
	// SetVideoLinks stores links only while the booking is still pending and
	// reports whether it did. False means another call already provisioned it.
	SetVideoLinks(ctx context.Context, id string, links VideoLinks) (bool, error)
	// ListPendingVideo returns live bookings still waiting for links that were
	// created before createdBefore, oldest first.
	ListPendingVideo(ctx context.Context, createdBefore time.Time, limit int) ([]*Booking, error)
	// AttachRecordingURL sets the recording url if none is set yet and
	// reports whether the row was updated.
	AttachRecordingURL(ctx context.Context, id, url string) (bool, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"b.id", "b.investor_id", "b.analyst_id", "b.start_utc", "b.end_utc", "b.status", "b.price_quote",
	"b.video_join_url", "b.video_host_url", "b.provider_meeting_id", "b.video_pending", "b.recording_url",
	"b.created_at", "b.updated_at",
}

func scanTargets(b *Booking) []any {
	return []any{
		&b.ID, &b.InvestorID, &b.AnalystID, &b.StartUTC, &b.EndUTC, &b.Status, &b.PriceQuote,
		&b.VideoJoinURL, &b.VideoHostURL, &b.ProviderMeetingID, &b.VideoPending, &b.RecordingURL,
		&b.CreatedAt, &b.UpdatedAt,
	}
}

func normalize(b *Booking) {
	b.StartUTC = b.StartUTC.UTC()
	b.EndUTC = b.EndUTC.UTC()
}

// StatusCondition translates an effective status into a SQL predicate on
// the bookings table aliased as b. It must agree with EffectiveStatus.
func StatusCondition(status Status, now time.Time) squirrel.Sqlizer {
	switch status {
	case StatusCompleted:
		return squirrel.And{squirrel.Eq{"b.status": StatusConfirmed}, squirrel.Lt{"b.end_utc": now}}
	case StatusConfirmed:
		return squirrel.And{squirrel.Eq{"b.status": StatusConfirmed}, squirrel.GtOrEq{"b.end_utc": now}}
	default:
		return squirrel.Eq{"b.status": status}
	}
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns("investor_id", "analyst_id", "start_utc", "end_utc", "status", "price_quote", "video_pending").
		Values(b.InvestorID, b.AnalystID, b.StartUTC, b.EndUTC, b.Status, b.PriceQuote, b.VideoPending).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotAlreadyBooked
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	normalize(&b)
	return &b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b")

	if filter.InvestorID != "" {
		query = query.Where(squirrel.Eq{"b.investor_id": filter.InvestorID})
	}
	if filter.AnalystID != "" {
		query = query.Where(squirrel.Eq{"b.analyst_id": filter.AnalystID})
	}
	if filter.Status != "" {
		query = query.Where(StatusCondition(filter.Status, filter.Now))
	}
	if len(filter.ExcludeStatus) > 0 {
		query = query.Where(squirrel.NotEq{"b.status": filter.ExcludeStatus})
	}
	// Window filtering (intersection logic)
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"b.end_utc": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"b.start_utc": *filter.To})
	}
	if filter.EndAfter != nil {
		query = query.Where(squirrel.Gt{"b.end_utc": *filter.EndAfter})
	}

	orderDir := "ASC"
	if filter.SortDescending {
		orderDir = "DESC"
	}
	query = query.OrderBy("b.start_utc "+orderDir, "b.id "+orderDir)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		var b Booking
		if err := rows.Scan(append(scanTargets(&b), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		normalize(&b)
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) ListActiveInRange(ctx context.Context, analystID string, from, to time.Time) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.analyst_id": analystID}).
		Where(squirrel.NotEq{"b.status": StatusCancelled}).
		Where(squirrel.Lt{"b.start_utc": to}).
		Where(squirrel.Gt{"b.end_utc": from}).
		OrderBy("b.start_utc ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list active bookings query failed: %w", err)
	}

	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings b").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"b.id": id, "b.status": from}).
		Suffix("RETURNING " + strings.Join(bookingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update booking status query failed: %w", err)
	}

	var b Booking
	if err := r.pool.QueryRow(ctx, query, args...).Scan(scanTargets(&b)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrSlotAlreadyBooked
		}
		return nil, fmt.Errorf("update booking status failed: %w", err)
	}
	normalize(&b)
	return &b, nil
}

func (r *pgxRepository) SetVideoLinks(ctx context.Context, id string, links VideoLinks) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("video_join_url", links.JoinURL).
		Set("video_host_url", links.HostURL).
		Set("provider_meeting_id", nullIfEmpty(links.ProviderMeetingID)).
		Set("video_pending", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "video_pending": true}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build set video links query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("set video links failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) ListPendingVideo(ctx context.Context, createdBefore time.Time, limit int) ([]*Booking, error) {
	if limit < 1 {
		limit = 50
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings b").
		Where(squirrel.Eq{"b.video_pending": true}).
		Where(squirrel.NotEq{"b.status": StatusCancelled}).
		Where(squirrel.Lt{"b.created_at": createdBefore.UTC()}).
		OrderBy("b.created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending video query failed: %w", err)
	}

	return r.queryBookings(ctx, query, args)
}

func (r *pgxRepository) AttachRecordingURL(ctx context.Context, id, url string) (bool, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("recording_url", url).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "recording_url": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build attach recording query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("attach recording failed: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (r *pgxRepository) queryBookings(ctx context.Context, query string, args []any) ([]*Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(scanTargets(&b)...); err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		normalize(&b)
		bookings = append(bookings, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings failed: %w", err)
	}
	return bookings, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
