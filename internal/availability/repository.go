package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, id string) (*Rule, error)
	// ListByAnalyst returns the analyst's rules ordered by weekday and start.
	ListByAnalyst(ctx context.Context, analystID string, includeDisabled bool) ([]*Rule, error)
	Update(ctx context.Context, r *Rule) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var ruleColumns = []string{
	"id", "analyst_id", "weekday", "start_minute", "end_minute", "slot_minutes",
	"enabled", "auto_confirm", "created_at", "updated_at",
}

func scanRule(row pgx.Row) (*Rule, error) {
	var r Rule
	var weekday int16
	if err := row.Scan(
		&r.ID, &r.AnalystID, &weekday, &r.StartMinute, &r.EndMinute, &r.SlotMinutes,
		&r.Enabled, &r.AutoConfirm, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Weekday = time.Weekday(weekday)
	return &r, nil
}

func (r *pgxRepository) Create(ctx context.Context, rule *Rule) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.availability_rules").
		Columns("analyst_id", "weekday", "start_minute", "end_minute", "slot_minutes", "enabled", "auto_confirm").
		Values(rule.AnalystID, int16(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.SlotMinutes, rule.Enabled, rule.AutoConfirm).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create rule query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return fmt.Errorf("create rule failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Rule, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(ruleColumns...).
		From("public.availability_rules").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get rule query failed: %w", err)
	}

	rule, err := scanRule(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get rule failed: %w", err)
	}
	return rule, nil
}

func (r *pgxRepository) ListByAnalyst(ctx context.Context, analystID string, includeDisabled bool) ([]*Rule, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	qb := psql.Select(ruleColumns...).
		From("public.availability_rules").
		Where(squirrel.Eq{"analyst_id": analystID}).
		OrderBy("weekday ASC", "start_minute ASC", "id ASC")

	if !includeDisabled {
		qb = qb.Where(squirrel.Eq{"enabled": true})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules failed: %w", err)
	}
	defer rows.Close()

	var rules []*Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule failed: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules failed: %w", err)
	}
	return rules, nil
}

func (r *pgxRepository) Update(ctx context.Context, rule *Rule) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.availability_rules").
		Set("weekday", int16(rule.Weekday)).
		Set("start_minute", rule.StartMinute).
		Set("end_minute", rule.EndMinute).
		Set("slot_minutes", rule.SlotMinutes).
		Set("enabled", rule.Enabled).
		Set("auto_confirm", rule.AutoConfirm).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rule.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update rule query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rule.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update rule failed: %w", err)
	}
	return nil
}
