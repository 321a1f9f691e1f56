package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

// Store — где живут платежи. Repo — postgres, в тестах подменяется.
type Store interface {
	Create(ctx context.Context, p Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	SetStatus(ctx context.Context, id string, status Status, reason string) error
}

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, p Payment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payments (id, reference_id, amount_cents, description, redirect_url, status)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, p.ID, p.ReferenceID, int64(p.Amount), p.Description, p.RedirectURL, string(p.Status))
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, reference_id, amount_cents, description, redirect_url, status, reason, created_at, updated_at
		FROM payments WHERE id = $1
	`, id)

	var p Payment
	var amount int64
	var status string
	if err := row.Scan(&p.ID, &p.ReferenceID, &amount, &p.Description, &p.RedirectURL, &status, &p.Reason, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Amount = catalog.Money(amount)
	p.Status = Status(status)
	return &p, nil
}

// SetStatus меняет статус только у pending-платежа: повторная оплата
// уже закрытого платежа ничего не делает.
func (r *Repo) SetStatus(ctx context.Context, id string, status Status, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payments SET status = $2, reason = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, string(status), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}
