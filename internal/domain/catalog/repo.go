package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// FetchProducts отдаёт каталог опций стенда для мероприятия в порядке position.
// Каталог только читается визардом.
func (r *Repo) FetchProducts(ctx context.Context, eventID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, description
		FROM stand_products
		WHERE event_id = $1
		ORDER BY position, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	idx := map[string]int{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description); err != nil {
			return nil, err
		}
		idx[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	steps, err := r.pool.Query(ctx, `
		SELECT product_id, id, label, kind, required, max_selections, placeholder, description
		FROM stand_steps
		WHERE event_id = $1
		ORDER BY product_id, position, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer steps.Close()

	// product_id -> step_id -> индекс шага
	stepIdx := map[string]map[string]int{}
	for steps.Next() {
		var productID string
		var s Step
		var kind string
		if err := steps.Scan(&productID, &s.ID, &s.Label, &kind, &s.Required, &s.MaxSelections, &s.Placeholder, &s.Description); err != nil {
			return nil, err
		}
		s.Kind = StepKind(kind)
		i, ok := idx[productID]
		if !ok {
			continue
		}
		if stepIdx[productID] == nil {
			stepIdx[productID] = map[string]int{}
		}
		stepIdx[productID][s.ID] = len(out[i].Steps)
		out[i].Steps = append(out[i].Steps, s)
	}
	if err := steps.Err(); err != nil {
		return nil, err
	}

	opts, err := r.pool.Query(ctx, `
		SELECT product_id, step_id, id, label, price_cents, image_url, description
		FROM stand_options
		WHERE event_id = $1
		ORDER BY product_id, step_id, position, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer opts.Close()

	for opts.Next() {
		var productID, stepID string
		var o Option
		var price int64
		if err := opts.Scan(&productID, &stepID, &o.ID, &o.Label, &price, &o.ImageURL, &o.Description); err != nil {
			return nil, err
		}
		o.Price = Money(price)
		i, ok := idx[productID]
		if !ok {
			continue
		}
		j, ok := stepIdx[productID][stepID]
		if !ok {
			continue
		}
		out[i].Steps[j].Options = append(out[i].Steps[j].Options, o)
	}
	return out, opts.Err()
}

// ReplaceCatalog целиком заменяет каталог мероприятия (импорт из Excel).
func (r *Repo) ReplaceCatalog(ctx context.Context, eventID int64, products []Product) error {
	if err := Validate(products); err != nil {
		return err
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{
		`DELETE FROM stand_options WHERE event_id = $1`,
		`DELETE FROM stand_steps WHERE event_id = $1`,
		`DELETE FROM stand_products WHERE event_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, eventID); err != nil {
			return err
		}
	}

	for pi, p := range products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stand_products (event_id, id, position, title, description)
			VALUES ($1,$2,$3,$4,$5)
		`, eventID, p.ID, pi, p.Title, p.Description); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ID, err)
		}
		for si, s := range p.Steps {
			if _, err := tx.Exec(ctx, `
				INSERT INTO stand_steps (event_id, product_id, id, position, label, kind, required, max_selections, placeholder, description)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			`, eventID, p.ID, s.ID, si, s.Label, string(s.Kind), s.Required, s.MaxSelections, s.Placeholder, s.Description); err != nil {
				return fmt.Errorf("insert step %s/%s: %w", p.ID, s.ID, err)
			}
			for oi, o := range s.Options {
				if _, err := tx.Exec(ctx, `
					INSERT INTO stand_options (event_id, product_id, step_id, id, position, label, price_cents, image_url, description)
					VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				`, eventID, p.ID, s.ID, o.ID, oi, o.Label, int64(o.Price), o.ImageURL, o.Description); err != nil {
					return fmt.Errorf("insert option %s/%s/%s: %w", p.ID, s.ID, o.ID, err)
				}
			}
		}
	}

	return tx.Commit(ctx)
}
