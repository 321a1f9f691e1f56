package configurations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

var ErrOrderNotFound = errors.New("configurations: order not found")

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Submit сохраняет конфигурацию продукта. Повтор по той же (session_id, product_id)
// обновляет запись и возвращает тот же заказ.
func (r *Repo) Submit(ctx context.Context, userID, eventID int64, cfg wizard.Configuration) (wizard.Receipt, error) {
	selections, err := json.Marshal(cfg.Selections)
	if err != nil {
		return wizard.Receipt{}, err
	}
	metadata, err := json.Marshal(cfg.Metadata)
	if err != nil {
		return wizard.Receipt{}, err
	}
	breakdown, err := json.Marshal(cfg.Breakdown)
	if err != nil {
		return wizard.Receipt{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wizard.Receipt{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID int64
	var number string
	if err := tx.QueryRow(ctx, `
		INSERT INTO stand_orders (session_id, user_id, event_id, payment_status)
		VALUES ($1,$2,$3,'pending')
		ON CONFLICT (session_id) DO UPDATE SET
			payment_status = 'pending',
			updated_at     = now()
		RETURNING id, number
	`, cfg.SessionID, userID, eventID).Scan(&orderID, &number); err != nil {
		return wizard.Receipt{}, fmt.Errorf("upsert order: %w", err)
	}

	var cfgID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO stand_configurations
			(session_id, product_id, order_id, user_id, event_id, product_title,
			 selections, metadata, subtotal_cents, breakdown, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (session_id, product_id) DO UPDATE SET
			product_title  = EXCLUDED.product_title,
			selections     = EXCLUDED.selections,
			metadata       = EXCLUDED.metadata,
			subtotal_cents = EXCLUDED.subtotal_cents,
			breakdown      = EXCLUDED.breakdown,
			payment_status = EXCLUDED.payment_status,
			updated_at     = now()
		RETURNING id
	`, cfg.SessionID, cfg.ProductID, orderID, userID, eventID, cfg.ProductTitle,
		selections, metadata, int64(cfg.Subtotal), breakdown, string(cfg.PaymentStatus)).Scan(&cfgID); err != nil {
		return wizard.Receipt{}, fmt.Errorf("upsert configuration %s: %w", cfg.ProductID, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE stand_orders SET total_cents = (
			SELECT COALESCE(SUM(subtotal_cents), 0) FROM stand_configurations WHERE order_id = $1
		) WHERE id = $1
	`, orderID); err != nil {
		return wizard.Receipt{}, fmt.Errorf("update order total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wizard.Receipt{}, err
	}
	return wizard.Receipt{
		ProductID:       cfg.ProductID,
		ConfigurationID: strconv.FormatInt(cfgID, 10),
		OrderID:         number,
	}, nil
}

// LatestForUser — конфигурации последней отправленной сессии экспонента
// по мероприятию (для продолжения редактирования). Пусто, если ничего не было.
func (r *Repo) LatestForUser(ctx context.Context, userID, eventID int64) ([]wizard.Configuration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.session_id, c.product_id, c.product_title, c.selections, c.metadata,
		       c.subtotal_cents, c.breakdown, c.payment_status
		FROM stand_configurations c
		WHERE c.session_id = (
			SELECT o.session_id FROM stand_orders o
			WHERE o.user_id = $1 AND o.event_id = $2
			ORDER BY o.created_at DESC, o.id DESC
			LIMIT 1
		)
		ORDER BY c.id
	`, userID, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []wizard.Configuration
	for rows.Next() {
		var c wizard.Configuration
		var selections, metadata, breakdown []byte
		var subtotal int64
		var status string
		if err := rows.Scan(&c.SessionID, &c.ProductID, &c.ProductTitle, &selections, &metadata, &subtotal, &breakdown, &status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(selections, &c.Selections); err != nil {
			return nil, fmt.Errorf("decode selections %s: %w", c.ProductID, err)
		}
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s: %w", c.ProductID, err)
		}
		if err := json.Unmarshal(breakdown, &c.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown %s: %w", c.ProductID, err)
		}
		c.Subtotal = catalog.Money(subtotal)
		c.PaymentStatus = wizard.PaymentStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// AttachPayment запоминает платёж заказа сессии.
func (r *Repo) AttachPayment(ctx context.Context, sessionID, paymentID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE stand_orders SET payment_id = $2, updated_at = now() WHERE session_id = $1
	`, sessionID, paymentID)
	return err
}

// SetSessionPaymentStatus проставляет статус оплаты заказу сессии и всем его конфигурациям.
func (r *Repo) SetSessionPaymentStatus(ctx context.Context, sessionID string, status wizard.PaymentStatus) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE stand_orders SET payment_status = $2, updated_at = now() WHERE session_id = $1
	`, sessionID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	if _, err := tx.Exec(ctx, `
		UPDATE stand_configurations SET payment_status = $2, updated_at = now() WHERE session_id = $1
	`, sessionID, string(status)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetOrderBySession(ctx context.Context, sessionID string) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, number, session_id, user_id, event_id, total_cents, payment_id, payment_status, created_at, updated_at
		FROM stand_orders WHERE session_id = $1
	`, sessionID)
	var o Order
	var total int64
	var status string
	if err := row.Scan(&o.ID, &o.Number, &o.SessionID, &o.UserID, &o.EventID, &total, &o.PaymentID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Total = catalog.Money(total)
	o.PaymentStatus = wizard.PaymentStatus(status)
	return &o, nil
}

// ListByEvent — все конфигурации мероприятия для выгрузки, новые сверху.
func (r *Repo) ListByEvent(ctx context.Context, eventID int64) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.number, c.session_id, u.company,
		       trim(u.first_name || ' ' || u.last_name || CASE WHEN u.username <> '' THEN ' @' || u.username ELSE '' END),
		       c.product_id, c.product_title, c.metadata, c.subtotal_cents, c.payment_status, c.created_at
		FROM stand_configurations c
		JOIN stand_orders o ON o.id = c.order_id
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.event_id = $1
		ORDER BY o.created_at DESC, o.id DESC, c.id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var company, contact *string
		var metadata []byte
		var subtotal int64
		var status string
		if err := rows.Scan(&row.OrderNumber, &row.SessionID, &company, &contact,
			&row.ProductID, &row.ProductTitle, &metadata, &subtotal, &status, &row.CreatedAt); err != nil {
			return nil, err
		}
		if company != nil {
			row.Company = *company
		}
		if contact != nil {
			row.Contact = *contact
		}
		if err := json.Unmarshal(metadata, &row.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata %s/%s: %w", row.SessionID, row.ProductID, err)
		}
		row.Subtotal = catalog.Money(subtotal)
		row.PaymentStatus = wizard.PaymentStatus(status)
		out = append(out, row)
	}
	return out, rows.Err()
}
