package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdatePayment persists the payment fields of o if and only if the
	// stored version still equals o.Version, then bumps the version.
	// Returns ErrVersionConflict when another writer got there first.
	UpdatePayment(ctx context.Context, o *Order) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO orders (id, user_id, payment_method,
      ship_address, ship_city, ship_postal_code, ship_country,
      items_price, shipping_price, tax_price, total_price,
      is_paid, version, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,false,0,$12)
  `, o.ID, o.UserID, o.PaymentMethod,
		o.ShippingAddress.Address, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.ItemsPrice.String(), o.ShippingPrice.String(),
		o.TaxPrice.String(), o.TotalPrice.String(), o.CreatedAt); err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
      INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image)
      VALUES ($1,$2,$3,$4,$5,$6)
    `, o.ID, it.ProductID, it.Name, it.UnitPrice.String(), it.Quantity, it.Image); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := r.scanOrder(r.db.QueryRow(ctx, `
    SELECT id, user_id, payment_method,
      ship_address, ship_city, ship_postal_code, ship_country,
      items_price::text, shipping_price::text, tax_price::text, total_price::text,
      is_paid, paid_at, pay_tx_id, pay_status, pay_update_time, pay_email,
      version, created_at
    FROM orders WHERE id=$1
  `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
    SELECT id, user_id, payment_method,
      ship_address, ship_city, ship_postal_code, ship_country,
      items_price::text, shipping_price::text, tax_price::text, total_price::text,
      is_paid, paid_at, pay_tx_id, pay_status, pay_update_time, pay_email,
      version, created_at
    FROM orders WHERE user_id=$1
    ORDER BY created_at DESC, id DESC
  `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items, err := r.loadItems(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdatePayment(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var res *PaymentResult
	if o.PaymentResult != nil {
		res = o.PaymentResult
	} else {
		res = &PaymentResult{}
	}
	tag, err := r.db.Exec(ctx, `
    UPDATE orders
    SET is_paid = $2, paid_at = $3,
        pay_tx_id = $4, pay_status = $5, pay_update_time = $6, pay_email = $7,
        version = version + 1
    WHERE id = $1 AND version = $8
  `, o.ID, o.IsPaid, o.PaidAt, res.TransactionID, res.Status, res.UpdateTime, res.PayerEmail, o.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer bumped the version.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	o.Version++
	return nil
}

func (r *PGRepo) loadItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
    SELECT product_id, name, unit_price::text, quantity, image
    FROM order_items WHERE order_id=$1
  `, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var price string
		if err := rows.Scan(&it.ProductID, &it.Name, &price, &it.Quantity, &it.Image); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("bad unit_price for order %s: %w", orderID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepo) scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                           Order
		itemsP, shipP, taxP, totalP string
		paidAt                      *time.Time
		txID, status, upd, email    *string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.PaymentMethod,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&itemsP, &shipP, &taxP, &totalP,
		&o.IsPaid, &paidAt, &txID, &status, &upd, &email,
		&o.Version, &o.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if o.ItemsPrice, err = decimal.NewFromString(itemsP); err != nil {
		return nil, err
	}
	if o.ShippingPrice, err = decimal.NewFromString(shipP); err != nil {
		return nil, err
	}
	if o.TaxPrice, err = decimal.NewFromString(taxP); err != nil {
		return nil, err
	}
	if o.TotalPrice, err = decimal.NewFromString(totalP); err != nil {
		return nil, err
	}
	o.PaidAt = paidAt
	if o.IsPaid && txID != nil {
		o.PaymentResult = &PaymentResult{
			TransactionID: deref(txID),
			Status:        deref(status),
			UpdateTime:    deref(upd),
			PayerEmail:    deref(email),
		}
	}
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
