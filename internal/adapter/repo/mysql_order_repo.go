package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

const orderColumns = `id,payment_id,staging_token,status,payment_method,total,items_json,delivery_json,payment_raw,customer_name,customer_phone,created_at`

func (r *MySQLOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	delivery, err := json.Marshal(o.Delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO orders (`+orderColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, o.ID, nullable(o.PaymentID), nullable(o.StagingToken), o.Status, o.PaymentMethod,
		o.Total.StringFixed(2), items, delivery, nullableBytes(o.PaymentRaw),
		o.CustomerName, o.CustomerPhone, o.CreatedAt)
	return mapDuplicate(err)
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id)
}

func (r *MySQLOrderRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_id=?`, paymentID)
}

func (r *MySQLOrderRepo) GetByStagingToken(ctx context.Context, token string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE staging_token=?`, token)
}

func (r *MySQLOrderRepo) SearchByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	return r.getMany(ctx, `SELECT `+orderColumns+` FROM orders WHERE customer_phone=? ORDER BY created_at DESC`, phone)
}

func (r *MySQLOrderRepo) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	return r.getMany(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT ?`, limit)
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE orders
        SET status = ?, updated_at = NOW()
        WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 → nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

func (r *MySQLOrderRepo) getOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	return o, err
}

func (r *MySQLOrderRepo) getMany(ctx context.Context, query string, arg any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                     domain.Order
		paymentID, stagingTok sql.NullString
		total                 string
		items, delivery       []byte
		paymentRaw            []byte
	)
	if err := row.Scan(&o.ID, &paymentID, &stagingTok, &o.Status, &o.PaymentMethod,
		&total, &items, &delivery, &paymentRaw, &o.CustomerName, &o.CustomerPhone, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.PaymentID = paymentID.String
	o.StagingToken = stagingTok.String
	o.PaymentRaw = paymentRaw
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total %q: %w", total, err)
	}
	o.Total = t
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(delivery, &o.Delivery); err != nil {
		return nil, fmt.Errorf("unmarshal delivery: %w", err)
	}
	return &o, nil
}

// nullable keeps empty strings out of UNIQUE columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// mapDuplicate translates MySQL 1062 on the orders unique keys into the
// usecase sentinels so the guard can absorb the conflict.
func mapDuplicate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		if strings.Contains(me.Message, "uniq_orders_staging") {
			return fmt.Errorf("%w: %v", usecase.ErrDuplicateStaging, err)
		}
		return fmt.Errorf("%w: %v", usecase.ErrDuplicatePayment, err)
	}
	return err
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
