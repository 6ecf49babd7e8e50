package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/shopspring/decimal"
)

// MySQLStagingRepo holds checkout attempts before payment confirmation.
// Insert-only: rows stay behind as an audit trail once an order supersedes them.
type MySQLStagingRepo struct{ db *sql.DB }

func NewMySQLStagingRepo(db *sql.DB) *MySQLStagingRepo { return &MySQLStagingRepo{db: db} }

func (r *MySQLStagingRepo) Create(ctx context.Context, a *domain.StagedAttempt) error {
	items, err := json.Marshal(a.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	delivery, err := json.Marshal(a.Delivery)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO staged_attempts (staging_token,payment_method,total,items_json,delivery_json,customer_name,customer_phone,created_at)
VALUES (?,?,?,?,?,?,?,?)
`, a.StagingToken, a.PaymentMethod, a.Total.StringFixed(2), items, delivery,
		a.CustomerName, a.CustomerPhone, a.CreatedAt)
	return err
}

func (r *MySQLStagingRepo) GetByToken(ctx context.Context, token string) (*domain.StagedAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT staging_token,payment_method,total,items_json,delivery_json,customer_name,customer_phone,created_at
FROM staged_attempts WHERE staging_token=?`, token)

	var (
		a               domain.StagedAttempt
		total           string
		items, delivery []byte
	)
	err := row.Scan(&a.StagingToken, &a.PaymentMethod, &total, &items, &delivery,
		&a.CustomerName, &a.CustomerPhone, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total %q: %w", total, err)
	}
	a.Total = t
	if err := json.Unmarshal(items, &a.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(delivery, &a.Delivery); err != nil {
		return nil, fmt.Errorf("unmarshal delivery: %w", err)
	}
	return &a, nil
}

var _ usecase.StagingRepo = (*MySQLStagingRepo)(nil)
