package repo

import (
	"context"
	"database/sql"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
)

type MySQLOutboxRepo struct{ db *sql.DB }

func NewMySQLOutboxRepo(db *sql.DB) *MySQLOutboxRepo { return &MySQLOutboxRepo{db: db} }

func (r *MySQLOutboxRepo) InsertEvent(ctx context.Context, channel string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outbox (channel,payload,status,created_at)
VALUES (?,?,'PENDING',NOW())
`, channel, payload)
	return err
}

func (r *MySQLOutboxRepo) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,channel,payload FROM outbox
WHERE status='PENDING' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OutboxEvent
	for rows.Next() {
		var ev usecase.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.Channel, &ev.Payload); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *MySQLOutboxRepo) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE outbox SET status='PUBLISHED', published_at=NOW() WHERE id=?`, id)
	return err
}

var _ usecase.OutboxRepo = (*MySQLOutboxRepo)(nil)
