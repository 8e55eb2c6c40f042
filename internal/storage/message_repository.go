package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNoMessage is returned when the messages table has no rows — i.e. the
// database was never provisioned. Go uses sentinel errors (predefined error
// values) instead of exception types; callers check with errors.Is.
var ErrNoMessage = errors.New("no message provisioned")

// MessageRepository reads the provisioned greeting message.
// Go interfaces are implicit — any struct with these methods satisfies it,
// which makes handler tests trivial to write against a stub.
type MessageRepository interface {
	Latest(ctx context.Context) (string, error)
}

// sqliteMessageRepository is the SQLite implementation of MessageRepository.
// The struct is unexported — only the interface is public.
type sqliteMessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new SQLite-backed MessageRepository.
func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &sqliteMessageRepository{db: db}
}

func (r *sqliteMessageRepository) Latest(ctx context.Context) (string, error) {
	var msg string
	err := r.db.GetContext(ctx, &msg, "SELECT message FROM messages ORDER BY id LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMessage
	}
	if err != nil {
		return "", fmt.Errorf("getting message: %w", err)
	}
	return msg, nil
}
