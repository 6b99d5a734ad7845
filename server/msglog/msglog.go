// Durable, append only log of direct messages.
package msglog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sprinter05/duochat/internal/spec"
	"github.com/Sprinter05/duochat/server/db"
	"gorm.io/gorm"
)

// Stored message as returned to callers.
type Message struct {
	ID         uint64
	SenderID   uint
	ReceiverID uint
	Text       string
	CreatedAt  time.Time // UTC, second precision
}

// Message log backed by the database.
type Log struct {
	db  *gorm.DB
	now func() time.Time
}

func New(database *gorm.DB) *Log {
	return &Log{
		db:  database,
		now: time.Now,
	}
}

func fromModel(m db.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

// Stores a message with its body trimmed, assigning its id and
// timestamp. Empty bodies and messages to oneself are rejected.
func (l *Log) Append(ctx context.Context, sender uint, receiver uint, body string) (Message, error) {
	text := strings.TrimSpace(body)
	if text == "" {
		return Message{}, spec.Errorf(spec.ErrorValidation, "message text required")
	}

	if sender == receiver {
		return Message{}, spec.Errorf(spec.ErrorValidation, "cannot message yourself")
	}

	m, err := db.InsertMessage(l.db.WithContext(ctx), sender, receiver, text, l.now())
	if err != nil {
		return Message{}, fmt.Errorf("%w: %s", spec.ErrorStorage, err)
	}

	return fromModel(*m), nil
}

// Returns the dialog between two users in the order it happened.
// A limit outside of (0, HistoryLimit] uses HistoryLimit, and when
// there are more messages only the newest ones are returned.
func (l *Log) History(ctx context.Context, a uint, b uint, limit int) ([]Message, error) {
	if limit <= 0 || limit > spec.HistoryLimit {
		limit = spec.HistoryLimit
	}

	rows, err := db.QueryHistory(l.db.WithContext(ctx), a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", spec.ErrorStorage, err)
	}

	msgs := make([]Message, 0, len(rows))
	for _, v := range rows {
		msgs = append(msgs, fromModel(v))
	}

	return msgs, nil
}
