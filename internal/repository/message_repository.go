package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/furkanardicm/bloodshare-sub000/internal/model"
)

// MessageRepo provides persistence for the messages table.  Every
// mutation is a single guarded statement; the guards (sender check,
// receiver check, delete window) live in the WHERE clause so that the
// decision is made against current data, not against whatever the
// handler read moments earlier.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, content, read_status, is_edited,
	deleted_for_sender, deleted_for_receiver, created_at, updated_at`

// Create persists a new UNREAD message and fills in the generated ID
// and timestamps.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, content, read_status) VALUES (?,?,?,?)`,
		m.SenderID, m.ReceiverID, m.Content, model.ReadStatusUnread)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.ReadStatus = model.ReadStatusUnread
	return r.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM messages WHERE id=?`, m.ID).
		Scan(&m.CreatedAt, &m.UpdatedAt)
}

// GetByID fetches a message by id.  ErrMessageNotFound when absent.
func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
	var m model.Message
	err := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id=? LIMIT 1`, id).
		Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ReadStatus, &m.IsEdited,
			&m.DeletedForSender, &m.DeletedForReceiver, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return model.Message{}, err
	}
	return m, nil
}

// Conversation returns both directions of the exchange between two
// users in chronological order, excluding messages the caller has
// soft-deleted.  The other participant's deletions do not affect the
// caller's view.
func (r *MessageRepo) Conversation(ctx context.Context, callerID, otherID uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE ((sender_id=? AND receiver_id=? AND deleted_for_sender=0)
		     OR (sender_id=? AND receiver_id=? AND deleted_for_receiver=0))
		 ORDER BY created_at ASC, id ASC`,
		callerID, otherID, otherID, callerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.ReadStatus,
			&m.IsEdited, &m.DeletedForSender, &m.DeletedForReceiver,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flips UNREAD messages addressed to the caller to ALL_READ
// and returns how many rows changed.  The receiver guard lives in the
// statement itself: messages addressed to other users can never be
// affected, whatever the caller sends.  A zero senderID means "from
// anyone"; otherwise only that sender's messages are marked.
func (r *MessageRepo) MarkRead(ctx context.Context, receiverID, senderID uint64) (int64, error) {
	q := `UPDATE messages SET read_status=? WHERE receiver_id=? AND read_status=?`
	args := []any{model.ReadStatusAllRead, receiverID, model.ReadStatusUnread}
	if senderID != 0 {
		q += ` AND sender_id=?`
		args = append(args, senderID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Edit replaces the content of a message if the caller is its sender,
// marking it edited and leaving the read state untouched.  Returns
// ErrForbidden when the message exists but belongs to someone else and
// ErrMessageNotFound when it does not exist.
func (r *MessageRepo) Edit(ctx context.Context, id, senderID uint64, content string) (model.Message, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=?, is_edited=1 WHERE id=? AND sender_id=?`,
		content, id, senderID)
	if err != nil {
		return model.Message{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Message{}, err
	}
	if n == 0 {
		// Distinguish "not yours" from "not there" for the handler.
		if _, err := r.GetByID(ctx, id); err != nil {
			return model.Message{}, err
		}
		return model.Message{}, ErrForbidden
	}
	return r.GetByID(ctx, id)
}

// SoftDelete hides the message from the given participant's view.
// Non-participants get ErrForbidden.
func (r *MessageRepo) SoftDelete(ctx context.Context, id, userID uint64) error {
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var col string
	switch userID {
	case m.SenderID:
		col = "deleted_for_sender"
	case m.ReceiverID:
		col = "deleted_for_receiver"
	default:
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE messages SET `+col+`=1 WHERE id=?`, id)
	return err
}

// HardDelete removes the message for both participants.  The sender
// and window guards are enforced in the DELETE itself so the decision
// holds even if the handler's earlier read has gone stale; zero rows
// affected after a passing precheck means the window closed in
// between, surfaced as ErrConflict.
func (r *MessageRepo) HardDelete(ctx context.Context, id, senderID uint64, window time.Duration) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages
		 WHERE id=? AND sender_id=? AND created_at > (UTC_TIMESTAMP() - INTERVAL ? SECOND)`,
		id, senderID, int64(window.Seconds()))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}
