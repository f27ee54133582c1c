package model

import "time"

// Message read-state values.  A message starts UNREAD; marking it read
// by the receiver flips it to ALL_READ.  SENDER_READ and RECEIVER_READ
// exist for clients that track each side independently.
const (
	ReadStatusUnread       = "UNREAD"
	ReadStatusSenderRead   = "SENDER_READ"
	ReadStatusReceiverRead = "RECEIVER_READ"
	ReadStatusAllRead      = "ALL_READ"
)

// HardDeleteWindow is how long after sending a message its sender may
// delete it for everyone.  The window is enforced server-side; past it
// only per-side soft deletion remains available.
const HardDeleteWindow = 5 * time.Minute

// Message is a direct message between two users as stored in the
// `messages` table.  Soft deletion is per side: each participant can
// hide the message from their own view without affecting the other.
//
// Fields:
//  ID                 – primary key identifier.
//  SenderID           – user who sent the message.
//  ReceiverID         – user the message is addressed to.
//  Content            – message body.
//  ReadStatus         – UNREAD, SENDER_READ, RECEIVER_READ or ALL_READ.
//  IsEdited           – whether the sender edited the message after sending.
//  DeletedForSender   – sender soft-deleted their view.
//  DeletedForReceiver – receiver soft-deleted their view.
//  CreatedAt          – when the message was sent.
//  UpdatedAt          – last edit or read-state change.
type Message struct {
	ID                 uint64    // messages.id
	SenderID           uint64    // messages.sender_id
	ReceiverID         uint64    // messages.receiver_id
	Content            string    // messages.content
	ReadStatus         string    // messages.read_status
	IsEdited           bool      // messages.is_edited
	DeletedForSender   bool      // messages.deleted_for_sender
	DeletedForReceiver bool      // messages.deleted_for_receiver
	CreatedAt          time.Time // messages.created_at
	UpdatedAt          time.Time // messages.updated_at
}

// VisibleTo reports whether the message should appear in the given
// user's view of the conversation.  Non-participants never see it;
// participants see it unless they soft-deleted their side.
func (m *Message) VisibleTo(userID uint64) bool {
	switch userID {
	case m.SenderID:
		return !m.DeletedForSender
	case m.ReceiverID:
		return !m.DeletedForReceiver
	default:
		return false
	}
}

// EditableBy reports whether the given user may edit the message.
// Only the original sender can edit.
func (m *Message) EditableBy(userID uint64) bool {
	return m.SenderID == userID
}

// DeletableForAll reports whether the given user may hard-delete the
// message for both participants at the given moment: only the sender,
// and only strictly inside the five-minute window after sending.
func (m *Message) DeletableForAll(userID uint64, now time.Time) bool {
	return m.SenderID == userID && now.Sub(m.CreatedAt) < HardDeleteWindow
}

// ReadableBy reports whether a mark-read action by the given user
// applies to this message.  Only unread messages addressed to the
// caller qualify; messages addressed to other users are untouched.
func (m *Message) ReadableBy(userID uint64) bool {
	return m.ReceiverID == userID && m.ReadStatus == ReadStatusUnread
}
