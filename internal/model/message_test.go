package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageDeletableForAll(t *testing.T) {
	sent := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	m := Message{ID: 1, SenderID: 7, ReceiverID: 9, CreatedAt: sent}

	t.Run("sender inside the window", func(t *testing.T) {
		assert.True(t, m.DeletableForAll(7, sent.Add(4*time.Minute+59*time.Second)))
	})

	t.Run("sender one second past the window", func(t *testing.T) {
		assert.False(t, m.DeletableForAll(7, sent.Add(5*time.Minute+time.Second)))
	})

	t.Run("window boundary is exclusive", func(t *testing.T) {
		assert.False(t, m.DeletableForAll(7, sent.Add(5*time.Minute)))
	})

	t.Run("receiver can never delete for all", func(t *testing.T) {
		assert.False(t, m.DeletableForAll(9, sent.Add(time.Second)))
	})
}

func TestMessageVisibility(t *testing.T) {
	m := Message{SenderID: 7, ReceiverID: 9}
	assert.True(t, m.VisibleTo(7))
	assert.True(t, m.VisibleTo(9))
	assert.False(t, m.VisibleTo(11), "non-participants never see the message")

	m.DeletedForSender = true
	assert.False(t, m.VisibleTo(7))
	assert.True(t, m.VisibleTo(9), "soft delete only hides the deleting side")

	m.DeletedForReceiver = true
	assert.False(t, m.VisibleTo(9))
}

func TestMessageReadableBy(t *testing.T) {
	m := Message{SenderID: 7, ReceiverID: 9, ReadStatus: ReadStatusUnread}

	assert.True(t, m.ReadableBy(9))
	assert.False(t, m.ReadableBy(7), "mark-read only applies to inbound messages")
	assert.False(t, m.ReadableBy(11))

	m.ReadStatus = ReadStatusAllRead
	assert.False(t, m.ReadableBy(9), "already-read messages are untouched")
}

func TestMessageEditableBy(t *testing.T) {
	m := Message{SenderID: 7, ReceiverID: 9}
	assert.True(t, m.EditableBy(7))
	assert.False(t, m.EditableBy(9))
}
