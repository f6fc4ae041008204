package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"greenline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedDirectConversation(t *testing.T, db *gorm.DB, a, b *models.User) *models.Conversation {
	t.Helper()
	pk := models.DirectPairKey(a.ID, b.ID)
	conv := &models.Conversation{
		Type: models.ConversationDirect, UserOneID: &a.ID, UserTwoID: &b.ID, PairKey: &pk,
	}
	require.NoError(t, NewConversationRepository(db).Create(context.Background(), conv))
	return conv
}

func TestMessageRepository_AppendBumpsConversation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	conv := seedDirectConversation(t, db, a, b)

	sent := time.Now().UTC().Add(-10 * time.Minute)
	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       a.ID,
		Content:        "soil samples shipped",
		CreatedAt:      sent,
	}
	require.NoError(t, repo.Append(ctx, msg))
	assert.NotZero(t, msg.ID)

	var stored models.Conversation
	require.NoError(t, db.First(&stored, conv.ID).Error)
	assert.WithinDuration(t, sent, stored.UpdatedAt, time.Second)

	fetched, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "soil samples shipped", fetched.Content)
	require.NotNil(t, fetched.Sender)
	assert.Equal(t, "a", fetched.Sender.Username)
}

func TestMessageRepository_Page(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	conv := seedDirectConversation(t, db, a, b)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 1; i <= 7; i++ {
		require.NoError(t, repo.Append(ctx, &models.Message{
			ConversationID: conv.ID,
			SenderID:       a.ID,
			Content:        fmt.Sprintf("m%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("Newest page in chronological order", func(t *testing.T) {
		page, err := repo.Page(ctx, conv.ID, 3, 0)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, "m5", page[0].Content)
		assert.Equal(t, "m6", page[1].Content)
		assert.Equal(t, "m7", page[2].Content)
	})

	t.Run("Cursor walks backwards", func(t *testing.T) {
		page, err := repo.Page(ctx, conv.ID, 3, 0)
		require.NoError(t, err)

		older, err := repo.Page(ctx, conv.ID, 3, page[0].ID)
		require.NoError(t, err)
		require.Len(t, older, 3)
		assert.Equal(t, "m2", older[0].Content)
		assert.Equal(t, "m4", older[2].Content)

		oldest, err := repo.Page(ctx, conv.ID, 3, older[0].ID)
		require.NoError(t, err)
		require.Len(t, oldest, 1)
		assert.Equal(t, "m1", oldest[0].Content)
	})

	t.Run("LastMessage", func(t *testing.T) {
		last, err := repo.LastMessage(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, "m7", last.Content)
	})

	t.Run("Empty conversation", func(t *testing.T) {
		c := seedUser(t, db, "c")
		empty := seedDirectConversation(t, db, a, c)
		page, err := repo.Page(ctx, empty.ID, 3, 0)
		require.NoError(t, err)
		assert.Empty(t, page)
		_, err = repo.LastMessage(ctx, empty.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestMessageRepository_ReadCursor(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	a := seedUser(t, db, "a")
	b := seedUser(t, db, "b")
	conv := seedDirectConversation(t, db, a, b)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 1; i <= 4; i++ {
		require.NoError(t, repo.Append(ctx, &models.Message{
			ConversationID: conv.ID,
			SenderID:       a.ID,
			Content:        fmt.Sprintf("m%d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("Missing cursor counts everything", func(t *testing.T) {
		count, err := repo.UnreadCount(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("Own messages are never unread", func(t *testing.T) {
		count, err := repo.UnreadCount(ctx, conv.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Cursor splits read from unread", func(t *testing.T) {
		require.NoError(t, repo.UpsertRead(ctx, conv.ID, b.ID, base.Add(2*time.Minute)))
		count, err := repo.UnreadCount(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Cursor only moves forward", func(t *testing.T) {
		require.NoError(t, repo.UpsertRead(ctx, conv.ID, b.ID, base.Add(time.Minute)))
		read, err := repo.GetRead(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, base.Add(2*time.Minute), read.LastReadAt, time.Second)

		require.NoError(t, repo.UpsertRead(ctx, conv.ID, b.ID, base.Add(10*time.Minute)))
		count, err := repo.UnreadCount(ctx, conv.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("Delete removes the row", func(t *testing.T) {
		var msg models.Message
		require.NoError(t, db.Where("conversation_id = ?", conv.ID).First(&msg).Error)
		require.NoError(t, repo.Delete(ctx, msg.ID))
		_, err := repo.GetByID(ctx, msg.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}
