package ledger_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/database"
	"chatcord-backend/internal/ledger"
	"chatcord-backend/internal/models"
	"chatcord-backend/internal/snowflake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const channelID = int64(100)

var (
	admin = models.Member{ID: 11, ServerID: 5, ProfileID: 1, Role: models.RoleAdmin,
		Profile: models.Profile{ID: 1, DisplayName: "A"}}
	guest = models.Member{ID: 22, ServerID: 5, ProfileID: 2, Role: models.RoleGuest,
		Profile: models.Profile{ID: 2, DisplayName: "B"}}
)

func newTestLedger(t *testing.T) (*ledger.Ledger, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)
	require.NoError(t, database.CreateTables(db))

	stmts := []string{
		"INSERT INTO profiles (id, email, username, display_name, picture, password) VALUES (1, 'a@a.com', 'a', 'A', '', 'x')",
		"INSERT INTO profiles (id, email, username, display_name, picture, password) VALUES (2, 'b@b.com', 'b', 'B', '', 'x')",
		"INSERT INTO servers (id, owner_id, name, picture, invite_code) VALUES (5, 1, 'S', '', 'inv')",
		"INSERT INTO members (id, server_id, profile_id, role) VALUES (11, 5, 1, 'ADMIN')",
		"INSERT INTO members (id, server_id, profile_id, role) VALUES (22, 5, 2, 'GUEST')",
		"INSERT INTO channels (id, server_id, name, type) VALUES (100, 5, 'general', 'TEXT')",
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return ledger.New(db, zap.NewNop().Sugar()), db
}

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		msg, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, want, msg.Seq)
		assert.False(t, msg.Deleted)
	}
}

func TestAppendRejectsEmptyMessage(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "", "")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))

	// attachment alone is a valid message
	msg, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "", "https://cdn.example.com/cat.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/cat.png", msg.Attachment)
}

func TestAppendChecksSendPermission(t *testing.T) {
	l, _ := newTestLedger(t)

	banned := guest
	banned.Role = models.MemberRole("BANNED")

	_, err := l.Append(context.Background(), channelID, models.ContainerChannel, banned, "hello", "")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestMessageCarriesCreationTime(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	msg, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "hello", "")
	require.NoError(t, err)

	assert.Equal(t, snowflake.Timestamp(msg.ID), msg.CreatedAt)
	assert.WithinDuration(t, time.Now(), msg.CreatedAt, time.Minute)

	// the id is the creation record, so reads reconstruct the same time
	got, err := l.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.CreatedAt, got.CreatedAt)

	page, _, err := l.Page(ctx, channelID, "", 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, msg.CreatedAt, page[0].CreatedAt)
}

func TestConcurrentAppendsKeepSequenceUnique(t *testing.T) {
	l, _ := newTestLedger(t)

	const (
		writers   = 8
		perWriter = 5
		other     = int64(200)
	)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := 0; p < perWriter; p++ {
				if _, err := l.Append(context.Background(), channelID, models.ContainerChannel, admin, "x", ""); err != nil {
					t.Error(err)
				}
				// a second container appending in parallel must not contend
				if _, err := l.Append(context.Background(), other, models.ContainerChannel, guest, "y", ""); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	for _, container := range []int64{channelID, other} {
		msgs, _, err := l.Page(context.Background(), container, "", 100)
		require.NoError(t, err)
		require.Len(t, msgs, writers*perWriter)

		seen := make(map[int64]bool)
		for _, msg := range msgs {
			assert.False(t, seen[msg.Seq], "duplicate seq %d in container %d", msg.Seq, container)
			seen[msg.Seq] = true
		}
		for want := int64(1); want <= writers*perWriter; want++ {
			assert.True(t, seen[want], "missing seq %d in container %d", want, container)
		}
	}
}

func TestEdit(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	msg, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "hi", "")
	require.NoError(t, err)

	edited, err := l.Edit(ctx, msg.ID, guest.ID, "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hi there", edited.Body)
	assert.NotNil(t, edited.EditedAt)
	assert.Equal(t, msg.Seq, edited.Seq, "editing must not move the message")

	_, err = l.Edit(ctx, msg.ID, admin.ID, "hijacked")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	unchanged, err := l.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hi there", unchanged.Body)

	_, err = l.Edit(ctx, 424242, guest.ID, "nope")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestEditDeletedMessage(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	msg, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "hi", "")
	require.NoError(t, err)

	_, err = l.SoftDelete(ctx, msg.ID, guest, false)
	require.NoError(t, err)

	_, err = l.Edit(ctx, msg.ID, guest.ID, "too late")
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	// the losing edit must not have touched the tombstone
	var body string
	var editedAt any
	require.NoError(t, db.QueryRow("SELECT body, edited_at FROM messages WHERE id = ?", msg.ID).Scan(&body, &editedAt))
	assert.Empty(t, body)
	assert.Nil(t, editedAt)
}

func TestSoftDeleteIsIdempotent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	msg, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "bye", "")
	require.NoError(t, err)

	first, err := l.SoftDelete(ctx, msg.ID, guest, false)
	require.NoError(t, err)
	assert.True(t, first.Deleted)
	assert.Empty(t, first.Body)

	second, err := l.SoftDelete(ctx, msg.ID, guest, false)
	require.NoError(t, err, "retried delete must not error")
	assert.Equal(t, first.Deleted, second.Deleted)
	assert.Equal(t, first.Seq, second.Seq)
}

func TestSoftDeleteAuthorization(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	msg, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "mine", "")
	require.NoError(t, err)

	// a guest cannot delete someone else's message
	_, err = l.SoftDelete(ctx, msg.ID, guest, false)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	// an admin can delete anyone's
	theirs, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "theirs", "")
	require.NoError(t, err)

	deleted, err := l.SoftDelete(ctx, theirs.ID, admin, false)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
}

func TestPageWalksWholeContainer(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	const total = 25
	for n := 0; n < total; n++ {
		_, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "m", "")
		require.NoError(t, err)
	}

	var collected []int64
	cursor := ""
	pages := 0
	for {
		msgs, next, err := l.Page(ctx, channelID, cursor, 10)
		require.NoError(t, err)

		for _, msg := range msgs {
			collected = append(collected, msg.Seq)
		}

		pages++
		if next == "" {
			break
		}
		cursor = next
	}

	assert.Equal(t, 3, pages)
	require.Len(t, collected, total)

	// newest-first, no gaps, no duplicates across page boundaries
	for i, seq := range collected {
		assert.Equal(t, int64(total-i), seq)
	}
}

func TestPageStableUnderConcurrentAppends(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for n := 0; n < 20; n++ {
		_, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "old", "")
		require.NoError(t, err)
	}

	firstPage, cursor, err := l.Page(ctx, channelID, "", 10)
	require.NoError(t, err)
	require.Len(t, firstPage, 10)

	// messages arriving mid-pagination must not shift later pages
	for n := 0; n < 5; n++ {
		_, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "new", "")
		require.NoError(t, err)
	}

	secondPage, _, err := l.Page(ctx, channelID, cursor, 10)
	require.NoError(t, err)
	require.Len(t, secondPage, 10)

	assert.Equal(t, int64(10), secondPage[0].Seq, "second page must continue below the cursor")
	for _, msg := range secondPage {
		assert.Equal(t, "old", msg.Body)
	}
}

func TestPageRejectsMalformedCursor(t *testing.T) {
	l, _ := newTestLedger(t)

	_, _, err := l.Page(context.Background(), channelID, "not-base64!!", 10)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

// The walkthrough from the design discussion: two members, one channel,
// send/edit/moderate/list.
func TestChannelScenario(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	hello, err := l.Append(ctx, channelID, models.ContainerChannel, admin, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hello.Seq)

	hi, err := l.Append(ctx, channelID, models.ContainerChannel, guest, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hi.Seq)

	edited, err := l.Edit(ctx, hi.ID, guest.ID, "hi there")
	require.NoError(t, err)
	assert.Equal(t, int64(2), edited.Seq)
	assert.NotNil(t, edited.EditedAt)

	deleted, err := l.SoftDelete(ctx, hello.ID, admin, false)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Empty(t, deleted.Body)

	msgs, _, err := l.Page(ctx, channelID, "", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "hi there", msgs[0].Body)
	assert.Equal(t, "B", msgs[0].Author.DisplayName)
	assert.True(t, msgs[1].Deleted)
	assert.Empty(t, msgs[1].Body)
}
