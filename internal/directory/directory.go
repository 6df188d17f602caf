// Package directory owns the one row per unordered member pair that a
// private conversation lives in.
package directory

import (
	"context"
	"database/sql"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/database"
	"chatcord-backend/internal/models"
	"chatcord-backend/internal/snowflake"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Directory struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

func New(db *sql.DB, sugar *zap.SugaredLogger) *Directory {
	return &Directory{db: db, sugar: sugar}
}

// GetOrCreate returns the conversation between two members, creating it on
// first contact. Concurrent first contacts race on the (member_low,
// member_high) unique key; the loser re-reads and returns the winner's row,
// so every caller ends up with the same conversation id.
func (d *Directory) GetOrCreate(ctx context.Context, memberA int64, memberB int64) (models.Conversation, error) {
	var conversation models.Conversation

	if memberA == memberB {
		return conversation, apperrors.ErrSelfConversation
	}

	low, high := memberA, memberB
	if low > high {
		low, high = high, low
	}

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	for _, memberID := range []int64{low, high} {
		var exists bool
		err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM members WHERE id = ?)", memberID).Scan(&exists)
		if err != nil {
			return conversation, storeErr(err, "directory.GetOrCreate.memberExists")
		}
		if !exists {
			return conversation, apperrors.ErrMemberNotFound
		}
	}

	found, err := d.lookup(ctx, low, high, &conversation)
	if err != nil {
		return conversation, err
	}
	if found {
		return conversation, nil
	}

	id, err := snowflake.Generate()
	if err != nil {
		return conversation, errors.Wrap(err, "directory.GetOrCreate.snowflake")
	}

	_, err = d.db.ExecContext(ctx, "INSERT INTO conversations (id, member_low, member_high) VALUES (?, ?, ?)", id, low, high)
	if database.IsUniqueViolation(err) {
		// lost the first-contact race, the other caller's row wins
		d.sugar.Debugf("Conversation for pair [%d, %d] was created concurrently, re-reading", low, high)
		found, err = d.lookup(ctx, low, high, &conversation)
		if err != nil {
			return conversation, err
		}
		if !found {
			return conversation, apperrors.Internal("conversation vanished after conflict")
		}
		return conversation, nil
	}
	if err != nil {
		return conversation, storeErr(err, "directory.GetOrCreate.insert")
	}

	conversation = models.Conversation{ID: id, MemberLow: low, MemberHigh: high}
	return conversation, nil
}

func (d *Directory) lookup(ctx context.Context, low int64, high int64, conversation *models.Conversation) (bool, error) {
	err := d.db.QueryRowContext(ctx, "SELECT id, member_low, member_high FROM conversations WHERE member_low = ? AND member_high = ?", low, high).
		Scan(&conversation.ID, &conversation.MemberLow, &conversation.MemberHigh)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storeErr(err, "directory.lookup")
	}
	return true, nil
}

func (d *Directory) Get(ctx context.Context, id int64) (models.Conversation, error) {
	var conversation models.Conversation

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	err := d.db.QueryRowContext(ctx, "SELECT id, member_low, member_high FROM conversations WHERE id = ?", id).
		Scan(&conversation.ID, &conversation.MemberLow, &conversation.MemberHigh)
	if err == sql.ErrNoRows {
		return conversation, apperrors.NotFound("conversation not found")
	}
	if err != nil {
		return conversation, storeErr(err, "directory.Get")
	}

	return conversation, nil
}

func storeErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeTimeout, "store deadline exceeded", errors.Wrap(err, op))
	}
	return errors.Wrap(err, op)
}
