// Package ledger is the append-only message store. Messages never leave the
// ledger: deletion is a tombstone so client-cached sequences stay valid.
package ledger

import (
	"context"
	"database/sql"
	"time"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/authz"
	"chatcord-backend/internal/database"
	"chatcord-backend/internal/models"
	"chatcord-backend/internal/snowflake"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxBodyLength = 4096
	maxPageLimit  = 100

	// concurrent appenders can collide on the (container_id, seq) key;
	// each retry re-reads MAX(seq), so a couple of attempts is plenty
	seqConflictRetries = 5
)

type Ledger struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

func New(db *sql.DB, sugar *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, sugar: sugar}
}

// Append writes a new message at the next sequence position of its
// container. The position comes from MAX(seq)+1 inside the insert
// transaction; if two appends race, the unique key rejects the loser and the
// insert is retried with a fresh position. Appends to different containers
// never contend.
func (l *Ledger) Append(ctx context.Context, containerID int64, kind models.ContainerKind, author models.Member, body string, attachment string) (models.Message, error) {
	var message models.Message

	if body == "" && attachment == "" {
		return message, apperrors.ErrEmptyMessage
	}
	if len(body) > maxBodyLength {
		return message, apperrors.InvalidInput("message body too long")
	}
	if !kind.Valid() {
		return message, apperrors.InvalidInput("unknown container kind")
	}
	if !authz.Allowed(author.Role, false, authz.SendMessage, models.RoleGuest) {
		return message, apperrors.ErrActionForbidden
	}

	id, err := snowflake.Generate()
	if err != nil {
		return message, errors.Wrap(err, "ledger.Append.snowflake")
	}

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	var seq int64
	for attempt := 0; ; attempt++ {
		seq, err = l.insertAtNextSeq(ctx, id, containerID, kind, author.ID, body, attachment)
		if err == nil {
			break
		}
		if database.IsUniqueViolation(errors.Cause(err)) && attempt < seqConflictRetries {
			l.sugar.Debugf("Sequence conflict on container ID [%d], retrying append", containerID)
			continue
		}
		return message, err
	}

	message = models.Message{
		ID:            id,
		CreatedAt:     snowflake.Timestamp(id),
		ContainerID:   containerID,
		ContainerKind: kind,
		AuthorID:      author.ID,
		Seq:           seq,
		Body:          body,
		Attachment:    attachment,
		Author:        author.Profile,
	}
	return message, nil
}

func (l *Ledger) insertAtNextSeq(ctx context.Context, id int64, containerID int64, kind models.ContainerKind, authorID int64, body string, attachment string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err, "ledger.insertAtNextSeq.begin")
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE container_id = ?", containerID).Scan(&seq)
	if err != nil {
		return 0, storeErr(err, "ledger.insertAtNextSeq.nextSeq")
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, container_id, container_kind, author_id, seq, body, attachment, deleted) VALUES (?, ?, ?, ?, ?, ?, ?, FALSE)",
		id, containerID, kind, authorID, seq, body, attachment)
	if err != nil {
		return 0, storeErr(err, "ledger.insertAtNextSeq.insert")
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr(err, "ledger.insertAtNextSeq.commit")
	}
	return seq, nil
}

// Get loads a single message, tombstone or not.
func (l *Ledger) Get(ctx context.Context, messageID int64) (models.Message, error) {
	var message models.Message

	err := database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		return l.scanMessage(l.db.QueryRowContext(ctx, messageSelect+" WHERE m.id = ?", messageID), &message)
	})
	return message, err
}

// Edit replaces the body of the actor's own message and stamps edited-at.
// Tombstones cannot be edited.
func (l *Ledger) Edit(ctx context.Context, messageID int64, actorMemberID int64, newBody string) (models.Message, error) {
	var message models.Message

	if newBody == "" {
		return message, apperrors.ErrEmptyMessage
	}
	if len(newBody) > maxBodyLength {
		return message, apperrors.InvalidInput("message body too long")
	}

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	message, err := l.Get(ctx, messageID)
	if err != nil {
		return message, err
	}

	if message.AuthorID != actorMemberID {
		return models.Message{}, apperrors.ErrNotAuthor
	}

	// the deleted guard lives in the UPDATE itself: a delete landing after
	// the read above makes this touch zero rows instead of reviving a
	// tombstone
	editedAt := time.Now().UTC()
	result, err := l.db.ExecContext(ctx, "UPDATE messages SET body = ?, edited_at = ? WHERE id = ? AND deleted = FALSE", newBody, editedAt, messageID)
	if err != nil {
		return models.Message{}, storeErr(err, "ledger.Edit.update")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Message{}, errors.Wrap(err, "ledger.Edit.rowsAffected")
	}
	if affected == 0 {
		return models.Message{}, apperrors.ErrAlreadyDeleted
	}

	message.Body = newBody
	message.EditedAt = &editedAt
	return message, nil
}

// SoftDelete tombstones a message: body and attachment cleared, deleted flag
// set, id and sequence untouched. Idempotent, so a retried delete returns the
// tombstone instead of erroring. Moderators and admins may delete anyone's
// message, authors their own.
func (l *Ledger) SoftDelete(ctx context.Context, messageID int64, actor models.Member, isOwner bool) (models.Message, error) {
	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	message, err := l.Get(ctx, messageID)
	if err != nil {
		return message, err
	}

	if message.AuthorID != actor.ID && !authz.Allowed(actor.Role, isOwner, authz.DeleteAnyMessage, models.RoleGuest) {
		return models.Message{}, apperrors.ErrActionForbidden
	}

	if message.Deleted {
		return message, nil
	}

	_, err = l.db.ExecContext(ctx, "UPDATE messages SET body = '', attachment = '', deleted = TRUE WHERE id = ?", messageID)
	if err != nil {
		return models.Message{}, storeErr(err, "ledger.SoftDelete.update")
	}

	message.Body = ""
	message.Attachment = ""
	message.Deleted = true
	return message, nil
}

const messageSelect = `
	SELECT
		m.id, m.container_id, m.container_kind, m.author_id, m.seq,
		m.body, m.attachment, m.edited_at, m.deleted,
		COALESCE(p.display_name, ''), COALESCE(p.picture, '')
	FROM
		messages m
	LEFT JOIN
		members mb ON m.author_id = mb.id
	LEFT JOIN
		profiles p ON mb.profile_id = p.id`

func (l *Ledger) scanMessage(row *sql.Row, message *models.Message) error {
	var editedAt sql.NullTime
	var attachment sql.NullString

	err := row.Scan(&message.ID, &message.ContainerID, &message.ContainerKind, &message.AuthorID, &message.Seq,
		&message.Body, &attachment, &editedAt, &message.Deleted,
		&message.Author.DisplayName, &message.Author.Picture)
	if err == sql.ErrNoRows {
		return apperrors.ErrMessageNotFound
	}
	if err != nil {
		return storeErr(err, "ledger.scanMessage")
	}

	message.CreatedAt = snowflake.Timestamp(message.ID)
	message.Attachment = attachment.String
	if editedAt.Valid {
		t := editedAt.Time
		message.EditedAt = &t
	}
	return nil
}

// Page returns up to limit messages newest-first, starting below the cursor
// position. Tombstones are included so clients can render deletions in
// place. The returned cursor is empty once the container is exhausted.
func (l *Ledger) Page(ctx context.Context, containerID int64, cursor string, limit int) ([]models.Message, string, error) {
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}

	beforeSeq := int64(0)
	if cursor != "" {
		var err error
		beforeSeq, err = decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
	}

	messages := []models.Message{}

	err := database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		query := messageSelect + " WHERE m.container_id = ?"
		args := []any{containerID}
		if beforeSeq > 0 {
			query += " AND m.seq < ?"
			args = append(args, beforeSeq)
		}
		query += " ORDER BY m.seq DESC LIMIT ?"
		args = append(args, limit)

		rows, err := l.db.QueryContext(ctx, query, args...)
		if err != nil {
			return storeErr(err, "ledger.Page.query")
		}
		defer rows.Close()

		messages = messages[:0]
		for rows.Next() {
			var message models.Message
			var editedAt sql.NullTime
			var attachment sql.NullString

			err := rows.Scan(&message.ID, &message.ContainerID, &message.ContainerKind, &message.AuthorID, &message.Seq,
				&message.Body, &attachment, &editedAt, &message.Deleted,
				&message.Author.DisplayName, &message.Author.Picture)
			if err != nil {
				return storeErr(err, "ledger.Page.scan")
			}

			message.CreatedAt = snowflake.Timestamp(message.ID)
			message.Attachment = attachment.String
			if editedAt.Valid {
				t := editedAt.Time
				message.EditedAt = &t
			}
			messages = append(messages, message)
		}
		return storeErr(rows.Err(), "ledger.Page.rows")
	})
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(messages) == limit {
		last := messages[len(messages)-1]
		if last.Seq > 1 {
			nextCursor = encodeCursor(last.Seq)
		}
	}

	return messages, nextCursor, nil
}

func storeErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.CodeTimeout, "store deadline exceeded", errors.Wrap(err, op))
	}
	return errors.Wrap(err, op)
}
