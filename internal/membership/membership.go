// Package membership is the source of truth for who belongs to a server and
// with what role. Every authorization decision starts from a member row
// resolved here.
package membership

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/authz"
	"chatcord-backend/internal/database"
	"chatcord-backend/internal/keyValue"
	"chatcord-backend/internal/models"
	"chatcord-backend/internal/snowflake"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const memberCacheTTL = 15 * time.Minute

type Store struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

func New(db *sql.DB, sugar *zap.SugaredLogger) *Store {
	return &Store{db: db, sugar: sugar}
}

// ResolveMember binds a profile to its membership in a server. Hot path for
// every gateway call, so hits are served from the cache.
func (s *Store) ResolveMember(ctx context.Context, serverID int64, profileID int64) (models.Member, error) {
	var member models.Member

	cacheKey := keyValue.MemberKey(serverID, profileID)
	cached, err := keyValue.Get(cacheKey)
	if err != nil {
		return member, errors.Wrap(err, "membership.ResolveMember.cacheGet")
	}
	if cached != "" {
		if err := json.Unmarshal([]byte(cached), &member); err == nil {
			return member, nil
		}
		// unreadable cache entry, fall through to the database
	}

	err = database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		return s.scanMember(
			s.db.QueryRowContext(ctx, memberSelect+" WHERE m.server_id = ? AND m.profile_id = ?", serverID, profileID),
			&member,
		)
	})
	if err != nil {
		return member, err
	}

	bytes, err := json.Marshal(member)
	if err != nil {
		return member, errors.Wrap(err, "membership.ResolveMember.marshal")
	}
	if err := keyValue.Set(cacheKey, string(bytes), memberCacheTTL); err != nil {
		return member, errors.Wrap(err, "membership.ResolveMember.cacheSet")
	}

	return member, nil
}

func (s *Store) ResolveMemberByID(ctx context.Context, memberID int64) (models.Member, error) {
	var member models.Member

	err := database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		return s.scanMember(
			s.db.QueryRowContext(ctx, memberSelect+" WHERE m.id = ?", memberID),
			&member,
		)
	})
	return member, err
}

const memberSelect = `
	SELECT
		m.id, m.server_id, m.profile_id, m.role,
		p.display_name, p.picture
	FROM
		members m
	JOIN
		profiles p ON m.profile_id = p.id`

func (s *Store) scanMember(row *sql.Row, member *models.Member) error {
	err := row.Scan(&member.ID, &member.ServerID, &member.ProfileID, &member.Role,
		&member.Profile.DisplayName, &member.Profile.Picture)
	if err == sql.ErrNoRows {
		return apperrors.ErrMemberNotFound
	}
	if err != nil {
		return storeErr(err, "membership.scanMember")
	}
	member.Profile.ID = member.ProfileID
	return nil
}

// ListChannels returns a server's channels in creation order.
func (s *Store) ListChannels(ctx context.Context, serverID int64) ([]models.Channel, error) {
	channels := []models.Channel{}

	err := database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		rows, err := s.db.QueryContext(ctx, "SELECT id, server_id, name, type FROM channels WHERE server_id = ? ORDER BY id ASC", serverID)
		if err != nil {
			return storeErr(err, "membership.ListChannels.query")
		}
		defer rows.Close()

		channels = channels[:0]
		for rows.Next() {
			var channel models.Channel
			if err := rows.Scan(&channel.ID, &channel.ServerID, &channel.Name, &channel.Type); err != nil {
				return storeErr(err, "membership.ListChannels.scan")
			}
			channels = append(channels, channel)
		}
		return storeErr(rows.Err(), "membership.ListChannels.rows")
	})

	return channels, err
}

// ListMembers returns admins first, then moderators, then guests, each group
// in join order.
func (s *Store) ListMembers(ctx context.Context, serverID int64) ([]models.Member, error) {
	members := []models.Member{}

	err := database.RetryRead(func() error {
		ctx, cancel := database.WithTimeout(ctx)
		defer cancel()

		rows, err := s.db.QueryContext(ctx, memberSelect+`
			WHERE m.server_id = ?
			ORDER BY
				CASE m.role WHEN 'ADMIN' THEN 0 WHEN 'MODERATOR' THEN 1 ELSE 2 END,
				m.id ASC`, serverID)
		if err != nil {
			return storeErr(err, "membership.ListMembers.query")
		}
		defer rows.Close()

		members = members[:0]
		for rows.Next() {
			var member models.Member
			err := rows.Scan(&member.ID, &member.ServerID, &member.ProfileID, &member.Role,
				&member.Profile.DisplayName, &member.Profile.Picture)
			if err != nil {
				return storeErr(err, "membership.ListMembers.scan")
			}
			member.Profile.ID = member.ProfileID
			members = append(members, member)
		}
		return storeErr(rows.Err(), "membership.ListMembers.rows")
	})

	return members, err
}

func (s *Store) serverOwner(ctx context.Context, serverID int64) (int64, error) {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, "SELECT owner_id FROM servers WHERE id = ?", serverID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrServerNotFound
	}
	if err != nil {
		return 0, storeErr(err, "membership.serverOwner")
	}
	return ownerID, nil
}

// SetRole changes a member's role after the authorization engine signs off.
// No-op changes are rejected so the audit trail stays meaningful, and the
// update is guarded against the role having changed underneath the actor.
func (s *Store) SetRole(ctx context.Context, actor models.Member, targetMemberID int64, newRole models.MemberRole) (models.Member, error) {
	var member models.Member

	if !newRole.Valid() {
		return member, apperrors.InvalidInput("unknown role")
	}

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	target, err := s.ResolveMemberByID(ctx, targetMemberID)
	if err != nil {
		return member, err
	}
	if target.ServerID != actor.ServerID {
		return member, apperrors.ErrMemberNotFound
	}

	ownerID, err := s.serverOwner(ctx, actor.ServerID)
	if err != nil {
		return member, err
	}

	if !authz.Allowed(actor.Role, actor.ProfileID == ownerID, authz.ManageMemberRole, target.Role) {
		return member, apperrors.ErrActionForbidden
	}

	if target.Role == newRole {
		return member, apperrors.ErrNoopRoleChange
	}

	result, err := s.db.ExecContext(ctx, "UPDATE members SET role = ? WHERE id = ? AND role = ?", newRole, target.ID, target.Role)
	if err != nil {
		return member, storeErr(err, "membership.SetRole.update")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return member, errors.Wrap(err, "membership.SetRole.rowsAffected")
	}
	if affected == 0 {
		return member, apperrors.Conflict("member role changed concurrently")
	}

	if err := keyValue.Delete(keyValue.MemberKey(target.ServerID, target.ProfileID)); err != nil {
		return member, errors.Wrap(err, "membership.SetRole.invalidate")
	}

	s.sugar.Debugf("Member ID [%d] role changed from %s to %s by member ID [%d]", target.ID, target.Role, newRole, actor.ID)

	target.Role = newRole
	return target, nil
}

// AddMember joins a profile to a server as a guest. Joining twice is not an
// error: the existing membership is returned.
func (s *Store) AddMember(ctx context.Context, serverID int64, profileID int64) (models.Member, error) {
	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	return s.addMember(ctx, serverID, profileID, models.RoleGuest)
}

// AddOwner creates the admin membership a freshly created server starts with.
func (s *Store) AddOwner(ctx context.Context, serverID int64, profileID int64) (models.Member, error) {
	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	return s.addMember(ctx, serverID, profileID, models.RoleAdmin)
}

func (s *Store) addMember(ctx context.Context, serverID int64, profileID int64, role models.MemberRole) (models.Member, error) {
	var member models.Member

	memberID, err := snowflake.Generate()
	if err != nil {
		return member, errors.Wrap(err, "membership.addMember.snowflake")
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO members (id, server_id, profile_id, role) VALUES (?, ?, ?, ?)", memberID, serverID, profileID, role)
	if database.IsUniqueViolation(err) {
		return s.ResolveMember(ctx, serverID, profileID)
	}
	if err != nil {
		return member, storeErr(err, "membership.addMember.insert")
	}

	return s.ResolveMember(ctx, serverID, profileID)
}

// RemoveMember handles both kicks and self-leave. The server owner cannot
// leave their own server. The removed member's messages stay behind with the
// author reference intact.
func (s *Store) RemoveMember(ctx context.Context, actor models.Member, targetMemberID int64) (models.Member, error) {
	var member models.Member

	ctx, cancel := database.WithTimeout(ctx)
	defer cancel()

	target, err := s.ResolveMemberByID(ctx, targetMemberID)
	if err != nil {
		return member, err
	}
	if target.ServerID != actor.ServerID {
		return member, apperrors.ErrMemberNotFound
	}

	ownerID, err := s.serverOwner(ctx, actor.ServerID)
	if err != nil {
		return member, err
	}

	if target.ProfileID == ownerID {
		return member, apperrors.Forbidden("the server owner cannot be removed")
	}

	selfLeave := actor.ID == target.ID
	if !selfLeave && !authz.Allowed(actor.Role, actor.ProfileID == ownerID, authz.ManageMemberRole, target.Role) {
		return member, apperrors.ErrActionForbidden
	}

	_, err = s.db.ExecContext(ctx, "DELETE FROM members WHERE id = ?", target.ID)
	if err != nil {
		return member, storeErr(err, "membership.RemoveMember.delete")
	}

	if err := keyValue.Delete(keyValue.MemberKey(target.ServerID, target.ProfileID)); err != nil {
		return member, errors.Wrap(err, "membership.RemoveMember.invalidate")
	}

	s.sugar.Debugf("Member ID [%d] removed from server ID [%d] by member ID [%d]", target.ID, target.ServerID, actor.ID)

	return target, nil
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
