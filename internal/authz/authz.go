// Package authz is the single place role checks happen. It is a pure
// function of (actor role, ownership, action, target role) so it can be
// tested exhaustively without any database.
package authz

import "chatcord-backend/internal/models"

type Action int

const (
	SendMessage Action = iota
	EditOwnMessage
	DeleteOwnMessage
	DeleteAnyMessage
	ManageChannel
	ManageMemberRole
	ManageServer
)

// rank orders roles so that permissions are monotonic: anything a role may
// do, every higher role may do too. Owner-only actions sit outside the
// hierarchy.
func rank(r models.MemberRole) int {
	switch r {
	case models.RoleGuest:
		return 0
	case models.RoleModerator:
		return 1
	case models.RoleAdmin:
		return 2
	}
	return -1
}

// Allowed decides whether the actor may perform action. target is only
// meaningful for ManageMemberRole and is the role of the member being
// changed; pass models.RoleGuest otherwise.
func Allowed(actor models.MemberRole, isOwner bool, action Action, target models.MemberRole) bool {
	if rank(actor) < 0 {
		return false
	}

	switch action {
	case SendMessage, EditOwnMessage, DeleteOwnMessage:
		return true
	case DeleteAnyMessage, ManageChannel:
		return rank(actor) >= rank(models.RoleModerator)
	case ManageMemberRole:
		if isOwner {
			return true
		}
		// an admin may never touch another admin, so two admins cannot
		// race each other out of the server
		return actor == models.RoleAdmin && target != models.RoleAdmin
	case ManageServer:
		return isOwner
	}
	return false
}
