package handlers

import (
	"context"
	"database/sql"
	"net/http"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/authz"
	"chatcord-backend/internal/globals"
	"chatcord-backend/internal/hub"
	"chatcord-backend/internal/models"
	"chatcord-backend/internal/snowflake"
	"chatcord-backend/internal/validator"

	"github.com/google/uuid"
)

func serverOwnerID(ctx context.Context, serverID int64) (int64, error) {
	var ownerID int64
	err := db.QueryRowContext(ctx, "SELECT owner_id FROM servers WHERE id = ?", serverID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrServerNotFound
	}
	if err != nil {
		return 0, err
	}
	return ownerID, nil
}

// requireOwner resolves the caller's membership and checks the owner-only
// MANAGE_SERVER action.
func requireOwner(ctx context.Context, serverID int64, profileID int64) (models.Member, error) {
	member, err := members.ResolveMember(ctx, serverID, profileID)
	if err != nil {
		return member, err
	}

	ownerID, err := serverOwnerID(ctx, serverID)
	if err != nil {
		return member, err
	}

	if !authz.Allowed(member.Role, profileID == ownerID, authz.ManageServer, models.RoleGuest) {
		return member, apperrors.ErrActionForbidden
	}
	return member, nil
}

// CreateServer makes a server with a General text channel and the creator as
// its first, admin member.
func CreateServer(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverName := r.URL.Query().Get("name")
	if serverName == "" {
		serverName = "My server"
	}
	if err := validator.ServerName(serverName); err != nil {
		writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	serverID, err := snowflake.Generate()
	if err != nil {
		writeError(w, err)
		return
	}
	channelID, err := snowflake.Generate()
	if err != nil {
		writeError(w, err)
		return
	}

	server := models.Server{
		ID:         serverID,
		OwnerID:    profileID,
		Name:       serverName,
		InviteCode: uuid.NewString(),
	}

	ctx := context.WithoutCancel(r.Context())

	_, err = db.ExecContext(ctx, "INSERT INTO servers (id, owner_id, name, picture, invite_code) VALUES (?, ?, ?, '', ?)",
		server.ID, server.OwnerID, server.Name, server.InviteCode)
	if err != nil {
		writeError(w, err)
		return
	}

	_, err = db.ExecContext(ctx, "INSERT INTO channels (id, server_id, name, type) VALUES (?, ?, 'general', ?)",
		channelID, serverID, models.ChannelText)
	if err != nil {
		writeError(w, err)
		return
	}

	_, err = members.AddOwner(ctx, serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, server)
}

func GetServerList(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)
	sessionID := sessionIDFrom(r)

	rows, err := db.QueryContext(r.Context(),
		"SELECT s.id, s.owner_id, s.name, s.picture FROM servers s JOIN members m ON s.id = m.server_id WHERE m.profile_id = ?", profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rows.Close()

	servers := []models.Server{}

	for rows.Next() {
		var server models.Server

		err := rows.Scan(&server.ID, &server.OwnerID, &server.Name, &server.Picture)
		if err != nil {
			writeError(w, err)
			return
		}

		servers = append(servers, server)
	}

	if err := rows.Err(); err != nil {
		writeError(w, err)
		return
	}

	for _, server := range servers {
		err = hub.Subscribe(globals.TopicKindServerList, server.ID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, servers)
}

func DeleteServer(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	if _, err := requireOwner(ctx, serverID, profileID); err != nil {
		writeError(w, err)
		return
	}

	_, err = db.ExecContext(ctx, "DELETE FROM servers WHERE id = ?", serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.ServerDeleted, globals.TopicKindServerList, serverID, serverID)
	if err != nil {
		sugar.Error(err)
	}
}

func RenameServer(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	name := r.URL.Query().Get("name")
	if err := validator.ServerName(name); err != nil {
		writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	if _, err := requireOwner(ctx, serverID, profileID); err != nil {
		writeError(w, err)
		return
	}

	_, err = db.ExecContext(ctx, "UPDATE servers SET name = ? WHERE id = ?", name, serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	server := models.Server{ID: serverID, OwnerID: profileID, Name: name}

	err = hub.Emit(hub.ServerModified, globals.TopicKindServerList, server, serverID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, server)
}

// RotateInvite invalidates the current invite link by replacing the code.
func RotateInvite(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	if _, err := requireOwner(ctx, serverID, profileID); err != nil {
		writeError(w, err)
		return
	}

	newCode := uuid.NewString()
	_, err = db.ExecContext(ctx, "UPDATE servers SET invite_code = ? WHERE id = ?", newCode, serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, map[string]string{"inviteCode": newCode})
}

func JoinServer(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	inviteCode := r.URL.Query().Get("inviteCode")
	if inviteCode == "" {
		writeError(w, apperrors.InvalidInput("missing inviteCode"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	var serverID int64
	err := db.QueryRowContext(ctx, "SELECT id FROM servers WHERE invite_code = ?", inviteCode).Scan(&serverID)
	if err == sql.ErrNoRows {
		writeError(w, apperrors.NotFound("invalid invite code"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	member, err := members.AddMember(ctx, serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, member)
}

func LeaveServer(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	member, err := members.ResolveMember(ctx, serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := members.RemoveMember(ctx, member, member.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.MemberRemoved, globals.TopicKindServer, removed, serverID)
	if err != nil {
		sugar.Error(err)
	}
}
