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
)

func channelServerID(ctx context.Context, channelID int64) (int64, error) {
	var serverID int64
	err := db.QueryRowContext(ctx, "SELECT server_id FROM channels WHERE id = ?", channelID).Scan(&serverID)
	if err == sql.ErrNoRows {
		return 0, apperrors.ErrChannelNotFound
	}
	if err != nil {
		return 0, err
	}
	return serverID, nil
}

func CreateChannel(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	channelName := r.URL.Query().Get("name")
	if channelName == "" {
		channelName = "New Channel"
	}
	if err := validator.ChannelName(channelName); err != nil {
		writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	channelType := models.ChannelType(r.URL.Query().Get("type"))
	if channelType == "" {
		channelType = models.ChannelText
	}
	if !channelType.Valid() {
		writeError(w, apperrors.InvalidInput("unknown channel type"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	member, err := members.ResolveMember(ctx, serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	ownerID, err := serverOwnerID(ctx, serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !authz.Allowed(member.Role, profileID == ownerID, authz.ManageChannel, models.RoleGuest) {
		sugar.Warnf("Member ID [%d] tried to create a channel in server ID [%d] without permission", member.ID, serverID)
		writeError(w, apperrors.ErrActionForbidden)
		return
	}

	channelID, err := snowflake.Generate()
	if err != nil {
		writeError(w, err)
		return
	}

	channel := models.Channel{
		ID:       channelID,
		ServerID: serverID,
		Name:     channelName,
		Type:     channelType,
	}

	_, err = db.ExecContext(ctx, "INSERT INTO channels (id, server_id, name, type) VALUES (?, ?, ?, ?)",
		channel.ID, channel.ServerID, channel.Name, channel.Type)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.ChannelCreated, globals.TopicKindServer, channel, serverID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, channel)
}

func GetChannelList(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)
	sessionID := sessionIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	// non-members don't get to see a server's channels
	_, err = members.ResolveMember(r.Context(), serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	channels, err := members.ListChannels(r.Context(), serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Subscribe(globals.TopicKindServer, serverID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, channels)
}
