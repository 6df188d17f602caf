package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/attachments"
	"chatcord-backend/internal/globals"
	"chatcord-backend/internal/hub"
	"chatcord-backend/internal/models"
)

// resolveContainer binds the caller to a message container: their membership
// for a channel's server, or their side of a conversation. Conversations
// have no moderators, so the member comes back role-stripped there.
func resolveContainer(ctx context.Context, containerID int64, kind models.ContainerKind, profileID int64) (models.Member, bool, string, error) {
	switch kind {
	case models.ContainerChannel:
		serverID, err := channelServerID(ctx, containerID)
		if err != nil {
			return models.Member{}, false, "", err
		}

		member, err := members.ResolveMember(ctx, serverID, profileID)
		if err != nil {
			return models.Member{}, false, "", err
		}

		ownerID, err := serverOwnerID(ctx, serverID)
		if err != nil {
			return models.Member{}, false, "", err
		}

		return member, profileID == ownerID, globals.TopicKindChannel, nil

	case models.ContainerDirect:
		conversation, err := conversations.Get(ctx, containerID)
		if err != nil {
			return models.Member{}, false, "", err
		}

		for _, memberID := range []int64{conversation.MemberLow, conversation.MemberHigh} {
			member, err := members.ResolveMemberByID(ctx, memberID)
			if err != nil {
				continue
			}
			if member.ProfileID == profileID {
				member.Role = models.RoleGuest
				return member, false, globals.TopicKindConversation, nil
			}
		}
		return models.Member{}, false, "", apperrors.Forbidden("you are not part of this conversation")
	}

	return models.Member{}, false, "", apperrors.InvalidInput("unknown container kind")
}

func CreateMessage(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	type AddMessageRequest struct {
		ContainerID   int64                `json:"containerID,string"`
		ContainerKind models.ContainerKind `json:"containerKind"`
		Body          string               `json:"body"`
		Attachment    string               `json:"attachment"`
	}

	var messageRequest AddMessageRequest
	err := json.NewDecoder(r.Body).Decode(&messageRequest)
	if err != nil {
		sugar.Debug(err)
		writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	if err := attachments.ValidateRef(messageRequest.Attachment); err != nil {
		writeError(w, err)
		return
	}

	// a disconnecting client must not cancel the write mid-flight
	ctx := context.WithoutCancel(r.Context())

	member, _, topicKind, err := resolveContainer(ctx, messageRequest.ContainerID, messageRequest.ContainerKind, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := messages.Append(ctx, messageRequest.ContainerID, messageRequest.ContainerKind, member, messageRequest.Body, messageRequest.Attachment)
	if err != nil {
		writeError(w, err)
		return
	}

	// fan out only after the ledger write committed
	err = hub.Emit(hub.MessageCreated, topicKind, msg, msg.ContainerID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, msg)
}

func EditMessage(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	type EditMessageRequest struct {
		MessageID int64  `json:"messageID,string"`
		Body      string `json:"body"`
	}

	var editRequest EditMessageRequest
	err := json.NewDecoder(r.Body).Decode(&editRequest)
	if err != nil {
		sugar.Debug(err)
		writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	existing, err := messages.Get(ctx, editRequest.MessageID)
	if err != nil {
		writeError(w, err)
		return
	}

	member, _, topicKind, err := resolveContainer(ctx, existing.ContainerID, existing.ContainerKind, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := messages.Edit(ctx, editRequest.MessageID, member.ID, editRequest.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.MessageModified, topicKind, msg, msg.ContainerID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, msg)
}

func DeleteMessage(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	messageID, err := queryID(r, "messageID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	existing, err := messages.Get(ctx, messageID)
	if err != nil {
		writeError(w, err)
		return
	}

	member, isOwner, topicKind, err := resolveContainer(ctx, existing.ContainerID, existing.ContainerKind, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := messages.SoftDelete(ctx, messageID, member, isOwner)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.MessageDeleted, topicKind, msg, msg.ContainerID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, msg)
}

func GetMessageList(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)
	sessionID := sessionIDFrom(r)

	containerID, err := queryID(r, "containerID")
	if err != nil {
		writeError(w, err)
		return
	}

	kind := models.ContainerKind(r.URL.Query().Get("containerKind"))
	if kind == "" {
		kind = models.ContainerChannel
	}

	limit := 50
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			writeError(w, apperrors.InvalidInput("invalid limit"))
			return
		}
	}

	_, _, topicKind, err := resolveContainer(r.Context(), containerID, kind, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, nextCursor, err := messages.Page(r.Context(), containerID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	// fetching a container's backlog is also the moment the session starts
	// listening for new events on it
	err = hub.Subscribe(topicKind, containerID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	type MessagePage struct {
		Messages   []models.Message `json:"messages"`
		NextCursor string           `json:"nextCursor,omitempty"`
	}

	writeJSON(w, MessagePage{Messages: msgs, NextCursor: nextCursor})
}
