package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"chatcord-backend/internal/apperrors"
)

// OpenConversation finds or lazily creates the private conversation between
// the caller and another member of the same server. Every caller lands on
// the same row no matter who asked first.
func OpenConversation(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	type OpenConversationRequest struct {
		ServerID      int64 `json:"serverID,string"`
		OtherMemberID int64 `json:"otherMemberID,string"`
	}

	var openRequest OpenConversationRequest
	err := json.NewDecoder(r.Body).Decode(&openRequest)
	if err != nil {
		sugar.Debug(err)
		writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	caller, err := members.ResolveMember(ctx, openRequest.ServerID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	conversation, err := conversations.GetOrCreate(ctx, caller.ID, openRequest.OtherMemberID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, conversation)
}
