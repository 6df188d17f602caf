package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/globals"
	"chatcord-backend/internal/hub"
	"chatcord-backend/internal/models"
)

func GetMemberList(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	serverID, err := queryID(r, "serverID")
	if err != nil {
		writeError(w, err)
		return
	}

	_, err = members.ResolveMember(r.Context(), serverID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	memberList, err := members.ListMembers(r.Context(), serverID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, memberList)
}

func SetMemberRole(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	type SetRoleRequest struct {
		MemberID int64             `json:"memberID,string"`
		Role     models.MemberRole `json:"role"`
	}

	var roleRequest SetRoleRequest
	err := json.NewDecoder(r.Body).Decode(&roleRequest)
	if err != nil {
		sugar.Debug(err)
		writeError(w, apperrors.InvalidInput("malformed request body"))
		return
	}

	ctx := context.WithoutCancel(r.Context())

	target, err := members.ResolveMemberByID(ctx, roleRequest.MemberID)
	if err != nil {
		writeError(w, err)
		return
	}

	actor, err := members.ResolveMember(ctx, target.ServerID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := members.SetRole(ctx, actor, roleRequest.MemberID, roleRequest.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.MemberRoleChanged, globals.TopicKindServer, updated, updated.ServerID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, updated)
}

func KickMember(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	targetMemberID, err := queryID(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	target, err := members.ResolveMemberByID(ctx, targetMemberID)
	if err != nil {
		writeError(w, err)
		return
	}

	actor, err := members.ResolveMember(ctx, target.ServerID, profileID)
	if err != nil {
		writeError(w, err)
		return
	}

	removed, err := members.RemoveMember(ctx, actor, targetMemberID)
	if err != nil {
		writeError(w, err)
		return
	}

	err = hub.Emit(hub.MemberRemoved, globals.TopicKindServer, removed, removed.ServerID)
	if err != nil {
		sugar.Error(err)
	}

	writeJSON(w, removed)
}
