package handlers

import (
	"database/sql"
	"net/http"

	"chatcord-backend/internal/apperrors"
	"chatcord-backend/internal/models"
)

func GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID := profileIDFrom(r)

	var profile models.Profile
	err := db.QueryRowContext(r.Context(),
		"SELECT id, email, username, display_name, picture FROM profiles WHERE id = ?", profileID).
		Scan(&profile.ID, &profile.Email, &profile.UserName, &profile.DisplayName, &profile.Picture)
	if err == sql.ErrNoRows {
		writeError(w, apperrors.NotFound("profile not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, profile)
}
