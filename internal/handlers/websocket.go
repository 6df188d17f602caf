package handlers

import (
	"chatcord-backend/internal/hub"
	"net/http"
)

func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	hub.HandleClient(w, r, profileIDFrom(r))
}
