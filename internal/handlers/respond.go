package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"chatcord-backend/internal/apperrors"
)

type errorBody struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// writeError answers with the taxonomy code and a stable machine-readable
// body. Internal causes are logged, never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	if code == apperrors.CodeInternal {
		sugar.Error(err)
	} else {
		sugar.Debug(err)
	}

	body := errorBody{Code: code, Message: "internal error"}
	var appErr *apperrors.AppError
	if code != apperrors.CodeInternal && errors.As(err, &appErr) {
		body.Message = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	if encodeErr := json.NewEncoder(w).Encode(body); encodeErr != nil {
		sugar.Error(encodeErr)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		sugar.Error(err)
	}
}

func queryID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidInput("invalid " + name)
	}
	return id, nil
}
