package api

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is returned by GET / and POST /api/send.
type StatusResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message"`
}

// DataResponse is returned by GET /api/hello and POST /api/greet.
type DataResponse struct {
	Data string `json:"data"`
}

// MessageResponse is one element of GET /api/messages.
type MessageResponse struct {
	ID      int64  `json:"id" example:"1"`
	Name    string `json:"name" example:"Ada"`
	Content string `json:"content" example:"hi"`
}

// ValidationErrorResponse is returned for bodies that do not match the request schema.
type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

// ErrorResponse is returned for server-side failures.
type ErrorResponse struct {
	Detail string `json:"detail" example:"Internal Server Error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
