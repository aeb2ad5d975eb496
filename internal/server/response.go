package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zombor/ocr-extract/internal/extraction"
)

// Codes for failures of the history routes; extraction failures use extraction.Code
const (
	codeNotFound       extraction.Code = "NOT_FOUND"
	codeInvalidRequest extraction.Code = "INVALID_REQUEST"
	codeInternal       extraction.Code = "INTERNAL_ERROR"
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorDetail struct {
	Code    extraction.Code `json:"code"`
	Message string          `json:"message"`
}

type errorResponse struct {
	Success    bool        `json:"success"`
	Error      errorDetail `json:"error"`
	RawContent string      `json:"rawContent,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code extraction.Code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// writeExtractionError renders the failure envelope; rawContent is only present for PARSE_ERROR
func writeExtractionError(w http.ResponseWriter, e *extraction.Error) {
	resp := errorResponse{Error: errorDetail{Code: e.Code, Message: e.Message}}
	if e.Code == extraction.CodeParse {
		resp.RawContent = e.RawContent
	}
	writeJSON(w, e.Status, resp)
}
