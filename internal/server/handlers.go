package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/zombor/ocr-extract/internal/extraction"
	"github.com/zombor/ocr-extract/internal/history"
)

const (
	defaultResultsLimit  = 50
	defaultFailuresLimit = 20
	defaultStatsDays     = 7
	maxListLimit         = 1000
	maxStatsDays         = 366

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleExtract runs one extraction and records its outcome when history is enabled
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	receivedAt := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var req extraction.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("Request body too large", "limit_bytes", tooLarge.Limit)
			writeExtractionError(w, extraction.NewProcessingError(
				fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge))
			return
		}
		slog.Error("Error decoding request", "error", err)
		writeExtractionError(w, extraction.NewProcessingError(fmt.Errorf("invalid request body: %w", err), 0))
		return
	}
	req.ReceivedAt = receivedAt

	result, err := s.extractor.Extract(r.Context(), &req)
	if err != nil {
		extractErr := extraction.AsError(err)
		slog.Error("Extraction failed",
			"filename", req.FileName,
			"code", extractErr.Code,
			"status", extractErr.Status,
			"error", err,
		)
		if s.history != nil {
			if _, recErr := s.history.RecordFailure(&req, extractErr); recErr != nil {
				slog.Error("Error recording failure", "error", recErr)
			}
		}
		writeExtractionError(w, extractErr)
		return
	}

	if s.history != nil {
		if _, recErr := s.history.RecordResult(&req, result); recErr != nil {
			slog.Error("Error recording result", "id", result.ID, "error", recErr)
		}
	}

	writeData(w, result)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultResultsLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	results, err := s.history.ListResults(limit)
	if err != nil {
		slog.Error("Error listing results", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
		return
	}
	writeData(w, results)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.history.GetResult(r.PathValue("id"))
	if err != nil {
		s.historyError(w, "Result not found", err)
		return
	}
	writeData(w, result)
}

func (s *Server) handleGetResultFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.history.GetResultFile(r.PathValue("id"))
	if err != nil {
		s.historyError(w, "File not found", err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.history.DeleteResult(r.PathValue("id")); err != nil {
		s.historyError(w, "Result not found", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultFailuresLimit, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	failures, err := s.history.ListFailures(limit)
	if err != nil {
		slog.Error("Error listing failures", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
		return
	}
	writeData(w, failures)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultStatsDays, maxStatsDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	stats, err := s.history.Statistics(days)
	if err != nil {
		slog.Error("Error computing statistics", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
		return
	}
	writeData(w, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.history.ExportXLSX()
	if err != nil {
		slog.Error("Error exporting results", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
		return
	}

	filename := fmt.Sprintf("ocr-results-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// historyError maps history.ErrNotFound to 404 and everything else to 500
func (s *Server) historyError(w http.ResponseWriter, notFoundMessage string, err error) {
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, notFoundMessage)
		return
	}
	slog.Error("History error", "error", err)
	writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
}

// queryInt reads a positive integer query parameter, returning def when absent and capping at ceiling
func queryInt(r *http.Request, name string, def, ceiling int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	if n > ceiling {
		n = ceiling
	}
	return n, nil
}
