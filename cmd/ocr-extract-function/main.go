package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/zombor/ocr-extract/internal/config"
	"github.com/zombor/ocr-extract/internal/extraction"
	"github.com/zombor/ocr-extract/internal/server"
)

var (
	handler http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// "OCRExtract" is the entry point name configured for the deployed function
	functions.HTTP("OCRExtract", handleExtract)
}

// main runs the function locally; the deployed runtime only uses the registration in init
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("Function framework error", "error", err)
		os.Exit(1)
	}
}

func handleExtract(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handler, initErr = newHandler()
	})
	if initErr != nil {
		slog.Error("Function initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	// The function is mounted at its own URL, so every path is the extract route
	r.URL.Path = "/api/extract"
	handler.ServeHTTP(w, r)
}

// newHandler builds the extraction handler from OCR_EXTRACT_* environment variables.
// The function never records history.
func newHandler() (http.Handler, error) {
	cfg, _, err := config.Parse("ocr-extract-function", nil)
	if err != nil {
		return nil, err
	}

	logger, _ := config.SetupLogger("", slog.LevelInfo)
	slog.SetDefault(logger)

	p, err := cfg.NewProvider()
	if err != nil {
		if !errors.Is(err, config.ErrMissingCredential) {
			return nil, err
		}
		slog.Error("Provider credential is not configured", "error", err)
	}

	return server.NewServer(extraction.NewService(p, cfg.ConvertDocuments()), nil, cfg.MaxBodyBytes()), nil
}
