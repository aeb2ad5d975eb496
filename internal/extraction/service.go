package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/ocr-extract/internal/provider"
)

// CodePartialDocument flags a multi-page PDF of which only the first page was analysed
const CodePartialDocument = "PARTIAL_DOCUMENT"

// IDGenerator generates unique IDs for results
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random (version 4) UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the extraction pipeline. It holds no mutable state and is safe for concurrent use.
type Service struct {
	provider    provider.Provider
	convert     bool
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service. A nil provider means the deployment has no credential;
// every call then fails with CONFIG_ERROR. With convert set, PDFs and HEIC photos are
// rasterised to PNG before they are sent.
func NewService(p provider.Provider, convert bool) *Service {
	return &Service{
		provider:    p,
		convert:     convert,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(p provider.Provider, convert bool, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		provider:    p,
		convert:     convert,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Extract validates the request, sends the document to the provider once and normalizes the answer.
// Every failure is an *Error; a partial Result is never returned.
func (s *Service) Extract(ctx context.Context, req *Request) (*Result, error) {
	start := req.ReceivedAt
	if start.IsZero() {
		start = s.timeSource.Now()
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.provider == nil {
		slog.Error("Extraction provider is not configured")
		return nil, newError(CodeConfiguration, nil)
	}

	img, err := provider.PrepareImage(req.ImageBase64, req.FileType, s.convert)
	if err != nil {
		slog.Error("Failed to prepare document",
			"filename", req.FileName,
			"file_type", req.FileType,
			"error", err,
		)
		return nil, NewProcessingError(fmt.Errorf("preparing document: %w", err), 0)
	}

	slog.Info("Processing document",
		"filename", req.FileName,
		"file_type", req.FileType,
		"file_size", req.FileSize,
		"mime_type", img.MIMEType,
		"engine", s.provider.Name(),
	)

	content, err := s.provider.Complete(ctx, provider.Prompt{
		System: provider.SystemPrompt,
		User:   provider.UserInstruction(req.DocumentTypeHint(), req.Languages(), req.WantsReminders()),
		Image:  img,
	})
	if err != nil {
		extractErr := providerError(err)
		slog.Error("Provider call failed",
			"filename", req.FileName,
			"code", extractErr.Code,
			"error", err,
		)
		return nil, extractErr
	}

	doc, err := ParseContent(content)
	if err != nil {
		slog.Error("Failed to parse provider response",
			"filename", req.FileName,
			"error", err,
			"content", content,
		)
		return nil, err
	}

	result := normalize(doc, req.WantsReminders())
	result.Errors = append(result.Errors, checkShape(doc)...)
	if img.PageCount > 1 {
		result.Errors = append(result.Errors, Issue{
			Code:     CodePartialDocument,
			Message:  fmt.Sprintf("Only the first of %d pages was analysed", img.PageCount),
			Severity: SeverityWarning,
		})
	}

	now := s.timeSource.Now()
	result.ID = s.idGenerator.Generate()
	result.Metadata.FileName = req.FileName
	result.Metadata.FileType = req.FileType
	result.Metadata.FileSize = req.FileSize
	result.Metadata.PageCount = img.PageCount
	result.Metadata.ProcessedAt = now
	result.Metadata.ProcessingDurationMs = now.Sub(start).Milliseconds()
	result.Metadata.Engine = s.provider.Name()
	result.Metadata.PreprocessingApplied = append(result.Metadata.PreprocessingApplied, img.Preprocessing...)

	slog.Info("Extraction completed",
		"id", result.ID,
		"document_type", result.DocumentType,
		"confidence", result.Confidence,
		"duration_ms", result.Metadata.ProcessingDurationMs,
	)

	return &result, nil
}
