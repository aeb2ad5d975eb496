package history

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/ocr-extract/internal/extraction"
	"github.com/zombor/ocr-extract/internal/provider"
)

const dayLayout = "2006-01-02"

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service keeps a history of extraction outcomes
type Service struct {
	db          DB
	storage     Storage
	idGenerator extraction.IDGenerator
	timeSource  extraction.TimeSource
}

// NewService creates a new Service. storage may be nil, in which case source documents are not archived.
func NewService(db DB, storage Storage) *Service {
	return NewServiceWithDeps(db, storage, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen extraction.IDGenerator, timeSrc extraction.TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RecordResult stores a completed extraction and archives the submitted document.
// An archive failure is logged and the result is still recorded.
func (s *Service) RecordResult(req *extraction.Request, result *extraction.Result) (*Record, error) {
	record := &Record{
		Result:    result,
		CreatedAt: s.timeSource.Now(),
	}

	if s.storage != nil {
		contentType, data, err := provider.DecodePayload(req.ImageBase64, req.FileType)
		if err != nil {
			slog.Warn("Failed to decode document for archiving", "id", result.ID, "error", err)
		} else {
			savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", result.ID, sanitizeFilename(req.FileName)), data)
			if err != nil {
				slog.Warn("Failed to archive document", "id", result.ID, "error", err)
			} else {
				record.Filename = savedPath
				record.ContentType = contentType
			}
		}
	}

	if err := s.db.SaveRecord(record); err != nil {
		if record.Filename != "" {
			if delErr := s.storage.Delete(record.Filename); delErr != nil {
				slog.Warn("Failed to remove archived document after save failure",
					"id", result.ID,
					"path", record.Filename,
					"error", delErr,
				)
			}
		}
		return nil, fmt.Errorf("saving result to database: %w", err)
	}

	return record, nil
}

// RecordFailure stores a failed extraction job
func (s *Service) RecordFailure(req *extraction.Request, extractErr *extraction.Error) (*Failure, error) {
	failure := &Failure{
		ID:        s.idGenerator.Generate(),
		FileName:  req.FileName,
		FileType:  req.FileType,
		FileSize:  req.FileSize,
		Code:      extractErr.Code,
		Message:   extractErr.Message,
		Status:    extraction.StatusFailed,
		CreatedAt: s.timeSource.Now(),
	}

	if err := s.db.SaveFailure(failure); err != nil {
		return nil, fmt.Errorf("saving failure to database: %w", err)
	}
	return failure, nil
}

// GetResult retrieves a stored result by ID
func (s *Service) GetResult(id string) (*extraction.Result, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("getting result: %w", err)
	}
	return record.Result, nil
}

// ListResults returns stored results newest first; limit <= 0 returns all of them
func (s *Service) ListResults(limit int) ([]*extraction.Result, error) {
	records, err := s.listRecords()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	results := make([]*extraction.Result, 0, len(records))
	for _, record := range records {
		results = append(results, record.Result)
	}
	return results, nil
}

// GetResultFile retrieves the archived source document of a result
func (s *Service) GetResultFile(id string) ([]byte, string, error) {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting result: %w", err)
	}
	if s.storage == nil || record.Filename == "" {
		return nil, "", fmt.Errorf("document for result %s: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(record.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting result file: %w", err)
	}
	return data, record.ContentType, nil
}

// DeleteResult removes a result and its archived document
func (s *Service) DeleteResult(id string) error {
	record, err := s.db.GetRecord(id)
	if err != nil {
		return fmt.Errorf("getting result for deletion: %w", err)
	}

	if s.storage != nil && record.Filename != "" {
		if err := s.storage.Delete(record.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", record.Filename, "error", err)
		}
	}

	if err := s.db.DeleteRecord(id); err != nil {
		return fmt.Errorf("deleting result from database: %w", err)
	}
	return nil
}

// ListFailures returns failed jobs newest first; limit <= 0 returns all of them
func (s *Service) ListFailures(limit int) ([]*Failure, error) {
	failures, err := s.db.ListFailures()
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}

	sort.SliceStable(failures, func(i, j int) bool {
		return failures[i].CreatedAt.After(failures[j].CreatedAt)
	})
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}
	return failures, nil
}

// Statistics returns one entry per UTC day for the last days days, oldest first, today included
func (s *Service) Statistics(days int) ([]DailyStatistics, error) {
	if days <= 0 {
		return nil, errors.New("days must be positive")
	}

	records, err := s.listRecords()
	if err != nil {
		return nil, err
	}
	failures, err := s.db.ListFailures()
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}

	today := s.timeSource.Now().UTC()
	stats := make([]DailyStatistics, days)
	index := make(map[string]int, days)
	for i := range stats {
		date := today.AddDate(0, 0, i-days+1).Format(dayLayout)
		stats[i] = DailyStatistics{Date: date, DocumentTypes: map[string]int{}}
		index[date] = i
	}

	for _, record := range records {
		i, ok := index[record.CreatedAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		day := &stats[i]
		day.Successful++
		day.AverageConfidence += record.Result.Confidence
		day.AverageProcessingMs += float64(record.Result.Metadata.ProcessingDurationMs)
		day.DocumentTypes[record.Result.DocumentType]++
	}

	for _, failure := range failures {
		if i, ok := index[failure.CreatedAt.UTC().Format(dayLayout)]; ok {
			stats[i].Failed++
		}
	}

	for i := range stats {
		day := &stats[i]
		day.TotalDocuments = day.Successful + day.Failed
		if day.Successful > 0 {
			day.AverageConfidence /= float64(day.Successful)
			day.AverageProcessingMs /= float64(day.Successful)
		}
	}

	return stats, nil
}

// listRecords returns all records newest first
func (s *Service) listRecords() ([]*Record, error) {
	records, err := s.db.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}
