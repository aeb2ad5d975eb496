package history

import (
	"time"

	"github.com/zombor/ocr-extract/internal/extraction"
)

// Record is a completed extraction together with its archived source document
type Record struct {
	Result      *extraction.Result `json:"result"`
	Filename    string             `json:"filename,omitempty"` // Path in Storage, empty when archiving failed
	ContentType string             `json:"contentType,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// Failure is a failed extraction job
type Failure struct {
	ID        string            `json:"id"`
	FileName  string            `json:"fileName"`
	FileType  string            `json:"fileType"`
	FileSize  int64             `json:"fileSize"`
	Code      extraction.Code   `json:"code"`
	Message   string            `json:"message"`
	Status    extraction.Status `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// DailyStatistics aggregates one calendar day (UTC) of extraction activity
type DailyStatistics struct {
	Date                string         `json:"date"` // YYYY-MM-DD
	TotalDocuments      int            `json:"totalDocuments"`
	Successful          int            `json:"successful"`
	Failed              int            `json:"failed"`
	AverageConfidence   float64        `json:"averageConfidence"`
	AverageProcessingMs float64        `json:"averageProcessingMs"`
	DocumentTypes       map[string]int `json:"documentTypes"`
}
