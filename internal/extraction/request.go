package extraction

import (
	"strings"
	"time"

	"github.com/zombor/ocr-extract/internal/provider"
)

// Request is the inbound extraction request as sent by the client
type Request struct {
	ImageBase64 string   `json:"imageBase64"`
	FileName    string   `json:"fileName"`
	FileType    string   `json:"fileType"`
	FileSize    int64    `json:"fileSize"`
	Options     *Options `json:"options,omitempty"`

	// ReceivedAt is when the transport started reading the request. Processing time is
	// measured from here; when zero, Extract starts the clock itself.
	ReceivedAt time.Time `json:"-"`
}

// Options tune a single extraction
type Options struct {
	Languages        []string `json:"language,omitempty"`
	DocumentTypeHint string   `json:"documentTypeHint,omitempty"`
	// ExtractReminders defaults to true; only an explicit false disables reminders
	ExtractReminders *bool `json:"extractReminders,omitempty"`
}

// Validate rejects requests that carry no document payload
func (r *Request) Validate() error {
	if strings.TrimSpace(r.ImageBase64) == "" {
		return newError(CodeMissingImage, nil)
	}
	return nil
}

// Languages returns the requested languages or the defaults
func (r *Request) Languages() []string {
	if r.Options == nil || len(r.Options.Languages) == 0 {
		return provider.DefaultLanguages
	}
	return r.Options.Languages
}

// DocumentTypeHint returns the caller's hint, empty when absent
func (r *Request) DocumentTypeHint() string {
	if r.Options == nil {
		return ""
	}
	return r.Options.DocumentTypeHint
}

// WantsReminders is false only when the caller explicitly disabled reminders
func (r *Request) WantsReminders() bool {
	return r.Options == nil || r.Options.ExtractReminders == nil || *r.Options.ExtractReminders
}
