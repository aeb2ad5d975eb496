package extraction

import "time"

// Status of an extraction result
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Document types the provider is asked to choose from
const (
	DocumentInvoice         = "invoice"
	DocumentBill            = "bill"
	DocumentWarrantyCard    = "warranty_card"
	DocumentReceipt         = "receipt"
	DocumentProductManual   = "product_manual"
	DocumentServiceDocument = "service_document"
	DocumentUnknown         = "unknown"
)

// DocumentTypes is the closed set of recognised document types
var DocumentTypes = []string{
	DocumentInvoice,
	DocumentBill,
	DocumentWarrantyCard,
	DocumentReceipt,
	DocumentProductManual,
	DocumentServiceDocument,
	DocumentUnknown,
}

// Severity of a non-fatal issue
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Result is the normalized outcome of one extraction
type Result struct {
	ID              string          `json:"id"`
	Status          Status          `json:"status"`
	DocumentType    string          `json:"documentType"`
	ExtractedFields ExtractedFields `json:"extractedFields"`
	RawText         string          `json:"rawText"`
	Confidence      float64         `json:"confidence"`
	Metadata        Metadata        `json:"metadata"`
	Errors          []Issue         `json:"errors"`
	// ReminderData is nil when reminders were not requested
	ReminderData *ReminderData `json:"reminderData,omitempty"`
}

// ExtractedFields holds the fixed field groups plus free-form custom fields
type ExtractedFields struct {
	Vendor  Vendor        `json:"vendor"`
	Product Product       `json:"product"`
	Dates   Dates         `json:"dates"`
	Amount  Amount        `json:"amount"`
	Custom  []CustomField `json:"custom"`
}

type Vendor struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	GSTIN   *string `json:"gstin"`
	PAN     *string `json:"pan"`
}

type Product struct {
	Name         *string  `json:"name"`
	Model        *string  `json:"model"`
	SerialNumber *string  `json:"serialNumber"`
	Category     *string  `json:"category"`
	Quantity     *float64 `json:"quantity"`
	UnitPrice    *float64 `json:"unitPrice"`
	TotalPrice   *float64 `json:"totalPrice"`
}

// Dates are kept as the provider wrote them; YYYY-MM-DD is requested but not enforced
type Dates struct {
	PurchaseDate    *string `json:"purchaseDate"`
	WarrantyExpiry  *string `json:"warrantyExpiry"`
	ServiceInterval *string `json:"serviceInterval"`
	NextServiceDue  *string `json:"nextServiceDue"`
	InvoiceDate     *string `json:"invoiceDate"`
}

type Amount struct {
	Subtotal *float64 `json:"subtotal"`
	Tax      *float64 `json:"tax"`
	Total    *float64 `json:"total"`
	Currency string   `json:"currency"`
}

type CustomField struct {
	FieldName  string  `json:"fieldName"`
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Metadata describes the processed file and how it was processed
type Metadata struct {
	FileName             string    `json:"fileName"`
	FileType             string    `json:"fileType"`
	FileSize             int64     `json:"fileSize"`
	PageCount            int       `json:"pageCount"`
	ProcessedAt          time.Time `json:"processedAt"`
	ProcessingDurationMs int64     `json:"processingDuration"`
	Engine               string    `json:"ocrEngine"`
	DetectedLanguages    []string  `json:"language"`
	ImageQuality         string    `json:"imageQuality"`
	PreprocessingApplied []string  `json:"preprocessingApplied"`
}

// Issue is a non-fatal problem reported alongside a successful result
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Field    *string  `json:"field"`
	Severity Severity `json:"severity"`
}

type ReminderData struct {
	SuggestedReminders []Reminder `json:"suggestedReminders"`
}

// Reminder is a follow-up event suggested from the extracted dates
type Reminder struct {
	Type        string `json:"type"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// IsKnownDocumentType reports whether t belongs to DocumentTypes
func IsKnownDocumentType(t string) bool {
	for _, known := range DocumentTypes {
		if t == known {
			return true
		}
	}
	return false
}
