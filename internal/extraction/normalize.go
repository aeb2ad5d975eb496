package extraction

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultConfidence marks a result as unverified rather than failed or certain
	DefaultConfidence = 0.5
	DefaultCurrency   = "INR"
	DefaultLanguage   = "en"
	DefaultQuality    = "medium"

	// PreprocessAI is always reported; enhancement happens inside the provider
	PreprocessAI = "ai-enhancement"
)

// DefaultFields returns the all-null skeleton used for anything the provider omitted
func DefaultFields() ExtractedFields {
	return ExtractedFields{
		Amount: Amount{Currency: DefaultCurrency},
		Custom: []CustomField{},
	}
}

// normalize maps a parsed provider document over the result defaults.
// Identity, file metadata and timing are filled in by the caller.
func normalize(doc map[string]any, wantReminders bool) Result {
	result := Result{
		Status:          StatusCompleted,
		DocumentType:    stringOr(doc["documentType"], DocumentUnknown),
		ExtractedFields: NormalizeFields(doc["extractedFields"]),
		RawText:         stringOr(doc["rawText"], ""),
		Confidence:      DefaultConfidence,
		Metadata: Metadata{
			DetectedLanguages:    stringList(doc["detectedLanguages"]),
			ImageQuality:         DefaultQuality,
			PreprocessingApplied: []string{PreprocessAI},
		},
		Errors: normalizeIssues(doc["errors"]),
	}

	if c := number(doc["confidence"]); c != nil {
		result.Confidence = clamp01(*c)
	}
	if len(result.Metadata.DetectedLanguages) == 0 {
		result.Metadata.DetectedLanguages = []string{DefaultLanguage}
	}
	switch q := stringOr(doc["imageQuality"], ""); q {
	case "low", "medium", "high":
		result.Metadata.ImageQuality = q
	}

	if wantReminders {
		result.ReminderData = &ReminderData{SuggestedReminders: normalizeReminders(doc["suggestedReminders"])}
	}

	return result
}

// NormalizeFields deep-merges the provider's extractedFields block over DefaultFields
func NormalizeFields(v any) ExtractedFields {
	fields := DefaultFields()
	m, ok := v.(map[string]any)
	if !ok {
		return fields
	}

	if vendor, ok := m["vendor"].(map[string]any); ok {
		fields.Vendor = Vendor{
			Name:    str(vendor["name"]),
			Address: str(vendor["address"]),
			Phone:   str(vendor["phone"]),
			Email:   str(vendor["email"]),
			GSTIN:   str(vendor["gstin"]),
			PAN:     str(vendor["pan"]),
		}
	}

	if product, ok := m["product"].(map[string]any); ok {
		fields.Product = Product{
			Name:         str(product["name"]),
			Model:        str(product["model"]),
			SerialNumber: str(product["serialNumber"]),
			Category:     str(product["category"]),
			Quantity:     number(product["quantity"]),
			UnitPrice:    number(product["unitPrice"]),
			TotalPrice:   number(product["totalPrice"]),
		}
	}

	if dates, ok := m["dates"].(map[string]any); ok {
		fields.Dates = Dates{
			PurchaseDate:    str(dates["purchaseDate"]),
			WarrantyExpiry:  str(dates["warrantyExpiry"]),
			ServiceInterval: str(dates["serviceInterval"]),
			NextServiceDue:  str(dates["nextServiceDue"]),
			InvoiceDate:     str(dates["invoiceDate"]),
		}
	}

	if amount, ok := m["amount"].(map[string]any); ok {
		fields.Amount = Amount{
			Subtotal: number(amount["subtotal"]),
			Tax:      number(amount["tax"]),
			Total:    number(amount["total"]),
			Currency: stringOr(amount["currency"], DefaultCurrency),
		}
	}

	if custom, ok := m["custom"].([]any); ok {
		for _, item := range custom {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := stringOr(entry["fieldName"], "")
			if name == "" {
				continue
			}
			confidence := DefaultConfidence
			if c := number(entry["confidence"]); c != nil {
				confidence = clamp01(*c)
			}
			fields.Custom = append(fields.Custom, CustomField{
				FieldName:  name,
				Value:      str(entry["value"]),
				Confidence: confidence,
			})
		}
	}

	return fields
}

func normalizeIssues(v any) []Issue {
	issues := []Issue{}
	list, ok := v.([]any)
	if !ok {
		return issues
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		severity := SeverityWarning
		if stringOr(entry["severity"], "") == string(SeverityError) {
			severity = SeverityError
		}
		issues = append(issues, Issue{
			Code:     stringOr(entry["code"], "PROVIDER_NOTE"),
			Message:  stringOr(entry["message"], ""),
			Field:    str(entry["field"]),
			Severity: severity,
		})
	}
	return issues
}

func normalizeReminders(v any) []Reminder {
	reminders := []Reminder{}
	list, ok := v.([]any)
	if !ok {
		return reminders
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		reminders = append(reminders, Reminder{
			Type:        stringOr(entry["type"], ""),
			Date:        stringOr(entry["date"], ""),
			Description: stringOr(entry["description"], ""),
			Priority:    stringOr(entry["priority"], "medium"),
		})
	}
	return reminders
}

// str converts scalar JSON values to a string pointer; null and containers become nil
func str(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

// stringOr returns v when it is a non-empty string, def otherwise
func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

// number accepts JSON numbers and numeric strings such as "1,299.00" or "₹ 45"
func number(v any) *float64 {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case string:
		f, err = parseAmount(t)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &f
}

var amountPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

func parseAmount(s string) (float64, error) {
	match := amountPattern.FindString(s)
	if match == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
}

func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
