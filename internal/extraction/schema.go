package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CodeSchemaMismatch flags provider values that deviate from the requested output format
const CodeSchemaMismatch = "SCHEMA_MISMATCH"

// providerSchema describes the document the system prompt asks for. Nothing is required:
// omissions are defaulted, so only present-but-malformed values are reported.
func providerSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	nullableNumber := map[string]any{"type": []string{"number", "string", "null"}}
	confidence := map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
	object := func(props map[string]any) map[string]any {
		return map[string]any{"type": []string{"object", "null"}, "properties": props}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documentType":           map[string]any{"type": "string", "enum": DocumentTypes},
			"documentTypeConfidence": confidence,
			"rawText":                map[string]any{"type": []string{"string", "null"}},
			"confidence":             confidence,
			"detectedLanguages": map[string]any{
				"type":  []string{"array", "null"},
				"items": map[string]any{"type": "string"},
			},
			"extractedFields": object(map[string]any{
				"vendor": object(map[string]any{
					"name": nullableString, "address": nullableString, "phone": nullableString,
					"email": nullableString, "gstin": nullableString, "pan": nullableString,
				}),
				"product": object(map[string]any{
					"name": nullableString, "model": nullableString, "serialNumber": nullableString,
					"category": nullableString, "quantity": nullableNumber, "unitPrice": nullableNumber,
					"totalPrice": nullableNumber,
				}),
				"dates": object(map[string]any{
					"purchaseDate": nullableString, "warrantyExpiry": nullableString,
					"serviceInterval": nullableString, "nextServiceDue": nullableString,
					"invoiceDate": nullableString,
				}),
				"amount": object(map[string]any{
					"subtotal": nullableNumber, "tax": nullableNumber, "total": nullableNumber,
					"currency": nullableString,
				}),
				"custom": map[string]any{
					"type": []string{"array", "null"},
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"fieldName":  map[string]any{"type": "string"},
							"confidence": confidence,
						},
					},
				},
			}),
			"suggestedReminders": map[string]any{
				"type": []string{"array", "null"},
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"type":     map[string]any{"type": "string", "enum": []string{"warranty_expiry", "service_due", "payment_due"}},
						"date":     nullableString,
						"priority": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
					},
				},
			},
			"errors": map[string]any{"type": []string{"array", "null"}},
		},
	}
}

var compiledSchema = mustCompileSchema(providerSchema())

func mustCompileSchema(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal provider schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("provider.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add provider schema: %v", err))
	}
	return compiler.MustCompile("provider.json")
}

// checkShape validates the parsed provider document and reports each deviation as a warning
func checkShape(doc map[string]any) []Issue {
	err := compiledSchema.Validate(doc)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Code: CodeSchemaMismatch, Message: err.Error(), Severity: SeverityWarning}}
	}

	var leaves []*jsonschema.ValidationError
	collectLeaves(ve, &leaves)
	sort.SliceStable(leaves, func(i, j int) bool {
		return leaves[i].InstanceLocation < leaves[j].InstanceLocation
	})

	issues := make([]Issue, 0, len(leaves))
	for _, leaf := range leaves {
		field := pointerToField(leaf.InstanceLocation)
		issue := Issue{Code: CodeSchemaMismatch, Message: leaf.Message, Severity: SeverityWarning}
		if field != "" {
			issue.Field = &field
		}
		issues = append(issues, issue)
	}
	return issues
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, ve)
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

// pointerToField turns a JSON pointer such as /extractedFields/amount/total into extractedFields.amount.total
func pointerToField(pointer string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pointer, "/"), "/", ".")
}
