package pii

import (
	"encoding/json"
	"log/slog"
	"strings"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor masks sensitive fields before document data is copied into audit entries.
type Redactor struct {
	fieldsToRedact map[string]struct{} // lower-cased field names
	logger         *slog.Logger
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
// Field names match case-insensitively.
func NewRedactor(fields []string, logger *slog.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		field = strings.ToLower(strings.TrimSpace(field))
		if field != "" {
			fieldSet[field] = struct{}{}
		}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact returns a JSON copy of data with sensitive fields replaced, walking
// nested objects and arrays. The input map is not modified. The boolean reports
// whether anything was masked.
func (r *Redactor) Redact(data map[string]any) (json.RawMessage, bool, error) {
	if len(data) == 0 {
		return nil, false, nil
	}

	copied, redacted := r.redactValue(data)
	out, err := json.Marshal(copied)
	if err != nil {
		r.logger.Error("failed to marshal redacted audit metadata", "error", err)
		return nil, false, err
	}
	return out, redacted, nil
}

func (r *Redactor) redactValue(v any) (any, bool) {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		redacted := false
		for k, item := range val {
			if _, ok := r.fieldsToRedact[strings.ToLower(k)]; ok {
				out[k] = RedactedPlaceholder
				redacted = true
				continue
			}
			child, childRedacted := r.redactValue(item)
			out[k] = child
			redacted = redacted || childRedacted
		}
		return out, redacted
	case []any:
		out := make([]any, len(val))
		redacted := false
		for i, item := range val {
			child, childRedacted := r.redactValue(item)
			out[i] = child
			redacted = redacted || childRedacted
		}
		return out, redacted
	default:
		return v, false
	}
}
