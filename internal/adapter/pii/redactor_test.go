package pii

import (
	"encoding/json"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func TestRedactor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redactor := NewRedactor([]string{"apiKey", "password"}, logger)

	tests := []struct {
		name           string
		input          map[string]any
		expected       string
		expectRedacted bool
	}{
		{
			name:           "Redact single field",
			input:          map[string]any{"apiKey": "vsd_abc", "name": "Acme"},
			expected:       `{"apiKey":"[REDACTED]","name":"Acme"}`,
			expectRedacted: true,
		},
		{
			name:           "Case insensitive match",
			input:          map[string]any{"APIKEY": "vsd_abc", "Password": "hunter2"},
			expected:       `{"APIKEY":"[REDACTED]","Password":"[REDACTED]"}`,
			expectRedacted: true,
		},
		{
			name:           "Nested objects and arrays",
			input:          map[string]any{"profile": map[string]any{"password": "x"}, "keys": []any{map[string]any{"apiKey": "k"}}},
			expected:       `{"keys":[{"apiKey":"[REDACTED]"}],"profile":{"password":"[REDACTED]"}}`,
			expectRedacted: true,
		},
		{
			name:           "No fields to redact",
			input:          map[string]any{"status": "Active", "count": float64(3)},
			expected:       `{"count":3,"status":"Active"}`,
			expectRedacted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, redacted, err := redactor.Redact(tt.input)
			if err != nil {
				t.Fatalf("Redact() error = %v", err)
			}
			if redacted != tt.expectRedacted {
				t.Errorf("redacted got = %v, want %v", redacted, tt.expectRedacted)
			}

			var got, want any
			if err := json.Unmarshal(out, &got); err != nil {
				t.Fatalf("failed to unmarshal output: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.expected), &want); err != nil {
				t.Fatalf("failed to unmarshal expected: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("metadata mismatch: got %s, want %s", out, tt.expected)
			}
		})
	}
}

func TestRedactor_DoesNotMutateInput(t *testing.T) {
	redactor := NewRedactor([]string{"apiKey"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	input := map[string]any{"apiKey": "vsd_abc"}

	if _, _, err := redactor.Redact(input); err != nil {
		t.Fatalf("Redact() error = %v", err)
	}
	if input["apiKey"] != "vsd_abc" {
		t.Errorf("input was modified: %v", input)
	}
}

func TestRedactor_Empty(t *testing.T) {
	redactor := NewRedactor(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, redacted, err := redactor.Redact(nil)
	if err != nil || redacted || out != nil {
		t.Errorf("expected empty result, got %s %v %v", out, redacted, err)
	}
}
