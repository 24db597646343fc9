package utils

import (
	"strings"
	"testing"

	apperrors "github.com/sefrin/empfehlungslink/internal/errors"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:    "valid identifier",
			value:   "AM123",
			wantErr: false,
		},
		{
			name:    "identifier with dash and underscore",
			value:   "partner-max_1",
			wantErr: false,
		},
		{
			name:    "empty value",
			value:   "",
			wantErr: true,
		},
		{
			name:    "too long",
			value:   strings.Repeat("a", 65),
			wantErr: true,
		},
		{
			name:    "max length is allowed",
			value:   strings.Repeat("a", 64),
			wantErr: false,
		},
		{
			name:    "slash breaks routing",
			value:   "a/b",
			wantErr: true,
		},
		{
			name:    "question mark breaks query",
			value:   "a?b",
			wantErr: true,
		},
		{
			name:    "hash breaks fragment",
			value:   "a#b",
			wantErr: true,
		},
		{
			name:    "percent breaks escaping",
			value:   "a%b",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier("code", tt.value)

			if tt.wantErr {
				if err == nil {
					t.Error("ValidateIdentifier() expected error, got nil")
					return
				}

				if !apperrors.IsValidationError(err) {
					t.Errorf("ValidateIdentifier() expected validation error, got %T", err)
				}

				validationErr := apperrors.GetValidationError(err)
				if validationErr.Field != "code" {
					t.Errorf("ValidateIdentifier() field = %s, want code", validationErr.Field)
				}
			} else if err != nil {
				t.Errorf("ValidateIdentifier() unexpected error = %v", err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain value",
			input:    "AM123",
			expected: "AM123",
		},
		{
			name:     "surrounding whitespace",
			input:    "  AM123  ",
			expected: "AM123",
		},
		{
			name:     "control characters removed",
			input:    "AM\x00123\x1f",
			expected: "AM123",
		},
		{
			name:     "umlauts survive",
			input:    "Müller",
			expected: "Müller",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeInput(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeInput(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
