package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterContent(t *testing.T) {
	ms := NewModerationService(nil)

	tests := []struct {
		text   string
		ok     bool
		reason string
	}{
		{"Fresh tomatoes, harvested this morning.", true, ""},
		{"", true, ""},
		{"This seller is a scammer", false, "inappropriate_language"},
		{"Order at www.cheap-maize.com now", false, "url_not_allowed"},
		{"Email me at kofi@example.com", false, "contact_info_not_allowed"},
		{"Call +233 24 555 0199 for more", false, "contact_info_not_allowed"},
		{"Sooooo good!!!!", false, "spam_detected"},
		{"FRESH MAIZE TODAY ORDER QUICKLY", false, "excessive_caps"},
		{"Grade A cassava, 50 kg bags, 1000 in stock", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ok, reason := ms.FilterContent(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckWrapsRejection(t *testing.T) {
	ms := NewModerationService(nil)
	err := ms.Check("visit https://spam.example")
	assert.ErrorIs(t, err, ErrContentRejected)
	assert.Contains(t, err.Error(), "Links are not allowed")
	assert.NoError(t, ms.Check("good yams"))
}
