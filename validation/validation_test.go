package validation_test

import (
	"strings"
	"testing"

	"github.com/nasermirzaei89/snapfeed/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "https", input: "https://res.cloudinary.com/demo/image/upload/a.jpg", valid: true},
		{name: "http", input: "http://example.com/a.png", valid: true},
		{name: "empty", input: "", valid: false},
		{name: "blank", input: "   ", valid: false},
		{name: "relative", input: "/images/a.png", valid: false},
		{name: "other scheme", input: "ftp://example.com/a.png", valid: false},
		{name: "data url", input: "data:image/png;base64,AAAA", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validation.HTTPURL("imageUrl", tt.input)
			if tt.valid {
				require.NoError(t, err)

				return
			}

			validationErr := &validation.Error{}
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "imageUrl", validationErr.Field)
		})
	}
}

func TestMaxLength(t *testing.T) {
	t.Parallel()

	require.NoError(t, validation.MaxLength("text", strings.Repeat("é", 10), 10))
	require.Error(t, validation.MaxLength("text", strings.Repeat("é", 11), 10))
}

func TestFirst(t *testing.T) {
	t.Parallel()

	err := validation.First(
		nil,
		validation.Required("authorId", ""),
		validation.Required("text", ""),
	)

	validationErr := &validation.Error{}
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "authorId", validationErr.Field)
	assert.NoError(t, validation.First())
}
