package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"isbn13 with hyphens", "978-0-306-40615-7", "9780306406157"},
		{"isbn10 converted", "0-306-40615-2", "9780306406157"},
		{"isbn10 with X check digit", "0-8044-2957-X", "9780804429573"},
		{"lowercase x", "080442957x", "9780804429573"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeISBN(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeISBNRejects(t *testing.T) {
	for _, in := range []string{"", "12345", "978-0-306-40615-8", "0-306-40615-3", "97803064061X7", "abcdefghij"} {
		_, err := NormalizeISBN(in)
		assert.ErrorIs(t, err, apperror.ErrInvalidInput, in)
	}
}
