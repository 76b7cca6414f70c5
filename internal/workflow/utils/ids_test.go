package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProjectCode(t *testing.T) {
	pattern := regexp.MustCompile(`^PRJ-\d{5}-\d{4}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewProjectCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should vary")
}
