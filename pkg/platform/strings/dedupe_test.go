package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t,
		[]string{"watchman", "opensanctions"},
		DedupeAndTrimLower([]string{" Watchman ", "watchman", "", "OpenSanctions"}),
	)

	var empty []string
	assert.Equal(t, empty, DedupeAndTrimLower(nil))
}
