package sentinel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinctThroughWrapping(t *testing.T) {
	all := []error{ErrNotFound, ErrConflict, ErrUnavailable, ErrLocked}
	for i, target := range all {
		wrapped := fmt.Errorf("load pass 1234567: %w", target)
		for j, other := range all {
			assert.Equal(t, i == j, errors.Is(wrapped, other), "%v vs %v", target, other)
		}
	}
}
