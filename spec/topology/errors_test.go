package topology

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClassification(t *testing.T) {
	as := require.New(t)

	as.False(ErrorIsRetryable(ErrStaleConfirmation))
	as.False(ErrorIsRetryable(ErrUnknownCache))
	as.False(ErrorIsRetryable(ErrNoMembers))
	as.True(ErrorIsRetryable(ErrExecutorStopped))

	as.False(ErrorIsRetryable(errors.New("some other error")))
}

func TestErrorWrapping(t *testing.T) {
	as := require.New(t)

	wrapped := fmt.Errorf("%w: received topology id 3, expected 5", ErrStaleConfirmation)
	as.ErrorIs(wrapped, ErrStaleConfirmation)
}
