package fault_test

import (
	"fmt"
	"testing"

	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/stretchr/testify/require"
)

func TestRetryable(t *testing.T) {
	require.True(t, fault.Retryable(fmt.Errorf("start activity: %w", fault.ErrNetwork)))
	require.True(t, fault.Retryable(fault.ErrTimeout))
	require.False(t, fault.Retryable(fault.ErrSessionExpired))
	require.False(t, fault.Retryable(fault.ErrIllegalTransition))
	require.False(t, fault.Retryable(nil))
}
