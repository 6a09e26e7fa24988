package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTargetPendingBlocksBelowThreshold(t *testing.T) {
	require.Equal(t, 2, TargetPendingBlocks(0))
	require.Equal(t, 12, TargetPendingBlocks(10))
	require.Equal(t, 21, TargetPendingBlocks(19))
}

func TestTargetPendingBlocksAtOrAboveThreshold(t *testing.T) {
	require.Equal(t, 22, TargetPendingBlocks(20))
	require.Equal(t, 38, TargetPendingBlocks(100))
}
