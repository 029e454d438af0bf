package statusmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oculairmedia/hvbsync/internal/types"
)

func TestHStatusRoundTripsThroughClosed(t *testing.T) {
	require.Equal(t, types.StatusClosed, HStatusToNormalized("Done"))
	require.Equal(t, "Done", NormalizedToHStatus(types.StatusClosed))
}

func TestForwardableBStatusesExcludesBareOpen(t *testing.T) {
	require.False(t, ForwardableBStatuses[types.StatusOpen])
	require.True(t, ForwardableBStatuses[types.StatusClosed])
	require.True(t, ForwardableBStatuses[types.StatusInProgress])
}

func TestPriorityToNumericDefaultsToMedium(t *testing.T) {
	require.Equal(t, types.PriorityHighest, PriorityToNumeric("Highest"))
	require.Equal(t, types.PriorityMedium, PriorityToNumeric("unrecognized"))
}
