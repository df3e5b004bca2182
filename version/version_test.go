package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCurrent(t *testing.T) {
	info := Current()
	require.Equal(t, Version, info.Plasma)
	require.Equal(t, RPCSemVer, info.RPC)
	require.EqualValues(t, 1, info.BlockProtocol)
}
