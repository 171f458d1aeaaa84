package coordinator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeArgsRoundTrip(t *testing.T) {
	args := []string{"-la", "/tmp", "--color=never"}
	require.Equal(t, args, decodeArgs(encodeArgs(args)))
}

func TestEncodeArgsNilBecomesEmptyArray(t *testing.T) {
	require.Equal(t, "[]", encodeArgs(nil))
	require.Equal(t, []string{}, decodeArgs(encodeArgs(nil)))
}

func TestDecodeArgsMalformedReturnsNil(t *testing.T) {
	require.Nil(t, decodeArgs("not json"))
}
