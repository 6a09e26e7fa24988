package soap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFaultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	f := &Fault{Code: ErrArgumentValueOutOfRange, Description: "StartingIndex out of range"}
	require.NoError(t, EncodeFault(&buf, f))

	decoded, err := DecodeFault(&buf)
	require.NoError(t, err)
	require.Equal(t, ErrArgumentValueOutOfRange, decoded.Code)
	require.Equal(t, "StartingIndex out of range", decoded.Description)
}

func TestEncodeDecodeFaultWithoutDescription(t *testing.T) {
	var buf bytes.Buffer
	f := &Fault{Code: ErrActionFailed}
	require.NoError(t, EncodeFault(&buf, f))

	decoded, err := DecodeFault(&buf)
	require.NoError(t, err)
	require.Equal(t, ErrActionFailed, decoded.Code)
	require.Empty(t, decoded.Description)
}

func TestFaultErrorMessage(t *testing.T) {
	f := &Fault{Code: ErrInvalidAction}
	require.Contains(t, f.Error(), "401")

	f2 := &Fault{Code: ErrInvalidArguments, Description: "bad args"}
	require.Contains(t, f2.Error(), "bad args")
}
