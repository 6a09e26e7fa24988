package soap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const browseURN = "urn:schemas-upnp-org:service:ContentDirectory:1"

func TestEncodeDecodeActionRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	args := []Argument{
		{Name: "ObjectID", Value: "0"},
		{Name: "BrowseFlag", Value: "BrowseDirectChildren"},
		{Name: "StartingIndex", Value: "0"},
		{Name: "RequestedCount", Value: "50"},
	}
	require.NoError(t, EncodeRequest(&buf, browseURN, "Browse", args))

	act, err := DecodeAction(&buf)
	require.NoError(t, err)
	require.Equal(t, "Browse", act.Name)
	require.Equal(t, browseURN, act.ServiceURN)
	value, ok := act.Arg("BrowseFlag")
	require.True(t, ok)
	require.Equal(t, "BrowseDirectChildren", value)
	require.Len(t, act.Args, 4)
}

func TestEncodeDecodeActionResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	args := []Argument{
		{Name: "Result", Value: "<DIDL-Lite/>"},
		{Name: "NumberReturned", Value: "0"},
		{Name: "TotalMatches", Value: "0"},
		{Name: "UpdateID", Value: "1"},
	}
	require.NoError(t, EncodeActionResponse(&buf, browseURN, "Browse", args))
	require.True(t, strings.Contains(buf.String(), "BrowseResponse"))

	act, err := DecodeActionResponse(&buf)
	require.NoError(t, err)
	require.Equal(t, "Browse", act.Name, "the Response suffix must be stripped")
	require.Equal(t, browseURN, act.ServiceURN)
	result, ok := act.Arg("Result")
	require.True(t, ok)
	require.Equal(t, "<DIDL-Lite/>", result)
}

func TestDecodeActionResponseRejectsMissingSuffix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRequest(&buf, browseURN, "Browse", nil))
	_, err := DecodeActionResponse(&buf)
	require.Error(t, err)
}

func TestDecodeActionRejectsWrongRoot(t *testing.T) {
	_, err := DecodeAction(strings.NewReader(`<NotAnEnvelope/>`))
	require.Error(t, err)
}
