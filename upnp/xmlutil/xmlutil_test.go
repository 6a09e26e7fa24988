package xmlutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterPushTextPop(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteDecl())
	require.NoError(t, w.Push("Envelope", Attr{Name: "encodingStyle", Value: "http://schemas.xmlsoap.org/soap/encoding/"}))
	require.NoError(t, w.Push("Body"))
	require.NoError(t, w.Element("errorCode", "401"))
	require.NoError(t, w.Pop())
	require.NoError(t, w.Pop())
	require.NoError(t, w.Flush())

	out := buf.String()
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8"?>`))
	require.Contains(t, out, `encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"`)
	require.Contains(t, out, "<Body>")
	require.Contains(t, out, "<errorCode>401</errorCode>")
	require.Contains(t, out, "</Body>")
	require.Contains(t, out, "</Envelope>")
}

func TestWriterPopWithNothingOpenPanics(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	require.Panics(t, func() { w.Pop() })
}

func TestReaderReadToStartSkipsDeclAndWhitespace(t *testing.T) {
	r := NewReader(strings.NewReader(`<?xml version="1.0"?>
		<Envelope><Body/></Envelope>`))
	start, err := r.ReadToStart()
	require.NoError(t, err)
	require.Equal(t, "Envelope", start.Name)
}

func TestReaderReadToEndSkipsNestedSubtree(t *testing.T) {
	r := NewReader(strings.NewReader(`<a><b><c>text</c><d/></b><after/></a>`))
	start, err := r.ReadToStart()
	require.NoError(t, err)
	require.Equal(t, "a", start.Name)

	inner, err := r.ReadToStart()
	require.NoError(t, err)
	require.Equal(t, "b", inner.Name)

	require.NoError(t, r.ReadToEnd("b"))

	after, err := r.ReadToStart()
	require.NoError(t, err)
	require.Equal(t, "after", after.Name)
}

func TestReaderReadTextReturnsCharData(t *testing.T) {
	r := NewReader(strings.NewReader(`<errorCode>401</errorCode>`))
	_, err := r.ReadToStart()
	require.NoError(t, err)
	text, err := r.ReadText("errorCode")
	require.NoError(t, err)
	require.Equal(t, "401", text)
}

func TestReaderReadTextRejectsChildElement(t *testing.T) {
	r := NewReader(strings.NewReader(`<a><b/></a>`))
	_, err := r.ReadToStart()
	require.NoError(t, err)
	_, err = r.ReadText("a")
	require.Error(t, err)
}

func TestStartAttrLooksUpByLocalName(t *testing.T) {
	r := NewReader(strings.NewReader(`<item id="5" kind="movie"/>`))
	start, err := r.ReadToStart()
	require.NoError(t, err)
	id, ok := start.Attr("id")
	require.True(t, ok)
	require.Equal(t, "5", id)
	_, ok = start.Attr("missing")
	require.False(t, ok)
}

func TestNamespacedTagsMatchByLocalName(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Push("s:Envelope"))
	require.NoError(t, w.Push("s:Body"))
	require.NoError(t, w.Pop())
	require.NoError(t, w.Pop())
	require.NoError(t, w.Flush())

	r := NewReader(strings.NewReader(buf.String()))
	start, err := r.ReadToStart()
	require.NoError(t, err)
	require.Equal(t, "Envelope", start.Name)
	require.NoError(t, r.ReadToEnd("Envelope"))
}
