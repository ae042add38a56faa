// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdf

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func params(d dict) Value {
	return Value{&Reader{}, objptr{}, d}
}

func decode(t *testing.T, data []byte, filter string, param Value) ([]byte, error) {
	t.Helper()
	rc := &readCloser{}
	rd, err := applyFilter(bytes.NewReader(data), filter, param, rc)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rd)
}

func TestApplyFilter(t *testing.T) {
	var a85 bytes.Buffer
	enc := ascii85.NewEncoder(&a85)
	enc.Write([]byte("hi there!"))
	enc.Close()

	cases := []struct {
		name   string
		data   []byte
		filter string
		want   string
	}{
		{"flate", deflate(t, []byte("hello")), "FlateDecode", "hello"},
		{"ascii85", append(a85.Bytes(), "~>"...), "ASCII85Decode", "hi there!"},
		{"ascii85 framed", append(append([]byte("<~"), a85.Bytes()...), "~>"...), "A85", "hi there!"},
		{"ascii hex", []byte("48 65 6c\n6C 6f>"), "ASCIIHexDecode", "Hello"},
		{"ascii hex odd digits", []byte("4142 7>"), "AHx", "AB\x70"},
		{"run length", []byte{2, 'a', 'b', 'c', 254, 'x', 128, 'z'}, "RunLengthDecode", "abcxxx"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decode(t, tc.data, tc.filter, Value{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}

	_, err := decode(t, []byte("abc"), "JPXDecode", Value{})
	assert.ErrorIs(t, err, ErrUnsupportedFilter)
}

func TestPNGPredictor(t *testing.T) {
	rows := []byte{
		1, 10, 5, 5, // Sub
		2, 1, 1, 1, // Up
		3, 4, 2, 0, // Average
		4, 1, 1, 1, // Paeth
		0, 7, 8, 9, // None
	}
	p := params(dict{name("Predictor"): int64(12), name("Columns"): int64(3)})
	got, err := decode(t, deflate(t, rows), "FlateDecode", p)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		10, 15, 20,
		11, 16, 21,
		9, 14, 17,
		10, 15, 18,
		7, 8, 9,
	}, got)
}

func TestPNGPredictorMalformedRow(t *testing.T) {
	p := params(dict{name("Predictor"): int64(12), name("Columns"): int64(2)})
	_, err := decode(t, deflate(t, []byte{9, 1, 1}), "FlateDecode", p)
	assert.Error(t, err)
}

func TestTIFFPredictor(t *testing.T) {
	p := params(dict{name("Predictor"): int64(2), name("Columns"): int64(3)})
	got, err := decode(t, deflate(t, []byte{1, 1, 1, 5, 0, 0}), "FlateDecode", p)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 5, 5, 5}, got)
}

func TestAlphaReaderStopsAtEndMarker(t *testing.T) {
	got, err := io.ReadAll(newAlphaReader(bytes.NewReader([]byte("<~9jqo^~>trailing"))))
	require.NoError(t, err)
	assert.Equal(t, "9jqo^", string(got))
}

func TestFilterChainFromStream(t *testing.T) {
	var a85 bytes.Buffer
	enc := ascii85.NewEncoder(&a85)
	enc.Write(deflate(t, []byte("0 0 m 10 10 l S")))
	enc.Close()
	a85.WriteString("~>")
	data := a85.Bytes()

	r := &Reader{f: bytes.NewReader(data), end: int64(len(data))}
	v := Value{r, objptr{}, stream{hdr: dict{
		name("Length"): int64(len(data)),
		name("Filter"): array{name("ASCII85Decode"), name("FlateDecode")},
	}}}
	rc := v.Reader()
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "0 0 m 10 10 l S", string(got))
}
