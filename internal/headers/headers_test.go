package headers

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test: Valid single header
func Test_Valid_Single_Header(t *testing.T) {
	headers := NewHeaders()
	// Mixed case key should be normalized to lowercase in map
	data := []byte("HoSt: localhost:7979\r\n\r\n")
	n, done, err := headers.Parse(data)
	require.NoError(t, err)
	require.NotNil(t, headers)
	assert.Equal(t, "localhost:7979", headers["host"])
	// Consume only the first CRLF-terminated line, not the trailing CRLF
	assert.Equal(t, 22, n)
	assert.False(t, done)
}

// Test: Valid single header with extra whitespace
func Test_Valid_Single_Header_With_Extra_Whitespace(t *testing.T) {
	headers := NewHeaders()
	data := []byte(" hOsT:    localhost:7979   \r\n\r\n")
	n, done, err := headers.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "localhost:7979", headers["host"])
	exp := bytes.Index(data, []byte("\r\n")) + 2
	assert.Equal(t, exp, n)
	assert.False(t, done)
}

// Test: Valid 2 headers with existing headers
func Test_Valid_Two_Headers_With_Existing(t *testing.T) {
	headers := NewHeaders()
	headers["existing"] = "foo"

	data := []byte("HOST: localhost:7979\r\nUser-AGENT: curl\r\n\r\n")

	n1, done1, err1 := headers.Parse(data)
	require.NoError(t, err1)
	assert.False(t, done1)
	assert.Equal(t, "localhost:7979", headers["host"])
	assert.Equal(t, "foo", headers["existing"])

	n2, done2, err2 := headers.Parse(data[n1:])
	require.NoError(t, err2)
	assert.False(t, done2)
	assert.Equal(t, "curl", headers["user-agent"])

	n3, done3, err3 := headers.Parse(data[n1+n2:])
	require.NoError(t, err3)
	assert.True(t, done3)
	assert.Equal(t, 2, n3)
}

// Test: Valid done (empty line)
func Test_Valid_Done(t *testing.T) {
	headers := NewHeaders()
	n, done, err := headers.Parse([]byte("\r\n"))
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 2, n)
	assert.Empty(t, headers)
}

// Test: Incomplete line consumes nothing
func Test_Incomplete_Line(t *testing.T) {
	headers := NewHeaders()
	n, done, err := headers.Parse([]byte("Host: local"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, done)
	assert.Empty(t, headers)
}

// Test: Invalid spacing header
func Test_Invalid_Spacing_Header(t *testing.T) {
	headers := NewHeaders()
	data := []byte("       Host : localhost:7979       \r\n\r\n")
	n, done, err := headers.Parse(data)
	require.ErrorIs(t, err, ErrSpaceBefore)
	assert.Equal(t, 0, n)
	assert.False(t, done)
}

// Test: Invalid character in header key
func Test_Invalid_Character_In_Key(t *testing.T) {
	headers := NewHeaders()
	data := []byte("HÂ©st: localhost:7979\r\n\r\n")
	n, done, err := headers.Parse(data)
	require.ErrorIs(t, err, ErrInvalidKeyChar)
	assert.Equal(t, 0, n)
	assert.False(t, done)
}

// Test: Repeated keys are joined
func Test_Repeated_Header_Joined(t *testing.T) {
	headers := NewHeaders()
	data := []byte("Cookie: a=1\r\ncookie: b=2\r\n")
	n, _, err := headers.Parse(data)
	require.NoError(t, err)
	_, _, err = headers.Parse(data[n:])
	require.NoError(t, err)
	assert.Equal(t, "a=1,b=2", headers.Get("Cookie"))
}

func Test_Get_Set_Case_Insensitive(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "application/json")
	assert.Equal(t, "application/json", h.Get("content-type"))
	assert.True(t, h.Has("CONTENT-TYPE"))
	h.Del("Content-type")
	assert.False(t, h.Has("content-type"))
}

func Test_Content_Length(t *testing.T) {
	h := NewHeaders()
	_, ok, err := h.ContentLength()
	require.NoError(t, err)
	assert.False(t, ok)

	h.Set("Content-Length", "42")
	n, ok, err := h.ContentLength()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	for _, bad := range []string{"", "-1", "4 2", "0x10", "99999999999999999999"} {
		h.Set("Content-Length", bad)
		_, ok, err = h.ContentLength()
		assert.True(t, ok, bad)
		assert.Error(t, err, bad)
	}
}

func Test_Has_Token(t *testing.T) {
	h := NewHeaders()
	h.Set("Connection", "Upgrade, Close")
	assert.True(t, h.HasToken("connection", "close"))
	assert.False(t, h.HasToken("connection", "keep-alive"))
}

func Test_Canonical_Key(t *testing.T) {
	assert.Equal(t, "Content-Length", CanonicalKey("content-length"))
	assert.Equal(t, "Access-Control-Allow-Methods", CanonicalKey("access-control-allow-methods"))
	assert.Equal(t, "Server", CanonicalKey("SERVER"))
}

func Test_HTTP_Date(t *testing.T) {
	ts := time.Date(1994, time.November, 6, 8, 49, 37, 0, time.UTC)
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", HTTPDate(ts))

	local := ts.In(time.FixedZone("X", 3600))
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", HTTPDate(local))
	assert.Equal(t, "1994-11-06T08:49:37Z", ISOTime(local))
}

func Test_Client_Addr(t *testing.T) {
	assert.Equal(t, "127.0.0.1", ClientAddr(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}))
	assert.Equal(t, "::1", ClientAddr(&net.TCPAddr{IP: net.IPv6loopback, Port: 80}))
	assert.Equal(t, "-", ClientAddr(nil))
}
