package framing

import (
	"bytes"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceive_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"text", []byte("LOGINA~alice~pw1")},
		{"only delimiters", []byte("~~~~~~~~~~")},
		{"header-looking payload", []byte("00000003~abc")},
		{"binary", []byte{0, 1, 2, 0xff, '~', 0}},
		{"large", bytes.Repeat([]byte("xyz~"), 50_000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Send(&buf, tt.payload))
			assert.Equal(t, HeaderSize+len(tt.payload), buf.Len())

			got, err := Receive(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, got)
			assert.Zero(t, buf.Len(), "receive must consume exactly one frame")
		})
	}
}

func TestSend_HeaderFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, []byte("hello")))
	assert.Equal(t, "00000005~hello", buf.String())
}

func TestReceive_BackToBackFrames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, []byte("one")))
	require.NoError(t, Send(&buf, []byte("")))
	require.NoError(t, Send(&buf, []byte("three")))

	for _, want := range []string{"one", "", "three"} {
		got, err := Receive(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	_, err := Receive(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReceive_PartialDataIsNoData(t *testing.T) {
	tests := []struct {
		name string
		wire string
	}{
		{"short header", "0000"},
		{"header without payload", "00000010~"},
		{"truncated payload", "00000010~abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Receive(strings.NewReader(tt.wire))
			assert.ErrorIs(t, err, ErrIncomplete)
			assert.Nil(t, got)
		})
	}
}

func TestReceive_BadHeader(t *testing.T) {
	for _, wire := range []string{"0000000A~x", "00000001#x", "-0000001~x"} {
		_, err := Receive(strings.NewReader(wire))
		assert.ErrorIs(t, err, ErrBadHeader, wire)
	}
}

func TestReceive_OverSocket(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	payload := []byte("DATABL~" + strings.Repeat("A", 4096))
	go func() {
		_ = Send(a, payload)
	}()

	got, err := Receive(b)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSend_TooLarge(t *testing.T) {
	err := Send(io.Discard, make([]byte, MaxPayload+1))
	assert.ErrorIs(t, err, ErrTooLarge)
}
