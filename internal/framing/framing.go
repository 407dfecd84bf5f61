// Package framing implements the length-prefixed transport used on every
// MouseTrap connection.
//
// A frame is an 8-digit zero-padded decimal payload length, the '~'
// delimiter, then the payload itself:
//
//	00000005~hello
//
// Receive either returns one complete payload or an error; a peer that
// disconnects mid-frame never produces truncated data.
package framing

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// HeaderDigits is the number of decimal digits in the length header.
	HeaderDigits = 8
	// HeaderSize is the full header length including the delimiter.
	HeaderSize = HeaderDigits + 1
	// Delimiter separates the length header from the payload.
	Delimiter = '~'
	// MaxPayload is the largest payload the header can describe.
	MaxPayload = 99_999_999
)

var (
	ErrIncomplete = errors.New("connection closed before frame was complete")
	ErrBadHeader  = errors.New("malformed frame header")
	ErrTooLarge   = errors.New("payload too large for frame header")
)

// Send writes payload as a single frame. The header and payload go out in one
// Write call so concurrent writers on distinct connections never interleave
// partial frames.
func Send(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return ErrTooLarge
	}

	buf := make([]byte, 0, HeaderSize+len(payload))
	buf = fmt.Appendf(buf, "%0*d", HeaderDigits, len(payload))
	buf = append(buf, Delimiter)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("frame write: %w", err)
	}
	return nil
}

// Receive reads one frame from r and returns its payload.
//
// io.EOF is returned as-is when the peer closed cleanly between frames, so
// callers can tell a disconnect from a protocol fault. A close in the middle
// of a header or payload yields ErrIncomplete.
func Receive(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrIncomplete
		}
		return nil, fmt.Errorf("frame header read: %w", err)
	}

	if header[HeaderDigits] != Delimiter {
		return nil, ErrBadHeader
	}

	n, err := strconv.Atoi(string(header[:HeaderDigits]))
	if err != nil || n < 0 {
		return nil, ErrBadHeader
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrIncomplete
		}
		return nil, fmt.Errorf("frame payload read: %w", err)
	}

	return payload, nil
}
