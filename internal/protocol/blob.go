package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

// BlockSize is the maximum number of dots in one DATABL message.
const BlockSize = 100

var ErrBadBlob = errors.New("malformed blob")

func encodeBlob(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeBlob(s string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	return nil
}

// EncodeDots packs a dot batch into a field.
func EncodeDots(dots []motion.Dot) (string, error) {
	if dots == nil {
		dots = []motion.Dot{}
	}
	return encodeBlob(dots)
}

// DecodeDots unpacks a field produced by EncodeDots.
func DecodeDots(s string) ([]motion.Dot, error) {
	var dots []motion.Dot
	if err := decodeBlob(s, &dots); err != nil {
		return nil, err
	}
	return dots, nil
}

// EncodeNames packs a user name list into a field.
func EncodeNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	return encodeBlob(names)
}

// DecodeNames unpacks a field produced by EncodeNames.
func DecodeNames(s string) ([]string, error) {
	var names []string
	if err := decodeBlob(s, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ChunkDots splits dots into consecutive blocks of at most size dots.
func ChunkDots(dots []motion.Dot, size int) [][]motion.Dot {
	if size <= 0 {
		size = BlockSize
	}
	var chunks [][]motion.Dot
	for len(dots) > 0 {
		n := min(size, len(dots))
		chunks = append(chunks, dots[:n:n])
		dots = dots[n:]
	}
	return chunks
}
