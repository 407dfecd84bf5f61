package protocol

import (
	"strings"

	"github.com/dmitrijs2005/mousetrap/internal/common"
)

// Message is one decoded protocol message: an opcode and its fields.
type Message struct {
	Op     Op
	Fields []string
	// Code keeps the raw opcode text, useful for logging unknown requests.
	Code string
}

// NewMessage builds a message for op.
func NewMessage(op Op, fields ...string) Message {
	return Message{Op: op, Fields: fields, Code: op.String()}
}

// Encode renders m as OPCODE~field~field.
func (m Message) Encode() []byte {
	code := m.Code
	if m.Op != OpUnknown || code == "" {
		code = m.Op.String()
	}
	parts := make([]string, 0, len(m.Fields)+1)
	parts = append(parts, code)
	parts = append(parts, m.Fields...)
	return []byte(strings.Join(parts, common.FieldSeparator))
}

// Decode parses a decrypted payload.
func Decode(payload []byte) Message {
	parts := strings.Split(string(payload), common.FieldSeparator)
	m := Message{Op: ParseOp(parts[0]), Code: parts[0]}
	if len(parts) > 1 {
		m.Fields = parts[1:]
	}
	return m
}

// Field returns field i or "" when it is missing.
func (m Message) Field(i int) string {
	if i < 0 || i >= len(m.Fields) {
		return ""
	}
	return m.Fields[i]
}

// Bool interprets field 0 as a TRUE/FALSE flag.
func (m Message) Bool() bool {
	return m.Field(0) == True
}

func boolField(v bool) string {
	if v {
		return True
	}
	return False
}

// BoolReply builds a reply whose single field is TRUE or FALSE.
func BoolReply(op Op, v bool) Message {
	return NewMessage(op, boolField(v))
}
