package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ProcessedFile is one output of a tool run, returned inline in the response.
// It is never persisted server-side.
type ProcessedFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	Size         int       `json:"size"`
	Type         string    `json:"type"`
	Data         ByteArray `json:"data"`
	CreatedAt    time.Time `json:"createdAt"`
	ToolUsed     string    `json:"toolUsed"`
}

// ByteArray is a byte slice that serializes as a plain JSON array of integers
// instead of the base64 string encoding/json uses for []byte.
type ByteArray []byte

// MarshalJSON implements json.Marshaler.
func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(b)*4+2))
	buf.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(v)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value out of range at index %d: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// Annotation is a single mark placed on a page by the annotate tool.
type Annotation struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Color    string   `json:"color"`
	Page     int      `json:"page"`
	Text     string   `json:"text"`
}

// Position is measured in PDF points from the bottom-left corner of the page.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
