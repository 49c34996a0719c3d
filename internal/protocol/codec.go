package protocol

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

var validate = validator.New()

func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Peek reads only the envelope of a frame.
func Peek(data []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	if h.Type == "" {
		return Header{}, fmt.Errorf("decode header: missing type")
	}
	return h, nil
}

func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	return nil
}

// DecodeValid decodes and then applies the struct's validate tags.
func DecodeValid(data []byte, v any) error {
	if err := Decode(data, v); err != nil {
		return err
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validate frame: %w", err)
	}
	return nil
}

// NewError builds an error reply for the request carried by h.
func NewError(h Header, code, msg string) Error {
	return Error{Header: h.Reply(TypeError), Code: code, Message: msg}
}
