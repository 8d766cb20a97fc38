// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// requestTerminator ends every request on the wire.
const requestTerminator = 0x00

// argumentSeparator joins arguments on the wire.
const argumentSeparator = " "

// EncodeRequest serializes args as the wire request: the arguments
// joined by single spaces, followed by one NUL byte.
func EncodeRequest(args []string) []byte {
	joined := strings.Join(args, argumentSeparator)
	encoded := make([]byte, 0, len(joined)+1)
	encoded = append(encoded, joined...)
	return append(encoded, requestTerminator)
}

// ValidateRequest reports ErrInvalidRequest if any argument is not
// valid UTF-8. The server would reject such a request.
func ValidateRequest(args []string) error {
	for index, arg := range args {
		if !utf8.ValidString(arg) {
			return fmt.Errorf("%w (argument %d)", ErrInvalidRequest, index+1)
		}
	}
	return nil
}

// WriteRequest validates args and writes the encoded request to w.
func WriteRequest(w io.Writer, args []string) error {
	if err := ValidateRequest(args); err != nil {
		return err
	}
	if _, err := w.Write(EncodeRequest(args)); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	return nil
}

// DecodeRequest converts a request payload (without its terminator)
// back into arguments by splitting on single spaces. Consecutive
// spaces produce empty arguments, and an empty payload produces one
// empty argument, exactly as splitting the joined string would.
func DecodeRequest(payload []byte) ([]string, error) {
	if !utf8.Valid(payload) {
		return nil, ErrInvalidRequest
	}
	return strings.Split(string(payload), argumentSeparator), nil
}

// ReadRequest reads one request from r, consuming bytes up to and
// including the NUL terminator.
func ReadRequest(r *bufio.Reader) ([]string, error) {
	payload, err := r.ReadBytes(requestTerminator)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrUnterminatedRequest
		}
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return DecodeRequest(payload[:len(payload)-1])
}
