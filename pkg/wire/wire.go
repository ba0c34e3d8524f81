// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

// Package wire implements the USHS controller line protocol.
//
// The protocol is newline-terminated ASCII records of the form TAG:PAYLOAD
// where PAYLOAD is empty, a bare signed integer, or a JSON object. This
// package provides frame encoding/decoding, typed payload structs, and
// outbound packet builders.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Tag identifies a wire command.
type Tag string

// Inbound tags (device -> host)
const (
	TagCycleProgress Tag = "CP" // legacy cycle stage index
	TagTipData       Tag = "TD" // tip telemetry bundle, preferred
	TagWorkPosition  Tag = "WP" // work position telemetry
	TagWakeup        Tag = "WAKEUP"
)

// Outbound tags (host -> device)
const (
	TagWorkPositionUpdate Tag = "WPU"
	TagTips               Tag = "TIPS"
	TagConfiguration      Tag = "CFG"
	TagSettings           Tag = "SETTINGS"
	TagButton             Tag = "WPB"
	TagSpeedMode          Tag = "WPS"
	TagSetWorkPosition    Tag = "WPT"
)

// Tag length limits per the wire grammar
const (
	MinTagLen = 2
	MaxTagLen = 8
)

// Terminator ends every wire record.
const Terminator = '\n'

const separator = ':'

var (
	ErrNoSeparator = errors.New("wire: line has no tag separator")
	ErrBadTag      = errors.New("wire: invalid tag")
	ErrNotInteger  = errors.New("wire: payload is not a bare integer")
)

// Frame is one decoded wire record. Frames are ephemeral: the payload is
// parsed once at the dispatch boundary and the frame is not retained.
type Frame struct {
	Tag     Tag
	Payload []byte
}

// Decode splits a single line into a frame on the first colon. The caller
// supplies complete, newline-delimited lines; trailing CR/LF is tolerated.
func Decode(line []byte) (Frame, error) {
	line = bytes.TrimRight(line, "\r\n")

	i := bytes.IndexByte(line, separator)
	if i < 0 {
		return Frame{}, ErrNoSeparator
	}

	tag := line[:i]
	if len(tag) < MinTagLen || len(tag) > MaxTagLen {
		return Frame{}, fmt.Errorf("%w: %q", ErrBadTag, string(tag))
	}

	payload := make([]byte, len(line)-i-1)
	copy(payload, line[i+1:])

	return Frame{Tag: Tag(tag), Payload: payload}, nil
}

// Encode serializes a command to wire format: TAG: followed by the JSON
// encoding of payload (or nothing when payload is nil) and a newline.
func Encode(tag Tag, payload any) ([]byte, error) {
	if len(tag) < MinTagLen || len(tag) > MaxTagLen {
		return nil, fmt.Errorf("%w: %q", ErrBadTag, string(tag))
	}

	buf := make([]byte, 0, 64)
	buf = append(buf, tag...)
	buf = append(buf, separator)

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wire: encode %s payload: %w", tag, err)
		}
		buf = append(buf, body...)
	}

	return append(buf, Terminator), nil
}

// Empty reports whether the frame carries no payload.
func (f Frame) Empty() bool {
	return len(bytes.TrimSpace(f.Payload)) == 0
}

// Int parses the payload as a bare signed integer (the legacy CP form).
func (f Frame) Int() (int, error) {
	v, err := strconv.Atoi(string(bytes.TrimSpace(f.Payload)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, string(f.Payload))
	}
	return v, nil
}

// Object unmarshals the JSON object payload into v.
func (f Frame) Object(v any) error {
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("wire: decode %s payload: %w", f.Tag, err)
	}
	return nil
}
