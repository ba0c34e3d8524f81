// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Taimur Islam Khan

package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantTag     Tag
		wantPayload string
		wantErr     error
	}{
		{
			name:        "bare integer payload",
			line:        "CP:3\n",
			wantTag:     TagCycleProgress,
			wantPayload: "3",
		},
		{
			name:        "negative integer payload",
			line:        "CP:-1\n",
			wantTag:     TagCycleProgress,
			wantPayload: "-1",
		},
		{
			name:        "json payload",
			line:        `WP:{"current_position":3.5}` + "\n",
			wantTag:     TagWorkPosition,
			wantPayload: `{"current_position":3.5}`,
		},
		{
			name:        "empty payload",
			line:        "WAKEUP:\n",
			wantTag:     TagWakeup,
			wantPayload: "",
		},
		{
			name:        "crlf terminated",
			line:        "CP:2\r\n",
			wantTag:     TagCycleProgress,
			wantPayload: "2",
		},
		{
			name:        "payload containing colons",
			line:        `TD:{"home_screen":{"time_text":"1m 46sec"}}` + "\n",
			wantTag:     TagTipData,
			wantPayload: `{"home_screen":{"time_text":"1m 46sec"}}`,
		},
		{
			name:    "no separator",
			line:    "hello world\n",
			wantErr: ErrNoSeparator,
		},
		{
			name:    "empty line",
			line:    "\n",
			wantErr: ErrNoSeparator,
		},
		{
			name:    "tag too short",
			line:    "X:1\n",
			wantErr: ErrBadTag,
		},
		{
			name:    "tag too long",
			line:    "VERYLONGTAG:1\n",
			wantErr: ErrBadTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() unexpected error: %v", err)
			}
			if frame.Tag != tt.wantTag {
				t.Errorf("Tag = %q, want %q", frame.Tag, tt.wantTag)
			}
			if string(frame.Payload) != tt.wantPayload {
				t.Errorf("Payload = %q, want %q", frame.Payload, tt.wantPayload)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name    string
		tag     Tag
		payload any
		want    string
	}{
		{
			name:    "nil payload",
			tag:     TagSetWorkPosition,
			payload: nil,
			want:    "WPT:\n",
		},
		{
			name:    "object payload",
			tag:     TagSpeedMode,
			payload: speedModeEnvelope{SpeedMode: SpeedFine},
			want:    `WPS:{"speed_mode":"fine"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.tag, tt.payload)
			if err != nil {
				t.Fatalf("Encode() unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_RejectsBadTag(t *testing.T) {
	if _, err := Encode("X", nil); !errors.Is(err, ErrBadTag) {
		t.Errorf("Encode() error = %v, want %v", err, ErrBadTag)
	}
}

func TestFrame_Int(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"positive", "6", 6, false},
		{"negative", "-1", -1, false},
		{"zero", "0", 0, false},
		{"whitespace tolerated", " 4 ", 4, false},
		{"not a number", "abc", 0, true},
		{"json object", `{"a":1}`, 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Frame{Tag: TagCycleProgress, Payload: []byte(tt.payload)}
			got, err := f.Int()
			if tt.wantErr {
				if !errors.Is(err, ErrNotInteger) {
					t.Fatalf("Int() error = %v, want %v", err, ErrNotInteger)
				}
				return
			}
			if err != nil {
				t.Fatalf("Int() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Int() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFrame_Object_InvalidJSON(t *testing.T) {
	f := Frame{Tag: TagTipData, Payload: []byte(`{"tips":[`)}
	var td TipData
	if err := f.Object(&td); err == nil {
		t.Error("Object() expected error for truncated JSON")
	}
}

func TestFrame_Object_OptionalFields(t *testing.T) {
	f := Frame{Tag: TagWorkPosition, Payload: []byte(`{"current_position":3.0}`)}
	var wp WorkPositionTelemetry
	if err := f.Object(&wp); err != nil {
		t.Fatalf("Object() unexpected error: %v", err)
	}
	if wp.CurrentPosition == nil || *wp.CurrentPosition != 3.0 {
		t.Errorf("CurrentPosition = %v, want 3.0", wp.CurrentPosition)
	}
	if wp.Setpoint != nil {
		t.Errorf("Setpoint = %v, want nil (absent)", *wp.Setpoint)
	}
	if wp.SpeedMode != nil {
		t.Errorf("SpeedMode = %v, want nil (absent)", *wp.SpeedMode)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	pkt, err := NewWorkPositionUpdatePacket(12.5, SpeedRapid)
	if err != nil {
		t.Fatalf("NewWorkPositionUpdatePacket failed: %v", err)
	}
	if !bytes.HasSuffix(pkt, []byte{Terminator}) {
		t.Error("packet missing newline terminator")
	}

	frame, err := Decode(pkt)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if frame.Tag != TagWorkPositionUpdate {
		t.Errorf("Tag = %q, want %q", frame.Tag, TagWorkPositionUpdate)
	}

	var got WorkPositionSetting
	if err := frame.Object(&got); err != nil {
		t.Fatalf("Object failed: %v", err)
	}
	if got.Setpoint != 12.5 || got.SpeedMode != SpeedRapid {
		t.Errorf("decoded %+v, want setpoint=12.5 speed_mode=rapid", got)
	}
}
