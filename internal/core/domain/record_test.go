package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTag_StringRoundTrip(t *testing.T) {
	var tag Tag
	for i := range tag {
		tag[i] = byte(i)
	}

	got, err := ParseTag(tag.String())
	if err != nil {
		t.Fatalf("ParseTag: %v", err)
	}
	if got != tag {
		t.Fatalf("ParseTag = %x, want %x", got, tag)
	}
	if tag.IsZero() {
		t.Error("non-zero tag reported as zero")
	}
	if !(Tag{}).IsZero() {
		t.Error("zero tag reported as non-zero")
	}
}

func TestParseTag_Invalid(t *testing.T) {
	for _, in := range []string{"zz", "abcd", strings.Repeat("0", 66)} {
		if _, err := ParseTag(in); err == nil {
			t.Errorf("ParseTag(%q) should fail", in)
		}
	}
}

func TestRecord_Clone(t *testing.T) {
	r := &Record{Sequence: 3, ReasonTag: "integrity", Payload: []byte("block_3"), Timestamp: 42}
	c := r.Clone()
	c.Payload[0] = 'X'

	if string(r.Payload) != "block_3" {
		t.Fatalf("Clone shares payload memory: %q", r.Payload)
	}
	if c.Sequence != r.Sequence || c.ReasonTag != r.ReasonTag || c.Timestamp != r.Timestamp {
		t.Fatalf("Clone = %+v, want fields of %+v", c, r)
	}
}

func TestRecord_Time(t *testing.T) {
	r := &Record{Timestamp: 1_700_000_000_123_456_789}
	if got := r.Time().UnixNano(); got != 1_700_000_000_123_456_789 {
		t.Errorf("Time().UnixNano() = %d", got)
	}
}

func TestLimits_Normalize(t *testing.T) {
	l := Limits{}.Normalize()
	if l.MaxReasonLen != DefaultMaxReasonLen || l.MaxPayloadLen != DefaultMaxPayloadLen {
		t.Errorf("Normalize() = %+v, want defaults", l)
	}

	l = Limits{MaxReasonLen: 1 << 20, MaxPayloadLen: 10}.Normalize()
	if l.MaxReasonLen != HardMaxReasonLen {
		t.Errorf("MaxReasonLen = %d, want %d", l.MaxReasonLen, HardMaxReasonLen)
	}
	if l.MaxPayloadLen != 10 {
		t.Errorf("MaxPayloadLen = %d, want 10", l.MaxPayloadLen)
	}
}

func TestLimits_Check(t *testing.T) {
	l := Limits{MaxReasonLen: 4, MaxPayloadLen: 8}

	tests := []struct {
		name    string
		reason  string
		payload []byte
		wantErr bool
	}{
		{"within bounds", "tag", []byte("payload"), false},
		{"at bounds", "tags", []byte("12345678"), false},
		{"reason too long", "tagss", nil, true},
		{"payload too long", "t", []byte("123456789"), true},
		{"empty", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Check(tt.reason, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOverflow) {
				t.Fatalf("Check() error = %v, want ErrOverflow", err)
			}
		})
	}
}
