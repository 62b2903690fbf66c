package util

import (
	"bytes"
	"testing"

	"github.com/tesserakv/tessera/internal/errors"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello world")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80}},
		{"large", bytes.Repeat([]byte("abcdefgh"), 1024)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Checksum(tt.data)
			second := Checksum(tt.data)
			if first != second {
				t.Errorf("checksum not deterministic: %d != %d", first, second)
			}
		})
	}
}

func TestChecksumDistinguishesData(t *testing.T) {
	a := Checksum([]byte("payload-a"))
	b := Checksum([]byte("payload-b"))
	if a == b {
		t.Errorf("distinct payloads produced identical checksum %d", a)
	}
}

func TestFrameAndUnframe(t *testing.T) {
	data := []byte("some record payload")

	framed := Frame(data)
	if len(framed) != len(data)+4 {
		t.Fatalf("framed length = %d, want %d", len(framed), len(data)+4)
	}

	got, err := Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Unframe returned %q, want %q", got, data)
	}
}

func TestFrameEmptyPayload(t *testing.T) {
	framed := Frame(nil)
	got, err := Unframe(framed)
	if err != nil {
		t.Fatalf("Unframe failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Unframe returned %d bytes, want 0", len(got))
	}
}

func TestUnframeCorrupted(t *testing.T) {
	framed := Frame([]byte("some record payload"))
	framed[2] ^= 0xff

	_, err := Unframe(framed)
	if err == nil {
		t.Fatal("expected checksum error for corrupted frame")
	}
	if !errors.IsCode(err, errors.ErrCodeChecksumFailed) {
		t.Errorf("error code = %d, want %d", errors.GetCode(err), errors.ErrCodeChecksumFailed)
	}
}

func TestUnframeCorruptedTrailer(t *testing.T) {
	framed := Frame([]byte("some record payload"))
	framed[len(framed)-1] ^= 0xff

	if _, err := Unframe(framed); err == nil {
		t.Fatal("expected checksum error for corrupted trailer")
	}
}

func TestUnframeTooShort(t *testing.T) {
	_, err := Unframe([]byte{0x01, 0x02})
	if err == nil {
		t.Fatal("expected error for frame shorter than trailer")
	}
	if !errors.IsCode(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("error code = %d, want %d", errors.GetCode(err), errors.ErrCodeInvalidArgument)
	}
}

func BenchmarkChecksum(b *testing.B) {
	data := bytes.Repeat([]byte("abcdefgh"), 512)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Checksum(data)
	}
}

func BenchmarkFrame(b *testing.B) {
	data := bytes.Repeat([]byte("abcdefgh"), 512)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Frame(data)
	}
}
