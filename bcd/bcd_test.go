package bcd

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		imsi string
		want []byte
	}{
		{"single digit", "1", []byte{0xF1}},
		{"two digits", "12", []byte{0x21}},
		{"four nines", "9999", []byte{0x99, 0x99}},
		{"four zeros", "0000", []byte{0x00, 0x00}},
		{"full imsi", "001010123456789", []byte{0x00, 0x01, 0x01, 0x21, 0x43, 0x65, 0x87, 0xF9}},
		{"odd length", "123", []byte{0x21, 0xF3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.imsi)
			if err != nil {
				t.Fatalf("Encode(%q) failed: %v", tt.imsi, err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % X, want % X", tt.imsi, got, tt.want)
			}
		})
	}
}

func TestEncodeLength(t *testing.T) {
	imsi := ""
	for i := 1; i <= 15; i++ {
		imsi += string(rune('0' + i%10))
		got, err := Encode(imsi)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", imsi, err)
		}
		wantLen := (i + 1) / 2
		if len(got) != wantLen {
			t.Errorf("Encode(%q): got %d bytes, want %d", imsi, len(got), wantLen)
		}
		if i%2 == 1 && got[len(got)-1]>>4 != 0x0F {
			t.Errorf("Encode(%q): high nibble of last byte is 0x%X, want 0xF", imsi, got[len(got)-1]>>4)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := Encode(""); !errors.Is(err, ErrEmptyIMSI) {
		t.Errorf("Encode(\"\") = %v, want ErrEmptyIMSI", err)
	}
	for _, bad := range []string{"12a4", "1 2", "+123", "12.3"} {
		if _, err := Encode(bad); !errors.Is(err, ErrInvalidDigit) {
			t.Errorf("Encode(%q) = %v, want ErrInvalidDigit", bad, err)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"single digit", []byte{0xF1}, "1"},
		{"two digits", []byte{0x21}, "12"},
		{"four nines", []byte{0x99, 0x99}, "9999"},
		{"four zeros", []byte{0x00, 0x00}, "0000"},
		{"odd length", []byte{0x21, 0xF3}, "123"},
		{"trailing bytes after filler", []byte{0xF1, 0x99}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode(% X) failed: %v", tt.data, err)
			}
			if got != tt.want {
				t.Errorf("Decode(% X) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyIMSI) {
		t.Errorf("Decode(nil) = %v, want ErrEmptyIMSI", err)
	}
	for _, bad := range [][]byte{
		{0x1A},       // low nibble not a digit
		{0xA1},       // high nibble not a digit, not filler
		{0x21, 0x0B}, // bad low nibble in second byte
	} {
		if _, err := Decode(bad); !errors.Is(err, ErrInvalidNibble) {
			t.Errorf("Decode(% X) = %v, want ErrInvalidNibble", bad, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	imsis := []string{
		"1",
		"12",
		"123",
		"0000",
		"9999",
		"001010123456789",
		"123456789012345",
		"310150123456789",
	}
	for _, imsi := range imsis {
		data, err := Encode(imsi)
		if err != nil {
			t.Fatalf("Encode(%q) failed: %v", imsi, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(Encode(%q)) failed: %v", imsi, err)
		}
		if got != imsi {
			t.Errorf("round trip %q -> % X -> %q", imsi, data, got)
		}
	}
}
