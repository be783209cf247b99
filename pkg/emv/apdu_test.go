package emv

import (
	"bytes"
	"testing"
)

func TestCAPDUBytesCase1(t *testing.T) {
	c := NewCAPDU(0x00, 0xA4, 0x04, 0x00)
	got, err := c.Bytes()
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	want := []byte{0x00, 0xA4, 0x04, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes = % X, want % X", got, want)
	}
}

func TestCAPDUBytesCase4WithData(t *testing.T) {
	c := NewCAPDU(0x00, 0xA4, 0x04, 0x00).WithData([]byte{0xA0, 0x00, 0x00, 0x00, 0x03}).WithLe(0)
	got, err := c.Bytes()
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	want := []byte{0x00, 0xA4, 0x04, 0x00, 0x05, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("Bytes = % X, want % X", got, want)
	}
}

func TestCAPDUBytesRejectsOversizeData(t *testing.T) {
	c := NewCAPDU(0x00, 0xA4, 0x04, 0x00).WithData(make([]byte, 256))
	if _, err := c.Bytes(); err == nil {
		t.Fatalf("expected error for 256-byte command data")
	}
}

func TestCAPDUBytesRejectsInvalidLe(t *testing.T) {
	c := NewCAPDU(0x00, 0xB2, 0x01, 0x0C).WithLe(300)
	if _, err := c.Bytes(); err == nil {
		t.Fatalf("expected error for out-of-range Le")
	}
}

func TestParseRAPDUStripsStatusWord(t *testing.T) {
	r, err := parseRAPDU([]byte{0x01, 0x02, 0x03, 0x90, 0x00})
	if err != nil {
		t.Fatalf("parseRAPDU returned error: %v", err)
	}
	if !bytes.Equal(r.Data, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("Data = % X, want 01 02 03", r.Data)
	}
	if r.SW != 0x9000 || !r.OK() {
		t.Fatalf("SW = %04X, want 9000 and OK()", r.SW)
	}
	if r.SW1() != 0x90 || r.SW2() != 0x00 {
		t.Fatalf("SW1/SW2 = %02X/%02X, want 90/00", r.SW1(), r.SW2())
	}
}

func TestParseRAPDURejectsShortResponse(t *testing.T) {
	if _, err := parseRAPDU([]byte{0x90}); err == nil {
		t.Fatalf("expected error for single-byte response")
	}
}
