package emv

import "testing"

func TestToFormatCN(t *testing.T) {
	cases := []struct {
		digits  string
		length  int
		want    []byte
		wantErr bool
	}{
		{"12345", 3, []byte{0x12, 0x34, 0x5F}, false},
		{"12345", 4, []byte{0x12, 0x34, 0x5F, 0xFF}, false},
		{"12B456", 4, nil, true},
	}

	for _, c := range cases {
		got, err := ToFormatCN(c.digits, c.length)
		if c.wantErr {
			if err == nil {
				t.Fatalf("to_format_cn(%q, %d): expected error, got %X", c.digits, c.length, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("to_format_cn(%q, %d): unexpected error: %v", c.digits, c.length, err)
		}
		if !bytesEqual(got, c.want) {
			t.Fatalf("to_format_cn(%q, %d) = %X, want %X", c.digits, c.length, got, c.want)
		}
	}
}

func TestToFormatN(t *testing.T) {
	got, err := ToFormatN("123", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x01, 0x23}
	if !bytesEqual(got, want) {
		t.Fatalf("to_format_n(\"123\", 2) = %X, want %X", got, want)
	}
}
