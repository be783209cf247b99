package emv

import "testing"

func TestBuildDolDataExactLengths(t *testing.T) {
	dol := []byte{
		0x9F, 0x02, 0x06,
		0x9F, 0x03, 0x06,
		0x9F, 0x1A, 0x02,
		0x95, 0x05,
		0x5F, 0x2A, 0x02,
		0x9A, 0x03,
		0x9C, 0x01,
		0x9F, 0x37, 0x04,
	}

	source1 := NewList()
	source1.Push(TLV{Tag: 0x9C, Value: []byte{0x09}})
	source1.Push(TLV{Tag: 0x9A, Value: []byte{0x24, 0x02, 0x17}})
	source1.Push(TLV{Tag: 0x5F2A, Value: []byte{0x09, 0x78}})
	source1.Push(TLV{Tag: 0x9F02, Value: []byte{0x00, 0x01, 0x23, 0x45, 0x67, 0x89}})
	source1.Push(TLV{Tag: 0x9F03, Value: []byte{0x00, 0x09, 0x87, 0x65, 0x43, 0x21}})

	source2 := NewList()
	source2.Push(TLV{Tag: 0x9F1A, Value: []byte{0x05, 0x28}})
	source2.Push(TLV{Tag: 0x9F37, Value: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	source2.Push(TLV{Tag: 0x95, Value: []byte{0x12, 0x34, 0x55, 0x43, 0x21}})

	got, err := BuildDolData(dol, source1, source2)
	if err != nil {
		t.Fatalf("BuildDolData returned error: %v", err)
	}

	want := []byte{
		0x00, 0x01, 0x23, 0x45, 0x67, 0x89,
		0x00, 0x09, 0x87, 0x65, 0x43, 0x21,
		0x05, 0x28,
		0x12, 0x34, 0x55, 0x43, 0x21,
		0x09, 0x78,
		0x24, 0x02, 0x17,
		0x09,
		0xDE, 0xAD, 0xBE, 0xEF,
	}
	if !bytesEqual(got, want) {
		t.Fatalf("BuildDolData = % X, want % X", got, want)
	}
}

func TestBuildDolDataMissingTagEmitsZeros(t *testing.T) {
	dol := []byte{0x9F, 0x02, 0x03}
	got, err := BuildDolData(dol, NewList(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00}
	if !bytesEqual(got, want) {
		t.Fatalf("BuildDolData = % X, want % X", got, want)
	}
}

func TestBuildDolDataZeroLengthEntryEmitsNothing(t *testing.T) {
	dol := []byte{0x9F, 0x02, 0x00, 0x9C, 0x01}
	source := NewList()
	source.Push(TLV{Tag: 0x9C, Value: []byte{0x01}})

	got, err := BuildDolData(dol, source, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x01}
	if !bytesEqual(got, want) {
		t.Fatalf("BuildDolData = % X, want % X", got, want)
	}
}

func TestComputeDolDataLength(t *testing.T) {
	entries := []DolEntry{{Tag: 0x9F02, Length: 6}, {Tag: 0x9A, Length: 3}}
	n, err := ComputeDolDataLength(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 9 {
		t.Fatalf("ComputeDolDataLength = %d, want 9", n)
	}
}
