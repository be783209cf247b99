package emv

import (
	"bytes"
	"errors"
	"testing"
)

var errReaderBoom = errors.New("reader: card removed")

func TestTransceiveChains61xxGetResponse(t *testing.T) {
	var calls [][]byte
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		calls = append(calls, append([]byte{}, tx...))
		switch len(calls) {
		case 1:
			return []byte{0x61, 0x10}, nil // 16 more bytes available
		case 2:
			return append(bytes.Repeat([]byte{0xAB}, 16), 0x90, 0x00), nil
		default:
			t.Fatalf("unexpected extra call %d", len(calls))
			return nil, nil
		}
	}
	ctx := NewContext(reader)

	resp, err := ctx.transceive(NewCAPDU(0x00, 0xA4, 0x04, 0x00).WithData([]byte{0xA0}))
	if err != nil {
		t.Fatalf("transceive returned error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 reader calls, got %d", len(calls))
	}
	wantGetResponse := []byte{0x00, 0xC0, 0x00, 0x00, 0x10}
	if !bytes.Equal(calls[1], wantGetResponse) {
		t.Fatalf("GET RESPONSE = % X, want % X", calls[1], wantGetResponse)
	}
	if !bytes.Equal(resp.Data, bytes.Repeat([]byte{0xAB}, 16)) {
		t.Fatalf("Data = % X, want 16 AB bytes", resp.Data)
	}
	if resp.SW != 0x9000 {
		t.Fatalf("SW = %04X, want 9000", resp.SW)
	}
}

func TestTransceiveRetransmitsOn6Cxx(t *testing.T) {
	var calls [][]byte
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		calls = append(calls, append([]byte{}, tx...))
		switch len(calls) {
		case 1:
			return []byte{0x6C, 0x08}, nil // wrong Le, correct is 8
		case 2:
			return append(bytes.Repeat([]byte{0xCD}, 8), 0x90, 0x00), nil
		default:
			t.Fatalf("unexpected extra call %d", len(calls))
			return nil, nil
		}
	}
	ctx := NewContext(reader)

	resp, err := ctx.transceive(NewCAPDU(0x00, 0xB2, 0x01, 0x0C).WithLe(0))
	if err != nil {
		t.Fatalf("transceive returned error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 reader calls, got %d", len(calls))
	}
	wantRetry := []byte{0x00, 0xB2, 0x01, 0x0C, 0x08}
	if !bytes.Equal(calls[1], wantRetry) {
		t.Fatalf("retry command = % X, want % X", calls[1], wantRetry)
	}
	if !bytes.Equal(resp.Data, bytes.Repeat([]byte{0xCD}, 8)) {
		t.Fatalf("Data = % X, want 8 CD bytes", resp.Data)
	}
}

func TestTransceiveChains61xxAfter6CxxRetry(t *testing.T) {
	var calls [][]byte
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		calls = append(calls, append([]byte{}, tx...))
		switch len(calls) {
		case 1:
			return []byte{0x6C, 0x08}, nil
		case 2:
			return []byte{0x61, 0x04}, nil
		case 3:
			return append(bytes.Repeat([]byte{0xEF}, 4), 0x90, 0x00), nil
		default:
			t.Fatalf("unexpected extra call %d", len(calls))
			return nil, nil
		}
	}
	ctx := NewContext(reader)

	resp, err := ctx.transceive(NewCAPDU(0x00, 0xB2, 0x01, 0x0C).WithLe(0))
	if err != nil {
		t.Fatalf("transceive returned error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 reader calls, got %d", len(calls))
	}
	if !bytes.Equal(resp.Data, bytes.Repeat([]byte{0xEF}, 4)) {
		t.Fatalf("Data = % X, want 4 EF bytes", resp.Data)
	}
	if resp.SW != 0x9000 {
		t.Fatalf("SW = %04X, want 9000", resp.SW)
	}
}

func TestTransceiveMapsSelectBlockedStatusToFatal(t *testing.T) {
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		return []byte{0x6A, 0x81}, nil
	}
	ctx := NewContext(reader)

	_, err := ctx.transceive(NewCAPDU(0x00, 0xA4, 0x04, 0x00).WithData([]byte{0xA0}))
	fe, ok := AsFatal(err)
	if !ok || fe.Kind != ErrCardBlocked {
		t.Fatalf("transceive error = %v, want fatal CardBlocked", err)
	}
}

func TestTransceiveDoesNotMapBlockedStatusForNonSelect(t *testing.T) {
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		return []byte{0x6A, 0x81}, nil
	}
	ctx := NewContext(reader)

	resp, err := ctx.transceive(NewCAPDU(0x00, 0xB2, 0x01, 0x0C))
	if err != nil {
		t.Fatalf("transceive returned error for non-SELECT 6A81: %v", err)
	}
	if resp.SW != 0x6A81 {
		t.Fatalf("SW = %04X, want 6A81 passed through", resp.SW)
	}
}

func TestTransceiveWrapsReaderFailure(t *testing.T) {
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		return nil, errReaderBoom
	}
	ctx := NewContext(reader)

	_, err := ctx.transceive(NewCAPDU(0x00, 0xB2, 0x01, 0x0C))
	fe, ok := AsFatal(err)
	if !ok || fe.Kind != ErrReaderFailure {
		t.Fatalf("transceive error = %v, want fatal ReaderFailure", err)
	}
}
