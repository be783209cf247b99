package emv

import (
	"bytes"
	"testing"
)

func TestReadPSEIssuesReadRecordUntilRecordNotFound(t *testing.T) {
	selectResp := []byte{
		0x6F, 0x20, 0x84, 0x0E, 0x31, 0x50, 0x41, 0x59, 0x2E, 0x53, 0x59, 0x53,
		0x2E, 0x44, 0x44, 0x46, 0x30, 0x31, 0xA5, 0x0E, 0x88, 0x01, 0x01, 0x5F,
		0x2D, 0x04, 0x6E, 0x6C, 0x65, 0x6E, 0x9F, 0x11, 0x01, 0x01,
		0x90, 0x00,
	}
	record1 := []byte{
		0x70, 0x0E, 0x61, 0x0C, 0x4F, 0x07, 0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10,
		0x87, 0x01, 0x01,
		0x90, 0x00,
	}
	notFound := []byte{0x6A, 0x83}

	var calls [][]byte
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		calls = append(calls, append([]byte{}, tx...))
		switch len(calls) {
		case 1:
			return selectResp, nil
		case 2:
			return record1, nil
		default:
			return notFound, nil
		}
	}

	ctx := NewContext(reader)
	ctx.SupportedAIDs = []SupportedAID{{AID: []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}, Mode: MatchExact}}

	if err := ReadPSE(ctx, false); err != nil {
		t.Fatalf("ReadPSE returned error: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 reader calls (SELECT, READ RECORD, READ RECORD-not-found), got %d", len(calls))
	}
	wantReadRecord := []byte{0x00, 0xB2, 0x01, 0x0C, 0x00}
	if !bytes.Equal(calls[1], wantReadRecord) {
		t.Fatalf("first READ RECORD = % X, want % X", calls[1], wantReadRecord)
	}
	if ctx.Candidates.Len() != 1 {
		t.Fatalf("Candidates.Len() = %d, want 1", ctx.Candidates.Len())
	}
}

func TestSelectApplicationAtBlockedCardDropsCandidate(t *testing.T) {
	reader := func(tx []byte, rxCap int) ([]byte, error) {
		return []byte{0x6A, 0x81}, nil
	}
	ctx := NewContext(reader)
	ctx.Candidates.Push(&Application{AID: []byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}})

	err := SelectApplicationAt(ctx, 0)
	if err == nil {
		t.Fatalf("expected error selecting blocked card")
	}
	fe, ok := AsFatal(err)
	if !ok || fe.Kind != ErrCardBlocked {
		t.Fatalf("SelectApplicationAt error = %v, want fatal CardBlocked", err)
	}
	if ctx.Candidates.Len() != 0 {
		t.Fatalf("Candidates.Len() = %d, want 0 (candidate dropped)", ctx.Candidates.Len())
	}
}
