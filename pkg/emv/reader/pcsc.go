// Package reader adapts PC/SC smartcard connections to the emv package's
// Transceive callback type, grounded on the teacher's Connection/Transmit
// pattern for the ebfe/scard binding.
package reader

import (
	"fmt"

	"github.com/ebfe/scard"
)

// PCSC wraps a PC/SC context and card connection for contact/contactless
// EMV readers.
type PCSC struct {
	ctx       *scard.Context
	card      *scard.Card
	Reader    string
	ReaderIdx int
}

// Connect establishes a connection to the reader at readerIndex (0-based,
// as returned by ListReaders).
func Connect(readerIndex int) (*PCSC, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("no PC/SC readers found: %v", err)
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("reader index out of range (0..%d)", len(readers)-1)
	}

	name := readers[readerIndex]
	card, err := ctx.Connect(name, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("connect to reader %q: %w", name, err)
	}

	return &PCSC{ctx: ctx, card: card, Reader: name, ReaderIdx: readerIndex}, nil
}

// Close disconnects the card, leaving it in place, and releases the
// PC/SC context.
func (p *PCSC) Close() {
	if p == nil {
		return
	}
	if p.card != nil {
		_ = p.card.Disconnect(scard.LeaveCard)
	}
	if p.ctx != nil {
		_ = p.ctx.Release()
	}
}

// ATR returns the card's answer-to-reset bytes as reported by PC/SC at
// connect time.
func (p *PCSC) ATR() ([]byte, error) {
	status, err := p.card.Status()
	if err != nil {
		return nil, fmt.Errorf("card status: %w", err)
	}
	return status.Atr, nil
}

// Transceive implements emv.Transceive: it transmits tx and returns the
// card's raw response, which already ends in the two SW bytes. rxCap is
// informational only — ebfe/scard has no receive-buffer-size knob, PC/SC
// itself enforces the APDU size.
func (p *PCSC) Transceive(tx []byte, rxCap int) ([]byte, error) {
	if p == nil || p.card == nil {
		return nil, fmt.Errorf("PC/SC connection not established")
	}
	return p.card.Transmit(tx)
}
