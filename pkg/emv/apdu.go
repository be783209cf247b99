package emv

import "fmt"

// CAPDU is a command APDU per ISO/IEC 7816-4. The four cases (1-4) are
// determined by which of Data/Le are present.
type CAPDU struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	Le               int  // -1 means absent (case 1/3)
	LePresent        bool
}

// NewCAPDU builds a case-1 (no data, no Le) command.
func NewCAPDU(cla, ins, p1, p2 byte) CAPDU {
	return CAPDU{CLA: cla, INS: ins, P1: p1, P2: p2, Le: -1}
}

// WithData returns a copy of c as a case-3/4 command carrying data.
func (c CAPDU) WithData(data []byte) CAPDU {
	c.Data = data
	return c
}

// WithLe returns a copy of c as a case-2/4 command expecting le response
// bytes (0 means "as many as the card wants to send", encoded as short-form
// Le=0x00).
func (c CAPDU) WithLe(le int) CAPDU {
	c.Le = le
	c.LePresent = true
	return c
}

// Bytes encodes c as a short-form APDU. EMV terminals operate in short
// (non-extended) length fields; the TTL's 61xx/6Cxx chaining (§4.3)
// exists precisely because short APDUs cap Lc at 255 and Le at 256 bytes
// (Le=256 is encoded as 0x00).
func (c CAPDU) Bytes() ([]byte, error) {
	if len(c.Data) > 255 {
		return nil, fmt.Errorf("emv: command data too long for short APDU (%d bytes)", len(c.Data))
	}
	out := []byte{c.CLA, c.INS, c.P1, c.P2}
	if len(c.Data) > 0 {
		out = append(out, byte(len(c.Data)))
		out = append(out, c.Data...)
	}
	if c.LePresent {
		if c.Le < 0 || c.Le > 256 {
			return nil, fmt.Errorf("emv: invalid Le %d", c.Le)
		}
		out = append(out, byte(c.Le))
	}
	return out, nil
}

// RAPDU is a response APDU: data plus the trailing SW1SW2 status word.
type RAPDU struct {
	Data []byte
	SW   uint16
}

// SW1 and SW2 split the status word into its constituent bytes.
func (r RAPDU) SW1() byte { return byte(r.SW >> 8) }
func (r RAPDU) SW2() byte { return byte(r.SW) }

// OK reports whether the status word is 9000.
func (r RAPDU) OK() bool { return r.SW == 0x9000 }

// parseRAPDU splits a raw reader response into data and status word,
// mirroring the teacher's card.go Transmit (which strips the trailing
// two SW bytes from the reader's raw response).
func parseRAPDU(raw []byte) (RAPDU, error) {
	if len(raw) < 2 {
		return RAPDU{}, fmt.Errorf("emv: short response: %d bytes", len(raw))
	}
	sw := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	return RAPDU{Data: raw[:len(raw)-2], SW: sw}, nil
}
