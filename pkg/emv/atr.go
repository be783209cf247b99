package emv

import (
	"errors"
	"fmt"
)

// ATR decode errors (§4.2).
var (
	ErrAtrInvalidLength        = errors.New("emv: ATR invalid length")
	ErrAtrUnknownTs            = errors.New("emv: ATR unknown TS")
	ErrAtrInvalidInterfaceByte = errors.New("emv: ATR invalid interface byte")
	ErrAtrInvalidChecksum      = errors.New("emv: ATR invalid checksum")
	ErrAtrTruncatedHistorical  = errors.New("emv: ATR truncated historical bytes")
)

// Protocol identifies a card protocol indicated in TD1/TD2 (ISO 7816-3
// §8.3). Only T=0 and T=1 have named constants; ATR.Protocol is set to
// ProtocolT1 when a TD byte indicates T=1 and stays ProtocolT0 otherwise.
type Protocol int

const (
	ProtocolT0 Protocol = 0
	ProtocolT1 Protocol = 1
)

// CompactTLV is one entry of the historical bytes when they are formatted
// as COMPACT-TLV: a one-nibble tag and one-nibble length (§4.2).
type CompactTLV struct {
	Tag   byte
	Value []byte
}

// ATR is the decoded content of an ISO/IEC 7816-3 Answer-To-Reset.
type ATR struct {
	Inverse bool // true if TS indicated inverse convention

	T0                byte
	InterfaceBytes    [4]InterfaceGroup // indices 0..3 correspond to TA/TB/TC/TD for i=1..4
	Historical        []byte
	CompactTLVEntries []CompactTLV // parsed only when historical bytes are COMPACT-TLV (category 0x80)

	// Life-cycle/status trailer, present depending on the historical byte
	// category (§4.2).
	HasStatus  bool
	StatusWord uint16 // valid when HasStatus; SW1SW2 from the 1/2/3-byte trailer
	DIRRef     byte   // valid when the category byte indicated a DIR reference (0x10)

	TCK      byte
	HasTCK   bool
	Protocol Protocol

	// Derived timing/transmission parameters, defaulted then overridden by
	// TA1..TC3 (§3).
	Fi, Di     int
	FMaxMHz    float64
	GuardTimeETU int
	WI         int
	IFSC       int
	CWI, BWI   int
}

// InterfaceGroup records the presence of TAi/TBi/TCi/TDi for one interval
// i (1..4), each Present flag independently tracked per the spec's
// "present/absent" invariant.
type InterfaceGroup struct {
	TAPresent, TBPresent, TCPresent, TDPresent bool
	TA, TB, TC, TD                             byte
}

// fiTable maps TA1's high nibble to (Fi, fmax MHz) per ISO 7816-3 Table 7.
var fiTable = map[byte]struct {
	Fi      int
	FMaxMHz float64
}{
	0x0: {372, 4},
	0x1: {372, 5},
	0x2: {558, 6},
	0x3: {744, 8},
	0x4: {1116, 12},
	0x5: {1488, 16},
	0x6: {1860, 20},
	0x9: {512, 5},
	0xA: {768, 7.5},
	0xB: {1024, 10},
	0xC: {1536, 15},
	0xD: {2048, 20},
}

// diTable maps TA1's low nibble to Di per ISO 7816-3 Table 8.
var diTable = map[byte]int{
	0x1: 1,
	0x2: 2,
	0x3: 4,
	0x4: 8,
	0x5: 16,
	0x6: 32,
	0x8: 12,
	0x9: 20,
}

// ParseATR decodes a 2-33 byte ATR per ISO/IEC 7816-3 (§4.2). Defaults
// (Fi=372, Di=1, fmax=5MHz, 12 ETU guard time, T=0, WI=10, IFSC=32,
// CWI=13, BWI=4) are populated before interface bytes are parsed, so any
// byte the card omits keeps its ISO default.
func ParseATR(data []byte) (*ATR, error) {
	if len(data) < 2 || len(data) > 33 {
		return nil, ErrAtrInvalidLength
	}

	a := &ATR{
		Fi:           372,
		Di:           1,
		FMaxMHz:      5,
		GuardTimeETU: 12,
		Protocol:     ProtocolT0,
		WI:           10,
		IFSC:         32,
		CWI:          13,
		BWI:          4,
	}

	switch data[0] {
	case 0x3B:
		a.Inverse = false
	case 0x3F:
		a.Inverse = true
	default:
		return nil, ErrAtrUnknownTs
	}

	pos := 1
	a.T0 = data[pos]
	historicalCount := int(a.T0 & 0x0F)
	pos++

	y := a.T0 & 0xF0 // Y1: presence bits for TA1/TB1/TC1/TD1
	protocolSeen := map[Protocol]bool{ProtocolT0: true}
	td := byte(0x00) // synthetic TD0 = T0, used to decide whether TD1 follows

	for i := 0; i < 4; i++ {
		grp := &a.InterfaceBytes[i]
		if i == 0 {
			grp.TAPresent = y&0x10 != 0
			grp.TBPresent = y&0x20 != 0
			grp.TCPresent = y&0x40 != 0
			grp.TDPresent = y&0x80 != 0
		} else {
			prevHadTD := false
			switch i {
			case 1:
				prevHadTD = a.InterfaceBytes[0].TDPresent
			case 2:
				prevHadTD = a.InterfaceBytes[1].TDPresent
			case 3:
				prevHadTD = a.InterfaceBytes[2].TDPresent
			}
			if !prevHadTD {
				break
			}
			var prevTD byte
			switch i {
			case 1:
				prevTD = a.InterfaceBytes[0].TD
			case 2:
				prevTD = a.InterfaceBytes[1].TD
			case 3:
				prevTD = a.InterfaceBytes[2].TD
			}
			yNext := prevTD & 0xF0
			grp.TAPresent = yNext&0x10 != 0
			grp.TBPresent = yNext&0x20 != 0
			grp.TCPresent = yNext&0x40 != 0
			grp.TDPresent = yNext&0x80 != 0
		}

		if grp.TAPresent {
			if pos >= len(data) {
				return nil, ErrAtrInvalidLength
			}
			grp.TA = data[pos]
			pos++
			if i == 0 {
				hi := grp.TA >> 4
				lo := grp.TA & 0x0F
				fi, ok := fiTable[hi]
				if !ok {
					return nil, fmt.Errorf("%w: TA1 Fi nibble %X", ErrAtrInvalidInterfaceByte, hi)
				}
				di, ok := diTable[lo]
				if !ok {
					return nil, fmt.Errorf("%w: TA1 Di nibble %X", ErrAtrInvalidInterfaceByte, lo)
				}
				a.Fi, a.FMaxMHz, a.Di = fi.Fi, fi.FMaxMHz, di
			}
			if i == 2 {
				a.IFSC = int(grp.TA)
			}
		}
		if grp.TBPresent {
			if pos >= len(data) {
				return nil, ErrAtrInvalidLength
			}
			grp.TB = data[pos]
			pos++
			// TB is deprecated/RFU in ISO 7816-3:2006+; value retained but
			// not interpreted beyond presence.
		}
		if grp.TCPresent {
			if pos >= len(data) {
				return nil, ErrAtrInvalidLength
			}
			grp.TC = data[pos]
			pos++
			switch i {
			case 0:
				a.GuardTimeETU = int(grp.TC)
			case 2:
				a.BWI = int(grp.TC >> 4)
				a.CWI = int(grp.TC & 0x0F)
			}
		}
		if grp.TDPresent {
			if pos >= len(data) {
				return nil, ErrAtrInvalidLength
			}
			grp.TD = data[pos]
			pos++
			td = grp.TD
			proto := Protocol(grp.TD & 0x0F)
			if proto == ProtocolT1 {
				a.Protocol = ProtocolT1
			}
			protocolSeen[proto] = true
		} else {
			break
		}
	}
	_ = td

	if historicalCount > 0 {
		if pos+historicalCount > len(data) {
			return nil, ErrAtrTruncatedHistorical
		}
		a.Historical = data[pos : pos+historicalCount]
		pos += historicalCount
		if err := parseHistoricalBytes(a); err != nil {
			return nil, err
		}
	}

	onlyT0 := true
	for proto := range protocolSeen {
		if proto != ProtocolT0 {
			onlyT0 = false
		}
	}

	if !onlyT0 {
		if pos >= len(data) {
			return nil, ErrAtrInvalidChecksum
		}
		a.TCK = data[pos]
		a.HasTCK = true
		pos++
		xor := byte(0)
		for _, b := range data[1:pos] {
			xor ^= b
		}
		if xor != 0 {
			return nil, ErrAtrInvalidChecksum
		}
	}

	if pos != len(data) {
		return nil, ErrAtrInvalidLength
	}

	return a, nil
}

// parseHistoricalBytes interprets the historical byte block as
// COMPACT-TLV and extracts the optional life-cycle/status trailer,
// depending on the category byte T1 (§4.2).
func parseHistoricalBytes(a *ATR) error {
	h := a.Historical
	if len(h) == 0 {
		return nil
	}
	category := h[0]
	switch category {
	case 0x00:
		// Status info at the end: 1 (SW1SW2... actually LCS) or 3 bytes
		// mandatory status indicator.
		if len(h) < 4 {
			return nil
		}
		trailer := h[len(h)-3:]
		a.HasStatus = true
		a.StatusWord = uint16(trailer[1])<<8 | uint16(trailer[2])
		a.CompactTLVEntries = parseCompactTLV(h[1 : len(h)-3])
	case 0x10:
		if len(h) < 2 {
			return nil
		}
		a.DIRRef = h[1]
		a.CompactTLVEntries = parseCompactTLV(h[2:])
	case 0x80:
		body := h[1:]
		entries, trailerLen := parseCompactTLVWithOptionalStatus(body)
		a.CompactTLVEntries = entries
		if trailerLen > 0 {
			trailer := body[len(body)-trailerLen:]
			a.HasStatus = true
			if trailerLen == 1 {
				a.StatusWord = uint16(trailer[0])
			} else {
				a.StatusWord = uint16(trailer[trailerLen-2])<<8 | uint16(trailer[trailerLen-1])
			}
		}
	default:
		a.CompactTLVEntries = parseCompactTLV(h[1:])
	}
	return nil
}

// parseCompactTLV decodes a run of COMPACT-TLV entries, stopping if a
// malformed entry would overrun the buffer.
func parseCompactTLV(data []byte) []CompactTLV {
	var out []CompactTLV
	pos := 0
	for pos < len(data) {
		tag := data[pos] >> 4
		length := int(data[pos] & 0x0F)
		pos++
		if pos+length > len(data) {
			break
		}
		out = append(out, CompactTLV{Tag: tag, Value: data[pos : pos+length]})
		pos += length
	}
	return out
}

// parseCompactTLVWithOptionalStatus decodes COMPACT-TLV for the optional
// status indicator category (0x80), where the final 1, 2, or 3 bytes may
// be a status trailer rather than a COMPACT-TLV entry (tag 0 marks the
// status indicator entry explicitly; its absence leaves the trailer
// undetected and trailerLen is 0).
func parseCompactTLVWithOptionalStatus(data []byte) (entries []CompactTLV, trailerLen int) {
	pos := 0
	for pos < len(data) {
		tag := data[pos] >> 4
		length := int(data[pos] & 0x0F)
		if tag == 0 {
			trailerLen = length
			if pos+trailerLen > len(data) {
				trailerLen = len(data) - pos
			}
			break
		}
		pos++
		if pos+length > len(data) {
			break
		}
		entries = append(entries, CompactTLV{Tag: tag, Value: data[pos : pos+length]})
		pos += length
	}
	return entries, trailerLen
}
