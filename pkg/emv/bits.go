package emv

// Tags for the fixed-width terminal bitmask fields (§3).
const (
	TagTVR Tag = 0x95 // Terminal Verification Results, 5 bytes
	TagTSI Tag = 0x9B // Transaction Status Information, 2 bytes
)

// TVR bit positions, byte and bit numbered 1-based per EMV Book 3 Annex
// C.1 (byte, bit-within-byte counting from MSB=8).
type tvrBit struct {
	byteIdx int // 0-based index into the 5-byte TVR
	mask    byte
}

var (
	tvrOfflineDataAuthNotPerformed  = tvrBit{0, 0x80}
	tvrSdaFailed                    = tvrBit{0, 0x40}
	tvrIccDataMissing               = tvrBit{0, 0x20}
	tvrCardOnTerminalExceptionFile  = tvrBit{0, 0x10}
	tvrDdaFailed                    = tvrBit{0, 0x08}
	tvrCdaFailed                    = tvrBit{0, 0x04}

	tvrFloorLimitExceeded    = tvrBit{3, 0x80}
	tvrLowerConsecutiveOffline = tvrBit{3, 0x40}
	tvrUpperConsecutiveOffline = tvrBit{3, 0x20}
	tvrNewCard                 = tvrBit{1, 0x08}
)

// TSI bit positions, §4.7: TSI byte 1 bit 8 = "offline data authentication
// performed" etc (EMV Book 3 Annex C).
var (
	tsiOdaPerformed             = tvrBit{0, 0x80}
	tsiCardholderVerification   = tvrBit{0, 0x40}
	tsiCardRiskManagement       = tvrBit{0, 0x20}
	tsiIssuerAuthentication     = tvrBit{0, 0x10}
	tsiTerminalRiskManagement   = tvrBit{0, 0x08}
	tsiScriptProcessing         = tvrBit{0, 0x04}
)

// ensureField returns the value of the list's first field with the given
// tag, creating a zeroed field of length bytes if absent.
func ensureField(list *List, tag Tag, length int) []byte {
	f, ok := list.Find(tag)
	if !ok {
		v := make([]byte, length)
		list.Push(TLV{Tag: tag, Value: v})
		f, _ = list.Find(tag)
	}
	return f.Value
}

func setBit(list *List, tag Tag, length int, b tvrBit) {
	v := ensureField(list, tag, length)
	v[b.byteIdx] |= b.mask
}

func clearBit(list *List, tag Tag, length int, b tvrBit) {
	v := ensureField(list, tag, length)
	v[b.byteIdx] &^= b.mask
}

func testBit(list *List, tag Tag, length int, b tvrBit) bool {
	f, ok := list.Find(tag)
	if !ok || len(f.Value) <= b.byteIdx {
		return false
	}
	return f.Value[b.byteIdx]&b.mask != 0
}

func setTVR(list *List, b tvrBit)   { setBit(list, TagTVR, 5, b) }
func clearTVR(list *List, b tvrBit) { clearBit(list, TagTVR, 5, b) }
func testTVR(list *List, b tvrBit) bool { return testBit(list, TagTVR, 5, b) }

func setTSI(list *List, b tvrBit)   { setBit(list, TagTSI, 2, b) }
func testTSI(list *List, b tvrBit) bool { return testBit(list, TagTSI, 2, b) }
