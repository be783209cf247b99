package emv

import "encoding/binary"

const newCardATCThreshold = 3 // spec guidance: "small"; EMV terminals commonly use a single-digit threshold.

// normalizePAN right-pads pan with 0xFF to 10 bytes for comparison
// against transaction log entries (§3).
func normalizePAN(pan []byte) []byte {
	out := make([]byte, 10)
	copy(out, pan)
	for i := len(pan); i < 10; i++ {
		out[i] = 0xFF
	}
	return out
}

// PerformRiskManagement implements §4.8's terminal risk management: floor
// limit (against the transaction log) and velocity checking, setting the
// corresponding TVR/TSI bits. It never returns a fatal error; GET DATA
// failures for ATC/LastOnlineATC are themselves the "unavailable" case
// the floor/velocity rules describe.
func PerformRiskManagement(ctx *Context) error {
	checkFloorLimit(ctx)
	checkVelocity(ctx)
	setTSI(ctx.Terminal, tsiTerminalRiskManagement)
	return nil
}

// checkFloorLimit implements §4.8's floor-limit rule: the transaction
// exceeds the floor limit if its amount alone does, or if amount plus the
// sum of all logged amounts for the same PAN does.
func checkFloorLimit(ctx *Context) {
	floorF, ok := ctx.Config.Find(TagTerminalFloorLimit)
	if !ok || len(floorF.Value) != 4 {
		return
	}
	amountF, ok := ctx.Params.Find(TagAmountAuthorizedBin)
	if !ok || len(amountF.Value) != 4 {
		return
	}
	floor := binary.BigEndian.Uint32(floorF.Value)
	amount := binary.BigEndian.Uint32(amountF.Value)

	if amount > floor {
		setTVR(ctx.Terminal, tvrFloorLimitExceeded)
		return
	}

	if ctx.TxnLog == nil {
		return
	}
	panF, ok := ctx.ICC.Find(TagPAN)
	if !ok {
		return
	}
	pan := normalizePAN(panF.Value)

	var total uint64 = uint64(amount)
	for _, e := range ctx.TxnLog.Entries() {
		if bytesEqual(normalizePAN(e.PAN), pan) {
			total += uint64(e.AmountAuthorized)
		}
	}
	if total > uint64(floor) {
		setTVR(ctx.Terminal, tvrFloorLimitExceeded)
	}
}

// checkVelocity implements §4.8's velocity check: GET DATA for ATC and
// Last Online ATC, then compare the consecutive-offline count against
// LCOL/UCOL.
func checkVelocity(ctx *Context) {
	atcData, atcErr := GetData(ctx, TagATC)
	lastOnlineData, lastErr := GetData(ctx, TagLastOnlineATC)
	if atcErr != nil || lastErr != nil || len(atcData) != 2 || len(lastOnlineData) != 2 {
		setTVR(ctx.Terminal, tvrLowerConsecutiveOffline)
		setTVR(ctx.Terminal, tvrUpperConsecutiveOffline)
		return
	}
	atc := binary.BigEndian.Uint16(atcData)
	lastOnline := binary.BigEndian.Uint16(lastOnlineData)

	if lastOnline == 0 && atc <= newCardATCThreshold {
		setTVR(ctx.Terminal, tvrNewCard)
	}

	consecutive := int(atc) - int(lastOnline)
	if consecutive < 0 {
		consecutive = 0
	}

	lcol := getDataOrICC(ctx, TagLCOL)
	ucol := getDataOrICC(ctx, TagUCOL)
	if lcol == nil {
		return
	}
	if consecutive > int(lcol[0]) {
		setTVR(ctx.Terminal, tvrLowerConsecutiveOffline)
		if ucol != nil && consecutive > int(ucol[0]) {
			setTVR(ctx.Terminal, tvrUpperConsecutiveOffline)
		}
	}
}

// getDataOrICC reads a single-byte risk-parameter tag, preferring a value
// already present in the icc list (from a prior READ RECORD) and falling
// back to GET DATA.
func getDataOrICC(ctx *Context, tag Tag) []byte {
	if f, ok := ctx.ICC.Find(tag); ok && len(f.Value) == 1 {
		return f.Value
	}
	v, err := GetData(ctx, tag)
	if err != nil || len(v) != 1 {
		return nil
	}
	return v
}
