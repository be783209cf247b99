package emv

// TransactionOutcome is the terminal-facing result of a completed or
// abandoned transaction attempt.
type TransactionOutcome int

const (
	OutcomeUnknown TransactionOutcome = iota
	OutcomeApproved
	OutcomeDeclined
	OutcomeOnlineRequest
	OutcomeNotAccepted
	OutcomeCardBlocked
	OutcomeCardError
)

// PrepareTransaction completes the §4.7 entry state: it adds the selected
// application's AID to the params list as 0x9F06 and appends zeroed TVR
// and TSI fields to the terminal list. The caller must set 0x9A (date),
// 0x9C (transaction type), and 0x81 (amount authorised) in ctx.Params
// itself.
func PrepareTransaction(ctx *Context) error {
	if ctx.Selected == nil {
		return fatal(ErrInvalidParameter, 0, nil)
	}
	ctx.Params.Set(TagApplicationAID, ctx.Selected.AID)
	ctx.Terminal.Set(TagTVR, make([]byte, 5))
	ctx.Terminal.Set(TagTSI, make([]byte, 2))
	ctx.TxnState = TxnAppSelected
	return nil
}

// RunToGenerateAC drives §4.7's sequence through step (f)'s first
// GENERATE AC: GPO, read AFL records, ODA, risk management, then
// GENERATE AC using the card's CDOL1. A continuable result from GPO is
// returned immediately; continuable results from reading records and from
// ODA are not returned, and the sequence goes on (their TVR bits are
// already set). Fatal errors from any step are returned immediately.
func RunToGenerateAC(ctx *Context, cryptogramType CryptogramType, requestCDA bool) (*GenAcResponse, error) {
	if err := GetProcessingOptions(ctx); err != nil {
		return nil, err
	}
	if err := ReadApplicationData(ctx); err != nil {
		if !IsContinuable(err) {
			return nil, err
		}
		// OdaRecordInvalid: reading continues past individual bad
		// records, so fall through to ODA with whatever buffer was
		// assembled.
	}

	if err := PerformODA(ctx); err != nil && !IsContinuable(err) {
		return nil, err
	}
	ctx.TxnState = TxnOdaPerformed

	if err := PerformRiskManagement(ctx); err != nil {
		return nil, err
	}
	ctx.TxnState = TxnRiskMgmt

	cdol1, ok := ctx.Selected.FCI.Find(TagCDOL1)
	if !ok {
		cdol1, ok = ctx.ICC.Find(TagCDOL1)
	}
	if !ok {
		return nil, fatal(ErrGenAcFieldNotFound, 0, nil)
	}
	cdolData, err := BuildDolData(cdol1.Value, ctx.Params, ctx.ICC)
	if err != nil {
		return nil, fatal(ErrGenAcParseFailed, 0, err)
	}

	resp, err := GenerateAC(ctx, GenAcRequest{Type: cryptogramType, RequestCDA: requestCDA, CDOLData: cdolData})
	if err != nil {
		return nil, err
	}
	ctx.TxnState = TxnAcGeneration
	return resp, nil
}

// SecondGenerateAC implements §4.7's re-entry to step (f) for the second
// cryptogram, built against the card's CDOL2 (e.g. after an online
// authorization result is available).
func SecondGenerateAC(ctx *Context, cryptogramType CryptogramType) (*GenAcResponse, error) {
	cdol2, ok := ctx.Selected.FCI.Find(TagCDOL2)
	if !ok {
		cdol2, ok = ctx.ICC.Find(TagCDOL2)
	}
	if !ok {
		return nil, fatal(ErrGenAcFieldNotFound, 0, nil)
	}
	cdolData, err := BuildDolData(cdol2.Value, ctx.Params, ctx.ICC)
	if err != nil {
		return nil, fatal(ErrGenAcParseFailed, 0, err)
	}
	resp, err := GenerateAC(ctx, GenAcRequest{Type: cryptogramType, CDOLData: cdolData})
	if err != nil {
		return nil, err
	}
	ctx.TxnState = TxnDone
	return resp, nil
}
