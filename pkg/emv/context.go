package emv

import "log/slog"

// SelectionState is the application-selection state machine's current
// state (§4.5).
type SelectionState int

const (
	SelInit SelectionState = iota
	SelBuildingCandidates
	SelCandidatesReady
	SelAppSelected
	SelTerminated
)

// TxnState is the transaction state machine's current state (§4.7).
type TxnState int

const (
	TxnIdle TxnState = iota
	TxnAppSelected
	TxnProcessingOptions
	TxnReadingAppData
	TxnOdaPerformed
	TxnCardholderVerif
	TxnRiskMgmt
	TxnAcGeneration
	TxnDone
)

// Context aggregates everything a transaction needs (§3 "EMV context"):
// the reader callback, the four TLV lists, the candidate application
// list, and state-machine bookkeeping. A Context is exclusively owned by
// one logical caller for the lifetime of a transaction (§5).
type Context struct {
	Reader Transceive
	Logger *slog.Logger

	// RSARecover and Hash are the two cryptographic primitives ODA needs
	// (§6): both pure functions, supplied by the caller the same way the
	// reader transceive callback is, so the core carries no crypto
	// library dependency of its own.
	RSARecover RSARecoverFunc
	Hash       HashFunc

	// Config holds terminal configuration TLVs (§6): 9F33, 9F35, 9F40,
	// 9F1A, 9F1B, 9F1C/9F1E, and the supported-AID list via SupportedAIDs.
	Config *List
	// Params holds transaction parameters the caller sets before GPO:
	// amount (81), date/time (9A/9F21), TVR seed, and DOL-sourced fields
	// such as the unpredictable number (9F37).
	Params *List
	// ICC holds every field the card has returned: FCI data, GPO output,
	// AFL record fields, GET DATA responses, GENERATE AC output.
	ICC *List
	// Terminal holds terminal-maintained outputs: TVR (95) and TSI (9B).
	Terminal *List

	SupportedAIDs []SupportedAID
	CAKeys        *CARegistry
	TxnLog        TransactionLog

	Candidates     *CandidateList
	Selected       *Application
	SelectionState SelectionState

	AFL     []AFLEntry
	ODA     *ODAContext
	TxnState TxnState
}

// NewContext returns a Context with empty TLV lists and a fresh candidate
// list, ready for application selection.
func NewContext(reader Transceive) *Context {
	return &Context{
		Reader:         reader,
		Config:         NewList(),
		Params:         NewList(),
		ICC:            NewList(),
		Terminal:       NewList(),
		Candidates:     NewCandidateList(),
		SelectionState: SelInit,
		TxnState:       TxnIdle,
	}
}

// Clear releases every owned buffer and resets the context to its initial
// state (§5: caller-driven cancellation between APDU exchanges). The
// reader callback, CA key registry, supported-AID list, and transaction
// log are not owned by the context and are left untouched.
func (ctx *Context) Clear() {
	ctx.Config = NewList()
	ctx.Params = NewList()
	ctx.ICC = NewList()
	ctx.Terminal = NewList()
	ctx.Candidates = NewCandidateList()
	ctx.Selected = nil
	ctx.SelectionState = SelInit
	ctx.AFL = nil
	ctx.ODA = nil
	ctx.TxnState = TxnIdle
}

// TVR returns the 5-byte Terminal Verification Results field, creating it
// (zeroed) if the terminal list does not yet have one.
func (ctx *Context) TVR() []byte {
	return ensureField(ctx.Terminal, TagTVR, 5)
}

// TSI returns the 2-byte Transaction Status Information field, creating it
// (zeroed) if the terminal list does not yet have one.
func (ctx *Context) TSI() []byte {
	return ensureField(ctx.Terminal, TagTSI, 2)
}
