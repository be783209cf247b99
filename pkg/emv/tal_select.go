package emv

import "fmt"

// selectByName issues SELECT (CLA=00, INS=A4, P1=04) by DF name and
// returns the raw FCI response data (§4.4: Read PSE / Select application
// both build on this).
func (ctx *Context) selectByName(name []byte, p2 byte) (RAPDU, error) {
	cmd := NewCAPDU(0x00, 0xA4, 0x04, p2).WithData(name).WithLe(0x00)
	return ctx.transceive(cmd)
}

// parseFCI decodes a SELECT response's FCI template (tag 0x6F) into a flat
// TLV list using the EMV-aware recursive decoder (§4.1, §4.4).
func parseFCI(data []byte) (*List, error) {
	list := NewList()
	if err := DecodeEMV(data, list); err != nil {
		return nil, err
	}
	return list, nil
}

// SelectPSE selects the Payment System Environment directory: DF name
// "1PAY.SYS.DDF01" for contact, or "2PAY.SYS.DDF01" for contactless
// (§4.4). Contact is primary per the spec's implementer-choice note.
func SelectPSE(ctx *Context, contactless bool) (*List, error) {
	name := []byte("1PAY.SYS.DDF01")
	if contactless {
		name = []byte("2PAY.SYS.DDF01")
	}
	resp, err := ctx.selectByName(name, 0x00)
	if err != nil {
		if fe, ok := AsFatal(err); ok && fe.Kind == ErrCardBlocked {
			return nil, result(ResPseBlocked, resp.SW, nil)
		}
		return nil, err
	}
	if !resp.OK() {
		return nil, result(ResPseNotFound, resp.SW, nil)
	}
	fci, err := parseFCI(resp.Data)
	if err != nil {
		return nil, result(ResPseFciParseFailed, resp.SW, err)
	}
	return fci, nil
}

// ReadPSE implements §4.4's "Read PSE": selects the PSE, finds the PSE
// directory SFI inside the FCI (tag 0x88 nested in 0xA5), reads each AEF
// record with READ RECORD until SW=6A83 (record not found), and pushes a
// candidate Application for every ADF entry whose AID is supported.
func ReadPSE(ctx *Context, contactless bool) error {
	fci, err := SelectPSE(ctx, contactless)
	if err != nil {
		return err
	}

	sfiField, ok := fci.Find(TagSFI)
	if !ok || len(sfiField.Value) != 1 {
		return result(ResPseSfiNotFound, 0, nil)
	}
	sfi := sfiField.Value[0]
	if sfi < 1 || sfi > 10 {
		// §9 Design Notes: PSE AEF SFI outside [1,10] is non-conformant;
		// resolved per the spec's open question as PseSfiInvalid.
		return result(ResPseSfiInvalid, 0, fmt.Errorf("PSE SFI %d out of range [1,10]", sfi))
	}

	for recordNum := byte(1); ; recordNum++ {
		resp, err := ctx.readRecord(sfi, recordNum)
		if err != nil {
			return err
		}
		if resp.SW == 0x6A83 {
			break
		}
		if !resp.OK() {
			return result(ResPseSelectFailed, resp.SW, nil)
		}
		if err := ctx.appendPSERecord(resp.Data); err != nil {
			return err
		}
	}
	return nil
}

// appendPSERecord parses one AEF record (template 0x70 containing one or
// more 0x61 ADF entries) and pushes a candidate Application for every
// supported AID (§4.4).
func (ctx *Context) appendPSERecord(data []byte) error {
	list := NewList()
	if err := DecodeEMV(data, list); err != nil {
		return result(ResPseAefParseFailed, 0, err)
	}
	if _, ok := list.Find(TagRecordTemplate); !ok {
		return result(ResPseAefInvalid, 0, fmt.Errorf("AEF record missing template 0x70"))
	}

	entries := list.FindAll(TagADFEntry)
	if len(entries) == 0 {
		return result(ResPseAefInvalid, 0, fmt.Errorf("AEF record has no ADF entries"))
	}
	for _, entry := range entries {
		entryList := NewList()
		if err := DecodeEMV(entry.Value, entryList); err != nil {
			return result(ResPseAefParseFailed, 0, err)
		}
		aidField, ok := entryList.Find(TagADFName)
		if !ok || len(aidField.Value) < 5 {
			return result(ResPseAefInvalid, 0, fmt.Errorf("ADF entry missing AID"))
		}
		aid := aidField.Value

		supported, matchedMode := ctx.findSupportedAID(aid)
		if !supported {
			continue
		}
		_ = matchedMode

		priority, confirm := priorityIndicator(entryList)
		if ctx.Candidates.HasAID(aid) {
			continue
		}
		ctx.Candidates.Push(&Application{
			AID:                  append([]byte{}, aid...),
			Priority:             priority,
			ConfirmationRequired: confirm,
			FCI:                  entryList,
		})
	}
	return nil
}

// priorityIndicator decodes tag 0x87 (Application Priority Indicator):
// bits 1-4 carry the priority value (0 = unspecified), bit 8 marks that
// cardholder confirmation is required before this application may be
// selected without prompting (EMV Book 1).
func priorityIndicator(list *List) (priority int, confirmRequired bool) {
	p, ok := list.Find(TagAppPriorityIndicator)
	if !ok || len(p.Value) != 1 {
		return 0, false
	}
	return int(p.Value[0] & 0x0F), p.Value[0]&0x80 != 0
}

// findSupportedAID reports whether aid matches one of the terminal's
// configured supported AIDs (§4.5).
func (ctx *Context) findSupportedAID(aid []byte) (bool, MatchMode) {
	for _, s := range ctx.SupportedAIDs {
		if s.MatchesAID(aid) {
			return true, s.Mode
		}
	}
	return false, MatchExact
}

// FindSupportedApps implements §4.4's "Find supported apps": for each
// terminal-configured AID, SELECT it; partial-match AIDs are reissued
// with P2=02 (next occurrence) until SW=6A82, enumerating every variant
// on the card.
func FindSupportedApps(ctx *Context) error {
	for _, supported := range ctx.SupportedAIDs {
		p2 := byte(0x00)
		for {
			resp, err := ctx.selectByName(supported.AID, p2)
			if err != nil {
				if fe, ok := AsFatal(err); ok && fe.Kind == ErrCardBlocked {
					return err
				}
				return err
			}
			if resp.SW == 0x6A82 {
				break
			}
			if !resp.OK() {
				break
			}
			fci, err := parseFCI(resp.Data)
			if err != nil {
				break
			}
			dfName, ok := fci.Find(TagDFName)
			if !ok {
				break
			}
			aid := dfName.Value
			if !ctx.Candidates.HasAID(aid) {
				priority, confirm := priorityIndicator(fci)
				ctx.Candidates.Push(&Application{
					AID:                  append([]byte{}, aid...),
					Priority:             priority,
					ConfirmationRequired: confirm,
					FCI:                  fci,
				})
			}
			if supported.Mode != MatchPartial {
				break
			}
			p2 = 0x02
		}
	}
	return nil
}

// BuildCandidateList implements §4.5's "Build candidate list": attempt
// PSE first; if unsuccessful (and the card is not blocked) or empty,
// attempt the supported-AID list. The result is deduplicated by AID and
// sorted with CandidateList.SortByPriority before returning.
func BuildCandidateList(ctx *Context, contactless bool) error {
	ctx.SelectionState = SelBuildingCandidates

	pseErr := ReadPSE(ctx, contactless)
	if pseErr != nil {
		if fe, ok := AsFatal(pseErr); ok && fe.Kind == ErrCardBlocked {
			ctx.SelectionState = SelTerminated
			return pseErr
		}
	}

	if pseErr != nil || ctx.Candidates.Len() == 0 {
		if err := FindSupportedApps(ctx); err != nil {
			if fe, ok := AsFatal(err); ok && fe.Kind == ErrCardBlocked {
				ctx.SelectionState = SelTerminated
				return err
			}
		}
	}

	if ctx.Candidates.Len() == 0 {
		ctx.SelectionState = SelTerminated
		return result(ResAppNotFound, 0, nil)
	}

	ctx.Candidates.SortByPriority()
	ctx.SelectionState = SelCandidatesReady
	return nil
}

// SelectApplicationAt implements §4.5's "Select app by index": SELECT the
// candidate at i by DF name with P2=00, validate the returned DF Name
// matches exactly, and parse its FCI. On a continuable failure, the
// candidate is removed from the list so the caller can retry with the
// next one. When that removal empties the list, the same continuable
// Result is returned; no separate NotAccepted outcome is reported, and the
// caller sees the empty list through Candidates.Len(). On success the
// selected application is also removed from the list and stored in
// ctx.Selected.
func SelectApplicationAt(ctx *Context, i int) error {
	app := ctx.Candidates.At(i)
	resp, err := ctx.selectByName(app.AID, 0x00)
	if err != nil {
		if fe, ok := AsFatal(err); ok && fe.Kind == ErrCardBlocked {
			ctx.Candidates.RemoveAt(i)
			ctx.SelectionState = SelTerminated
			return err
		}
		return err
	}

	if resp.SW == 0x6283 {
		ctx.Candidates.RemoveAt(i)
		return result(ResAppBlocked, resp.SW, nil)
	}
	if !resp.OK() {
		ctx.Candidates.RemoveAt(i)
		return result(ResAppSelectionFailed, resp.SW, nil)
	}

	fci, err := parseFCI(resp.Data)
	if err != nil {
		ctx.Candidates.RemoveAt(i)
		return result(ResAppFciParseFailed, resp.SW, err)
	}
	dfName, ok := fci.Find(TagDFName)
	if !ok || !bytesEqual(dfName.Value, app.AID) {
		ctx.Candidates.RemoveAt(i)
		return result(ResAppFciParseFailed, resp.SW, fmt.Errorf("DF name mismatch"))
	}

	app.FCI = fci
	ctx.Candidates.RemoveAt(i)
	ctx.Selected = app
	ctx.SelectionState = SelAppSelected
	return nil
}
