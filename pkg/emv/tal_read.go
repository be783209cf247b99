package emv

import "fmt"

// readRecord issues READ RECORD (CLA=00, INS=B2) for recordNum within the
// given SFI, with Le=0 (§4.4).
func (ctx *Context) readRecord(sfi, recordNum byte) (RAPDU, error) {
	p2 := (sfi << 3) | 0x04 // b3-b1 = 100 (SFI addressing, P1=record number)
	cmd := NewCAPDU(0x00, 0xB2, recordNum, p2).WithLe(0x00)
	return ctx.transceive(cmd)
}

// GetProcessingOptions implements §4.4's GPO: build PDOL data against
// Params then Config, wrap it in the command template (tag 0x83), issue
// GET PROCESSING OPTIONS, and parse the AIP/AFL out of either response
// format.
func GetProcessingOptions(ctx *Context) error {
	var pdolData []byte
	if pdol, ok := ctx.Selected.FCI.Find(TagPDOL); ok {
		data, err := BuildDolData(pdol.Value, ctx.Params, ctx.Config)
		if err != nil {
			return fatal(ErrGpoFailed, 0, err)
		}
		pdolData = data
	}

	cmdData := encodeOne(TagCommandTemplate, pdolData)
	cmd := NewCAPDU(0x80, 0xA8, 0x00, 0x00).WithData(cmdData).WithLe(0x00)
	resp, err := ctx.transceive(cmd)
	if err != nil {
		return err
	}
	if resp.SW == 0x6985 {
		return result(ResGpoConditionsNotSatisfied, resp.SW, nil)
	}
	if !resp.OK() {
		return fatal(ErrGpoFailed, resp.SW, nil)
	}

	aip, afl, err := parseGPOResponse(resp.Data)
	if err != nil {
		return fatal(ErrGpoParseFailed, resp.SW, err)
	}
	if aip == nil || afl == nil {
		return fatal(ErrGpoFieldNotFound, resp.SW, nil)
	}

	ctx.ICC.Set(TagAIP, aip)
	ctx.ICC.Set(TagAFL, afl)
	entries, err := ParseAFL(afl)
	if err != nil {
		return fatal(ErrAflInvalid, 0, err)
	}
	ctx.AFL = entries
	ctx.TxnState = TxnProcessingOptions
	return nil
}

// parseGPOResponse handles both GPO response formats (§4.4): format 1 is
// tag 0x80 containing AIP(2) || AFL; format 2 is template 0x77 containing
// tagged AIP=0x82 and AFL=0x94.
func parseGPOResponse(data []byte) (aip, afl []byte, err error) {
	triples, derr := Decode(data, DecodePolicy{})
	if derr != nil {
		return nil, nil, derr
	}
	if len(triples) == 0 {
		return nil, nil, fmt.Errorf("emv: empty GPO response")
	}
	switch triples[0].Tag {
	case TagRespMsgTpl1:
		v := triples[0].Value
		if len(v) < 2 {
			return nil, nil, fmt.Errorf("emv: GPO format 1 response too short")
		}
		return v[:2], v[2:], nil
	case TagRespMsgTpl2:
		list := NewList()
		if err := DecodeEMV(triples[0].Value, list); err != nil {
			return nil, nil, err
		}
		aipF, _ := list.Find(TagAIP)
		aflF, _ := list.Find(TagAFL)
		return aipF.Value, aflF.Value, nil
	default:
		return nil, nil, fmt.Errorf("emv: unrecognised GPO response template %s", triples[0].Tag)
	}
}

// ReadApplicationData implements §4.4's "Read AFL records" and §4.6's ODA
// buffer assembly: iterate AFL entries in order, READ RECORD each record
// number, append constructed-template bodies (SFI<=10) or raw bodies
// (SFI 11..30) to the ICC list, and append the first OdaRecordCount
// records of each entry to the ODA buffer, in record-number ascending
// order (§4.6 "Ordering").
func ReadApplicationData(ctx *Context) error {
	ctx.ODA = NewODAContext(ctx.Selected.AID)
	anyOdaInvalid := false

	for _, entry := range ctx.AFL {
		for recNum := entry.FirstRecord; recNum <= entry.LastRecord; recNum++ {
			resp, err := ctx.readRecord(entry.SFI, recNum)
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fatal(ErrReadRecordFailed, resp.SW, nil)
			}

			includeInOda := recNum-entry.FirstRecord < entry.OdaRecordCount
			body := resp.Data
			recordInvalid := false

			if entry.SFI <= 10 {
				list := NewList()
				if derr := DecodeEMV(resp.Data, list); derr != nil {
					if !includeInOda {
						return fatal(ErrReadRecordParseFailed, 0, derr)
					}
					recordInvalid = true
				} else if tpl, ok := list.Find(TagRecordTemplate); !ok {
					if !includeInOda {
						return fatal(ErrReadRecordInvalid, 0, fmt.Errorf("record missing template 0x70"))
					}
					recordInvalid = true
				} else {
					body = tpl.Value
					innerList := NewList()
					_ = DecodeEMV(tpl.Value, innerList)
					for _, f := range innerList.All() {
						ctx.ICC.Push(f)
					}
				}
			} else {
				list := NewList()
				if derr := DecodeEMV(resp.Data, list); derr == nil {
					for _, f := range list.All() {
						ctx.ICC.Push(f)
					}
				}
			}

			if recordInvalid {
				anyOdaInvalid = true
				ctx.logger().Warn("oda record invalid, skipping contribution to ODA buffer",
					"sfi", entry.SFI, "record", recNum)
				continue
			}
			if includeInOda {
				ctx.ODA.Buffer = append(ctx.ODA.Buffer, body...)
			}
		}
	}

	if anyOdaInvalid {
		return result(ResOdaRecordInvalid, 0, nil)
	}
	ctx.TxnState = TxnReadingAppData
	return nil
}

// GetData issues GET DATA (CLA=80, INS=CA) for the given two-byte tag
// (§4.4). Field-not-present responses (6A88, 6A81) map to the continuable
// GetDataFailed result.
func GetData(ctx *Context, tag Tag) ([]byte, error) {
	tb := tag.Bytes()
	var p1, p2 byte
	switch len(tb) {
	case 1:
		p1, p2 = 0x9F, tb[0]
	case 2:
		p1, p2 = tb[0], tb[1]
	default:
		return nil, fatal(ErrInvalidParameter, 0, fmt.Errorf("GET DATA tag must encode to 1-2 bytes"))
	}
	cmd := NewCAPDU(0x80, 0xCA, p1, p2).WithLe(0x00)
	resp, err := ctx.transceive(cmd)
	if err != nil {
		return nil, err
	}
	if resp.SW == 0x6A88 || resp.SW == 0x6A81 {
		return nil, result(ResGetDataFailed, resp.SW, nil)
	}
	if !resp.OK() {
		return nil, fatal(ErrGetDataParseFailed, resp.SW, nil)
	}
	list := NewList()
	if err := DecodeEMV(resp.Data, list); err != nil {
		return nil, fatal(ErrGetDataParseFailed, resp.SW, err)
	}
	f, ok := list.Find(tag)
	if !ok {
		return nil, result(ResGetDataFailed, resp.SW, nil)
	}
	return f.Value, nil
}
