package emv

import "fmt"

// CryptogramType selects the cryptogram requested from GENERATE AC
// (§4.4).
type CryptogramType byte

const (
	CryptogramAAC  CryptogramType = 0x00
	CryptogramTC   CryptogramType = 0x40
	CryptogramARQC CryptogramType = 0x80
)

// GenAcRequest carries GENERATE AC's reference control parameter options
// (§4.4): the requested cryptogram type, optionally combined with CDA.
type GenAcRequest struct {
	Type       CryptogramType
	RequestCDA bool
	CDOLData   []byte
}

// GenAcResponse is the parsed GENERATE AC output (§4.4): CID, ATC, the
// application cryptogram, and optionally Issuer Application Data and (for
// CDA) the SDAD.
type GenAcResponse struct {
	CID                   byte
	ATC                   uint16
	ApplicationCryptogram []byte
	IssuerApplicationData []byte
	SDAD                  []byte
}

// GenerateAC implements §4.4's GENERATE AC: build the reference control
// parameter byte, issue the command with CDOL-built data, and parse CID,
// ATC, and AC out of either response format. Missing CID/ATC/AC is fatal
// (GenAcFieldNotFound).
func GenerateAC(ctx *Context, req GenAcRequest) (*GenAcResponse, error) {
	refControl := byte(req.Type)
	if req.RequestCDA {
		refControl |= 0x10
	}
	cmd := NewCAPDU(0x80, 0xAE, refControl, 0x00).WithData(req.CDOLData).WithLe(0x00)
	resp, err := ctx.transceive(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fatal(ErrGenAcFailed, resp.SW, nil)
	}

	triples, derr := Decode(resp.Data, DecodePolicy{})
	if derr != nil || len(triples) == 0 {
		return nil, fatal(ErrGenAcParseFailed, resp.SW, derr)
	}

	var out *GenAcResponse
	switch triples[0].Tag {
	case TagRespMsgTpl1:
		out, err = parseGenAcFormat1(triples[0].Value)
	case TagRespMsgTpl2:
		out, err = parseGenAcFormat2(triples[0].Value)
	default:
		return nil, fatal(ErrGenAcParseFailed, resp.SW, fmt.Errorf("unrecognised response template %s", triples[0].Tag))
	}
	if err != nil {
		return nil, err
	}

	ctx.ICC.Set(TagCID, []byte{out.CID})
	ctx.ICC.Set(TagATC, []byte{byte(out.ATC >> 8), byte(out.ATC)})
	ctx.ICC.Set(TagApplicationCryptogram, out.ApplicationCryptogram)
	if out.IssuerApplicationData != nil {
		ctx.ICC.Set(TagIssuerAppData, out.IssuerApplicationData)
	}
	if out.SDAD != nil {
		ctx.ICC.Set(TagSDAD, out.SDAD)
	}
	return out, nil
}

// parseGenAcFormat1 parses the format-1 response: CID(1) ‖ ATC(2) ‖
// AC(8) ‖ [IAD].
func parseGenAcFormat1(v []byte) (*GenAcResponse, error) {
	if len(v) < 11 {
		return nil, fatal(ErrGenAcFieldNotFound, 0, fmt.Errorf("format 1 GENERATE AC response too short"))
	}
	out := &GenAcResponse{
		CID:                   v[0],
		ATC:                   uint16(v[1])<<8 | uint16(v[2]),
		ApplicationCryptogram: v[3:11],
	}
	if len(v) > 11 {
		out.IssuerApplicationData = v[11:]
	}
	return out, nil
}

// parseGenAcFormat2 parses the format-2 (template 0x77) response: tagged
// sub-fields for CID, ATC, AC, and optionally IAD/SDAD.
func parseGenAcFormat2(data []byte) (*GenAcResponse, error) {
	list := NewList()
	if err := DecodeEMV(data, list); err != nil {
		return nil, fatal(ErrGenAcParseFailed, 0, err)
	}
	cidF, ok := list.Find(TagCID)
	if !ok || len(cidF.Value) != 1 {
		return nil, fatal(ErrGenAcFieldNotFound, 0, fmt.Errorf("missing CID"))
	}
	atcF, ok := list.Find(TagATC)
	if !ok || len(atcF.Value) != 2 {
		return nil, fatal(ErrGenAcFieldNotFound, 0, fmt.Errorf("missing ATC"))
	}
	acF, ok := list.Find(TagApplicationCryptogram)
	if !ok {
		return nil, fatal(ErrGenAcFieldNotFound, 0, fmt.Errorf("missing application cryptogram"))
	}
	out := &GenAcResponse{
		CID:                   cidF.Value[0],
		ATC:                   uint16(atcF.Value[0])<<8 | uint16(atcF.Value[1]),
		ApplicationCryptogram: acF.Value,
	}
	if iad, ok := list.Find(TagIssuerAppData); ok {
		out.IssuerApplicationData = iad.Value
	}
	if sdad, ok := list.Find(TagSDAD); ok {
		out.SDAD = sdad.Value
	}
	return out, nil
}
