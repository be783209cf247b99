package emv

import "fmt"

// InternalAuthenticate implements §4.4's INTERNAL AUTHENTICATE: issue the
// command with the supplied DDOL data and parse the SDAD out of either
// response format (tag 0x80 for format 1, or template 0x77 containing
// 0x9F4B for format 2).
func InternalAuthenticate(ctx *Context, ddolData []byte) ([]byte, error) {
	cmd := NewCAPDU(0x00, 0x88, 0x00, 0x00).WithData(ddolData).WithLe(0x00)
	resp, err := ctx.transceive(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fatal(ErrIntAuthFailed, resp.SW, nil)
	}

	triples, derr := Decode(resp.Data, DecodePolicy{})
	if derr != nil || len(triples) == 0 {
		return nil, fatal(ErrIntAuthParseFailed, resp.SW, derr)
	}

	switch triples[0].Tag {
	case TagRespMsgTpl1:
		return triples[0].Value, nil
	case TagRespMsgTpl2:
		list := NewList()
		if err := DecodeEMV(triples[0].Value, list); err != nil {
			return nil, fatal(ErrIntAuthParseFailed, resp.SW, err)
		}
		sdad, ok := list.Find(TagSDAD)
		if !ok {
			return nil, fatal(ErrIntAuthFieldNotFound, resp.SW, nil)
		}
		return sdad.Value, nil
	default:
		return nil, fatal(ErrIntAuthParseFailed, resp.SW, fmt.Errorf("unrecognised response template %s", triples[0].Tag))
	}
}
