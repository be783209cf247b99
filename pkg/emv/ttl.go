package emv

import "log/slog"

// Transceive exchanges one command APDU for one response APDU (§6). It is
// the sole suspension point in this library (§5): everything else is pure
// computation on owned buffers. Implementations return at most rxCap+2
// bytes, the trailing two always being SW1SW2.
type Transceive func(tx []byte, rxCap int) ([]byte, error)

const defaultRxCap = 256

// transceive implements the ISO/IEC 7816-4 transport layer (TTL, §4.3):
// case-1/2/3/4 APDU handling, transparent 61xx GET RESPONSE chaining, and
// 6Cxx re-issue with the corrected Le. It is single-threaded and strictly
// synchronous — one command in flight at a time (§5).
func (ctx *Context) transceive(cmd CAPDU) (RAPDU, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return RAPDU{}, fatal(ErrInvalidParameter, 0, err)
	}

	rxCap := defaultRxCap
	if cmd.LePresent && cmd.Le > 0 {
		rxCap = cmd.Le
	}

	resp, err := ctx.transmitOnce(raw, rxCap)
	if err != nil {
		return RAPDU{}, err
	}

	for resp.SW1() == 0x61 {
		ctx.logger().Debug("ttl: 61xx chaining, issuing GET RESPONSE", "le", resp.SW2())
		getResp := NewCAPDU(0x00, 0xC0, 0x00, 0x00).WithLe(int(resp.SW2()))
		grRaw, err := getResp.Bytes()
		if err != nil {
			return RAPDU{}, fatal(ErrInternal, 0, err)
		}
		next, err := ctx.transmitOnce(grRaw, int(resp.SW2()))
		if err != nil {
			return RAPDU{}, err
		}
		resp.Data = append(resp.Data, next.Data...)
		resp.SW = next.SW
	}

	if resp.SW1() == 0x6C {
		correctLe := resp.SW2()
		ctx.logger().Debug("ttl: 6Cxx wrong Le, retransmitting", "correct_le", correctLe)
		retry := cmd.WithLe(int(correctLe))
		retryRaw, err := retry.Bytes()
		if err != nil {
			return RAPDU{}, fatal(ErrInternal, 0, err)
		}
		resp, err = ctx.transmitOnce(retryRaw, int(correctLe))
		if err != nil {
			return RAPDU{}, err
		}
		// A second round of 61xx chaining can follow a 6Cxx retry.
		for resp.SW1() == 0x61 {
			getResp := NewCAPDU(0x00, 0xC0, 0x00, 0x00).WithLe(int(resp.SW2()))
			grRaw, err := getResp.Bytes()
			if err != nil {
				return RAPDU{}, fatal(ErrInternal, 0, err)
			}
			next, err := ctx.transmitOnce(grRaw, int(resp.SW2()))
			if err != nil {
				return RAPDU{}, err
			}
			resp.Data = append(resp.Data, next.Data...)
			resp.SW = next.SW
		}
	}

	if cmd.INS == 0xA4 && (resp.SW == 0x6A81 || resp.SW == 0x9303) {
		return resp, fatal(ErrCardBlocked, resp.SW, nil)
	}

	return resp, nil
}

// transmitOnce performs exactly one reader-callback round trip and parses
// the result, mapping callback errors to the fatal ReaderFailure kind
// (§4.3, §6).
func (ctx *Context) transmitOnce(raw []byte, rxCap int) (RAPDU, error) {
	if ctx.Reader == nil {
		return RAPDU{}, fatal(ErrInternal, 0, nil)
	}
	raw2, err := ctx.Reader(raw, rxCap)
	if err != nil {
		return RAPDU{}, fatal(ErrReaderFailure, 0, &ReaderError{Cause: err})
	}
	return parseRAPDU(raw2)
}

func (ctx *Context) logger() *slog.Logger {
	if ctx.Logger != nil {
		return ctx.Logger
	}
	return slog.Default()
}
