package emv

import (
	"crypto/rand"
	"fmt"
)

// defaultDDOL is used when the card's FCI/record data carries no DDOL
// (9F49): a single 4-byte unpredictable number field, the minimum EMV
// 4.4 Book 3 §10.3 requires for DDA.
var defaultDDOL = []byte{byte(TagUnpredictableNumber >> 8), byte(TagUnpredictableNumber & 0xFF), 0x04}

// performDDA implements §4.6's DDA: generate the terminal unpredictable
// number, build DDOL data, run INTERNAL AUTHENTICATE, recover the SDAD
// under the ICC public key, validate it, and extract the ICC Dynamic
// Number (0x9F4C). A missing CA key is reported by recoverCAKey as
// IccDataMissing, and errors from the random source or from INTERNAL
// AUTHENTICATE are returned as they are; every other failure sets TVR "DDA
// failed" and returns DdaFailed.
func performDDA(ctx *Context) error {
	caKey, err := recoverCAKey(ctx)
	if err != nil {
		return err
	}
	iss, err := recoverIssuerKey(ctx, caKey)
	if err != nil {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, err)
	}
	iccKey, err := recoverICCKey(ctx, iss)
	if err != nil {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, err)
	}

	un := make([]byte, 4)
	if _, err := rand.Read(un); err != nil {
		return fatal(ErrInternal, 0, err)
	}
	ctx.Params.Set(TagUnpredictableNumber, un)

	ddol := defaultDDOL
	if d, ok := ctx.Selected.FCI.Find(TagDDOL); ok {
		ddol = d.Value
	}
	ddolData, err := BuildDolData(ddol, ctx.Params, ctx.Config)
	if err != nil {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, err)
	}

	sdad, err := InternalAuthenticate(ctx, ddolData)
	if err != nil {
		return err
	}

	plain := ctx.RSARecover(iccKey.Modulus, iccKey.Exponent, sdad)
	if len(plain) < 26 || plain[0] != certHeaderByte || plain[len(plain)-1] != certTrailerByte || plain[1] != certTypeDDA {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, fmt.Errorf("SDAD header/type/trailer mismatch"))
	}

	iccDynNumLen := int(plain[2])
	if iccDynNumLen < 0 || 3+iccDynNumLen > len(plain)-21 {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, fmt.Errorf("ICC dynamic number length out of range"))
	}
	iccDynNum := plain[3 : 3+iccDynNumLen]

	hashInput := append(append([]byte{}, plain[1:len(plain)-21]...), ddolData...)
	digest := ctx.Hash(hashInput)
	embeddedHash := plain[len(plain)-21 : len(plain)-1]
	if !bytesEqual(digest[:], embeddedHash) {
		setTVR(ctx.Terminal, tvrDdaFailed)
		return result(ResDdaFailed, 0, fmt.Errorf("SDAD hash mismatch"))
	}

	ctx.ICC.Set(TagICCDynamicNumber, append([]byte{}, iccDynNum...))
	setTSI(ctx.Terminal, tsiOdaPerformed)
	clearTVR(ctx.Terminal, tvrDdaFailed)
	return nil
}
