package emv

import "fmt"

// performSDA implements §4.6's SDA: recover 0x93 under the issuer key,
// validate its header/trailer/type, hash (ODA buffer ‖ AIP) and compare
// to the embedded hash. On success the Data Authentication Code is
// extracted and pushed to the icc list as 0x9F45. A missing CA key is
// reported by recoverCAKey as IccDataMissing; every other failure sets TVR
// "SDA failed" and returns SdaFailed.
func performSDA(ctx *Context) error {
	caKey, err := recoverCAKey(ctx)
	if err != nil {
		return err
	}
	iss, err := recoverIssuerKey(ctx, caKey)
	if err != nil {
		setTVR(ctx.Terminal, tvrSdaFailed)
		return result(ResSdaFailed, 0, err)
	}

	ssadF, ok := ctx.ICC.Find(TagSignedStaticAppData)
	if !ok {
		setTVR(ctx.Terminal, tvrSdaFailed)
		return result(ResSdaFailed, 0, fmt.Errorf("missing signed static application data 0x93"))
	}

	plain := ctx.RSARecover(iss.Modulus, iss.Exponent, ssadF.Value)
	if len(plain) < 26 || plain[0] != certHeaderByte || plain[len(plain)-1] != certTrailerByte || plain[1] != certTypeSDA {
		setTVR(ctx.Terminal, tvrSdaFailed)
		return result(ResSdaFailed, 0, fmt.Errorf("SSAD header/type/trailer mismatch"))
	}

	aipF, ok := ctx.ICC.Find(TagAIP)
	if !ok {
		setTVR(ctx.Terminal, tvrSdaFailed)
		return result(ResSdaFailed, 0, fmt.Errorf("missing AIP for SDA hash"))
	}
	hashInput := append(append([]byte{}, ctx.ODA.Buffer...), aipF.Value...)
	digest := ctx.Hash(hashInput)
	embeddedHash := plain[len(plain)-21 : len(plain)-1]
	if !bytesEqual(digest[:], embeddedHash) {
		setTVR(ctx.Terminal, tvrSdaFailed)
		return result(ResSdaFailed, 0, fmt.Errorf("SSAD hash mismatch"))
	}

	dac := plain[2:4]
	ctx.ICC.Set(TagDataAuthCode, append([]byte{}, dac...))
	setTSI(ctx.Terminal, tsiOdaPerformed)
	clearTVR(ctx.Terminal, tvrSdaFailed)
	return nil
}
