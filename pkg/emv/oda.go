package emv

// Method identifies which Offline Data Authentication method a
// transaction used (§4.6).
type Method int

const (
	MethodNone Method = iota
	MethodSDA
	MethodDDA
	MethodCDA
)

// AIP (tag 0x82) byte 1 bits advertising card support for each ODA
// method, in their EMV Book 3 annex C positions.
const (
	aipSDA byte = 0x40
	aipDDA byte = 0x20
	aipCDA byte = 0x01 // AIP byte 1 bit 1, EMV 4.4 Book 3 annex C
)

// Terminal Capabilities (0x9F33) byte 3 ("Security Capability") ODA bits
// (EMV 4.4 Book 4 annex A).
const (
	termCapSDA byte = 0x80
	termCapDDA byte = 0x40
	termCapCDA byte = 0x08
)

// ODAContext holds the ODA buffer, the AID and the chosen ODA method (§3);
// TVR and TSI stay in Context.Terminal. It is created fresh per
// transaction by ReadApplicationData and cleared on terminate.
type ODAContext struct {
	Buffer []byte
	AID    []byte
	Method Method
}

// NewODAContext returns an empty ODA context for the given AID.
func NewODAContext(aid []byte) *ODAContext {
	return &ODAContext{AID: append([]byte{}, aid...)}
}

// SelectODAMethod implements §4.6's selection rule: inspect the AIP in
// order of preference CDA > DDA > SDA, picking the strongest method the
// card (AIP) and terminal (9F33) both support. If none match, TVR "ODA
// not performed" is set and NoSupportedMethod is returned.
func SelectODAMethod(ctx *Context) (Method, error) {
	aip, ok := ctx.ICC.Find(TagAIP)
	if !ok || len(aip.Value) < 1 {
		setTVR(ctx.Terminal, tvrOfflineDataAuthNotPerformed)
		return MethodNone, result(ResNoSupportedMethod, 0, nil)
	}
	var termCaps byte
	if tc, ok := ctx.Config.Find(TagTerminalCapabilities); ok && len(tc.Value) >= 3 {
		termCaps = tc.Value[2]
	}

	cardBits := aip.Value[0]
	switch {
	case cardBits&aipCDA != 0 && termCaps&termCapCDA != 0:
		return MethodCDA, nil
	case cardBits&aipDDA != 0 && termCaps&termCapDDA != 0:
		return MethodDDA, nil
	case cardBits&aipSDA != 0 && termCaps&termCapSDA != 0:
		return MethodSDA, nil
	default:
		setTVR(ctx.Terminal, tvrOfflineDataAuthNotPerformed)
		return MethodNone, result(ResNoSupportedMethod, 0, nil)
	}
}

// PerformODA implements the ODA step of §4.7's transaction sequence:
// select a method, run it, and update TVR/TSI before returning. SDA runs
// performSDA; DDA and CDA both run performDDA (INTERNAL AUTHENTICATE).
// The CDA signature carried in a GENERATE AC response is stored by
// GenerateAC as 0x9F4B but is not verified anywhere in this package.
func PerformODA(ctx *Context) error {
	method, err := SelectODAMethod(ctx)
	if err != nil {
		return err
	}
	ctx.ODA.Method = method

	switch method {
	case MethodSDA:
		return performSDA(ctx)
	case MethodDDA, MethodCDA:
		return performDDA(ctx)
	default:
		return nil
	}
}
