package emv

import "fmt"

// RSARecoverFunc recovers the modulus-length plaintext of an RSA
// signature given its modulus and public exponent (§6 "rsa_recover").
type RSARecoverFunc func(modulus, exponent, signature []byte) []byte

// HashFunc computes the SHA-1 digest of data (§6 "sha1"). Returns exactly
// 20 bytes.
type HashFunc func(data []byte) [20]byte

// PublicKey is an RSA public key as stored in the CA key registry (§6):
// modulus and exponent, both big-endian, unpadded.
type PublicKey struct {
	Modulus  []byte
	Exponent []byte
}

// CARegistry is the read-only CA public key lookup (§6): keyed by RID
// (AID's first 5 bytes) and CA public key index (tag 0x8F).
type CARegistry struct {
	keys map[caKey]PublicKey
}

type caKey struct {
	rid   [5]byte
	index byte
}

// NewCARegistry returns an empty, mutable-until-published CA registry.
// Once handed to a Context it is treated as read-only (§5).
func NewCARegistry() *CARegistry {
	return &CARegistry{keys: make(map[caKey]PublicKey)}
}

// Add registers a CA public key for the given RID and index.
func (r *CARegistry) Add(rid [5]byte, index byte, key PublicKey) {
	r.keys[caKey{rid, index}] = key
}

// Lookup returns the CA public key for rid/index, if registered.
func (r *CARegistry) Lookup(rid [5]byte, index byte) (PublicKey, bool) {
	k, ok := r.keys[caKey{rid, index}]
	return k, ok
}

const (
	certHeaderByte     byte = 0x6A
	certTrailerByte    byte = 0xBC
	certFormatIssuer   byte = 0x02
	hashAlgoSHA1       byte = 0x01
	pkAlgoRSA          byte = 0x01
	certTypeSDA        byte = 0x03
	certTypeDDA        byte = 0x05
)

// issuerKey is the recovered and reassembled Issuer Public Key, along with
// the certificate's declared issuer identifier for PAN-prefix validation.
type issuerKey struct {
	PublicKey
	IssuerIdentifier []byte // leftmost PAN digits, 0xFF padded
}

// recoverCAKey implements §4.6 step 1: look up the CA public key by the
// AID's RID and the card-supplied CA PKI index (0x8F). A missing key is
// IccDataMissing and sets TVR "ODA not performed".
func recoverCAKey(ctx *Context) (PublicKey, error) {
	if ctx.CAKeys == nil {
		setTVR(ctx.Terminal, tvrOfflineDataAuthNotPerformed)
		return PublicKey{}, result(ResIccDataMissing, 0, fmt.Errorf("no CA key registry configured"))
	}
	idxF, ok := ctx.ICC.Find(TagCAPKIndex)
	if !ok || len(idxF.Value) != 1 {
		setTVR(ctx.Terminal, tvrOfflineDataAuthNotPerformed)
		return PublicKey{}, result(ResIccDataMissing, 0, fmt.Errorf("missing CA public key index 0x8F"))
	}
	var rid [5]byte
	copy(rid[:], ctx.ODA.AID)

	key, ok := ctx.CAKeys.Lookup(rid, idxF.Value[0])
	if !ok {
		setTVR(ctx.Terminal, tvrOfflineDataAuthNotPerformed)
		return PublicKey{}, result(ResIccDataMissing, 0, fmt.Errorf("no CA key for RID=%X index=%02X", rid, idxF.Value[0]))
	}
	return key, nil
}

// recoverIssuerKey implements §4.6 step 2: recover 0x90 under the CA key,
// validate the recovered structure, and reassemble the full issuer public
// key from the recovered leftmost bytes, the remainder (0x92), and the
// exponent (0x9F32).
func recoverIssuerKey(ctx *Context, caKey PublicKey) (*issuerKey, error) {
	certF, ok := ctx.ICC.Find(TagIssuerPKCertificate)
	if !ok {
		return nil, fmt.Errorf("missing issuer PK certificate 0x90")
	}
	exponentF, ok := ctx.ICC.Find(TagIssuerPKExponent)
	if !ok {
		return nil, fmt.Errorf("missing issuer PK exponent 0x9F32")
	}
	var remainder []byte
	if r, ok := ctx.ICC.Find(TagIssuerPKRemainder); ok {
		remainder = r.Value
	}

	plain := ctx.RSARecover(caKey.Modulus, caKey.Exponent, certF.Value)
	if len(plain) < 36 {
		return nil, fmt.Errorf("recovered issuer certificate too short")
	}
	if plain[0] != certHeaderByte || plain[len(plain)-1] != certTrailerByte {
		return nil, fmt.Errorf("issuer certificate header/trailer mismatch")
	}
	if plain[1] != certFormatIssuer {
		return nil, fmt.Errorf("issuer certificate format mismatch")
	}
	hashAlgo := plain[11]
	pkAlgo := plain[12]
	if hashAlgo != hashAlgoSHA1 {
		return nil, fmt.Errorf("unsupported issuer certificate hash algorithm %02X", hashAlgo)
	}
	if pkAlgo != pkAlgoRSA {
		return nil, fmt.Errorf("unsupported issuer certificate PK algorithm %02X", pkAlgo)
	}

	issuerIdentifier := append([]byte{}, plain[2:6]...)
	pkLeftmost := plain[15 : len(plain)-21]

	embeddedHash := plain[len(plain)-21 : len(plain)-1]
	hashInput := append([]byte{}, plain[1:len(plain)-21]...)
	hashInput = append(hashInput, remainder...)
	hashInput = append(hashInput, exponentF.Value...)
	digest := ctx.Hash(hashInput)
	if !bytesEqual(digest[:], embeddedHash) {
		return nil, fmt.Errorf("issuer certificate hash mismatch")
	}

	modulus := append(append([]byte{}, pkLeftmost...), remainder...)
	return &issuerKey{
		PublicKey:        PublicKey{Modulus: modulus, Exponent: exponentF.Value},
		IssuerIdentifier: issuerIdentifier,
	}, nil
}

// recoverICCKey implements §4.6 step 3 (DDA only): recover 0x9F46 under
// the issuer key and reassemble the ICC public key from the recovered
// leftmost bytes, remainder (0x9F48), and exponent (0x9F47).
func recoverICCKey(ctx *Context, iss *issuerKey) (PublicKey, error) {
	certF, ok := ctx.ICC.Find(TagICCPKCertificate)
	if !ok {
		return PublicKey{}, fmt.Errorf("missing ICC PK certificate 0x9F46")
	}
	exponentF, ok := ctx.ICC.Find(TagICCPKExponent)
	if !ok {
		return PublicKey{}, fmt.Errorf("missing ICC PK exponent 0x9F47")
	}
	var remainder []byte
	if r, ok := ctx.ICC.Find(TagICCPKRemainder); ok {
		remainder = r.Value
	}

	plain := ctx.RSARecover(iss.Modulus, iss.Exponent, certF.Value)
	if len(plain) < 36 {
		return PublicKey{}, fmt.Errorf("recovered ICC certificate too short")
	}
	if plain[0] != certHeaderByte || plain[len(plain)-1] != certTrailerByte {
		return PublicKey{}, fmt.Errorf("ICC certificate header/trailer mismatch")
	}
	issuerIdPrefix := plain[2:6]
	if !bytesEqual(issuerIdPrefix, iss.IssuerIdentifier) {
		return PublicKey{}, fmt.Errorf("ICC certificate PAN prefix mismatch")
	}

	embeddedHash := plain[len(plain)-21 : len(plain)-1]
	hashInput := append([]byte{}, plain[1:len(plain)-21]...)
	hashInput = append(hashInput, remainder...)
	hashInput = append(hashInput, exponentF.Value...)
	digest := ctx.Hash(hashInput)
	if !bytesEqual(digest[:], embeddedHash) {
		return PublicKey{}, fmt.Errorf("ICC certificate hash mismatch")
	}

	pkLeftmost := plain[21 : len(plain)-21]
	modulus := append(append([]byte{}, pkLeftmost...), remainder...)
	return PublicKey{Modulus: modulus, Exponent: exponentF.Value}, nil
}
