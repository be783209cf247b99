// Package emv implements the host-side core of an EMV 4.4 contact/contactless
// terminal: BER-TLV and DOL processing, ATR parsing, the ISO/IEC 7816-4 APDU
// transport layer, the terminal application layer (TAL), application
// selection, offline data authentication (ODA), and the transaction state
// machine with terminal risk management.
//
// The package does not talk to hardware directly. Callers supply a
// Transceive callback (see Context) that exchanges a single C-APDU for a
// single R-APDU; pkg/emv/reader provides one concrete implementation over
// PC/SC. Cryptographic primitives (SHA-1, RSA signature recovery) are
// likewise supplied by the caller through the Context's RSARecover and Hash
// function fields — this
// package contains no key material and performs no modular exponentiation.
package emv
