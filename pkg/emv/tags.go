package emv

// EMV tag constants used throughout selection, the TAL, ODA, and risk
// management (§3). Named the way the teacher names its ISO 7816/DESFire
// status-word constants: one block, grouped by where they're used.
const (
	TagUnknownDiscretionary Tag = 0x62

	// Directory / FCI (§4.3, §4.5)
	TagFCITemplate           Tag = 0x6F
	TagDFName                Tag = 0x84
	TagFCIProprietaryTpl     Tag = 0xA5
	TagSFI                   Tag = 0x88
	TagApplicationLabel      Tag = 0x50
	TagAppPriorityIndicator  Tag = 0x87
	TagLanguagePreference    Tag = 0x5F2D
	TagIssuerCodeTableIndex  Tag = 0x9F11
	TagApplicationPreferred  Tag = 0x9F12
	TagPDOL                  Tag = 0x9F38
	TagFCIIssuerDiscretionary Tag = 0xBF0C
	TagRecordTemplate        Tag = 0x70
	TagADFEntry              Tag = 0x61
	TagADFName               Tag = 0x4F

	// GPO (§4.4)
	TagCommandTemplate Tag = 0x83
	TagRespMsgTpl1     Tag = 0x80
	TagRespMsgTpl2     Tag = 0x77
	TagAIP             Tag = 0x82
	TagAFL             Tag = 0x94

	// Cardholder / transaction data (§3, §4.7, §4.8)
	TagPAN                  Tag = 0x5A
	TagPANSequenceNumber    Tag = 0x5F34
	TagAmountAuthorized     Tag = 0x9F02
	TagAmountOther          Tag = 0x9F03
	TagAmountAuthorizedBin  Tag = 0x81
	TagTerminalCountryCode  Tag = 0x9F1A
	TagTransactionCurrency  Tag = 0x5F2A
	TagTransactionDate      Tag = 0x9A
	TagTransactionType      Tag = 0x9C
	TagUnpredictableNumber  Tag = 0x9F37
	TagApplicationAID       Tag = 0x9F06
	TagTerminalFloorLimit   Tag = 0x9F1B
	TagTerminalCapabilities Tag = 0x9F33
	TagAdditionalTermCaps   Tag = 0x9F40
	TagTerminalType         Tag = 0x9F35
	TagTerminalID           Tag = 0x9F1C
	TagIFDSerialNumber      Tag = 0x9F1E

	// GET DATA / velocity checking (§4.4, §4.8)
	TagATC           Tag = 0x9F36
	TagLastOnlineATC Tag = 0x9F13
	TagLCOL          Tag = 0x9F14
	TagUCOL          Tag = 0x9F23

	// DDA / INTERNAL AUTHENTICATE (§4.4, §4.6)
	TagDDOL               Tag = 0x9F49
	TagSDAD               Tag = 0x9F4B
	TagICCDynamicNumber   Tag = 0x9F4C

	// GENERATE AC (§4.4)
	TagCID                 Tag = 0x9F27
	TagApplicationCryptogram Tag = 0x9F26
	TagIssuerAppData       Tag = 0x9F10
	TagCDOL1               Tag = 0x8C
	TagCDOL2               Tag = 0x8D

	// ODA certificate chain (§4.6)
	TagCAPKIndex              Tag = 0x8F
	TagIssuerPKCertificate    Tag = 0x90
	TagIssuerPKRemainder      Tag = 0x92
	TagIssuerPKExponent       Tag = 0x9F32
	TagSignedStaticAppData    Tag = 0x93
	TagICCPKCertificate       Tag = 0x9F46
	TagICCPKRemainder         Tag = 0x9F48
	TagICCPKExponent          Tag = 0x9F47
	TagDataAuthCode           Tag = 0x9F45
	TagApplicationEffective  Tag = 0x5F25
	TagApplicationExpiration Tag = 0x5F24
)
