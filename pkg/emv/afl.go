package emv

import "fmt"

// AFLEntry is one Application File Locator entry (§3): which records to
// read for one SFI, and how many of them feed the ODA buffer.
type AFLEntry struct {
	SFI            byte
	FirstRecord    byte
	LastRecord     byte
	OdaRecordCount byte
}

// Validate checks the AFL entry invariants from §3: SFI in [1,30],
// FirstRecord >= 1, LastRecord >= FirstRecord, OdaRecordCount <=
// LastRecord-FirstRecord+1.
func (e AFLEntry) Validate() error {
	if e.SFI < 1 || e.SFI > 30 {
		return fmt.Errorf("emv: AFL entry SFI %d out of range [1,30]", e.SFI)
	}
	if e.FirstRecord < 1 {
		return fmt.Errorf("emv: AFL entry first record %d must be >= 1", e.FirstRecord)
	}
	if e.LastRecord < e.FirstRecord {
		return fmt.Errorf("emv: AFL entry last record %d < first record %d", e.LastRecord, e.FirstRecord)
	}
	span := int(e.LastRecord) - int(e.FirstRecord) + 1
	if int(e.OdaRecordCount) > span {
		return fmt.Errorf("emv: AFL entry ODA record count %d exceeds span %d", e.OdaRecordCount, span)
	}
	return nil
}

// ParseAFL decodes the Application File Locator (tag 0x94) byte string
// into entries, four bytes each (§3).
func ParseAFL(data []byte) ([]AFLEntry, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("emv: AFL length %d not a multiple of 4", len(data))
	}
	entries := make([]AFLEntry, 0, len(data)/4)
	for i := 0; i < len(data); i += 4 {
		e := AFLEntry{
			SFI:            data[i] >> 3,
			FirstRecord:    data[i+1],
			LastRecord:     data[i+2],
			OdaRecordCount: data[i+3],
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
