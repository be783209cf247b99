package emv

// DolEntry is one (tag, expected-length) pair from a Data Object List
// (§3). A DOL is a lazy, restartable, finite sequence of these; no
// mutation is supported, matching the spec's "no mutation" invariant.
type DolEntry struct {
	Tag    Tag
	Length int
}

// ParseDol decodes a DOL byte string into its entries. Each entry is a BER
// tag followed by a BER length (the length form, not a TLV: there is no
// value component in the wire encoding of a DOL).
func ParseDol(data []byte) ([]DolEntry, error) {
	var entries []DolEntry
	pos := 0
	for pos < len(data) {
		tag, tagLen, err := decodeTag(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += tagLen
		length, lenLen, err := decodeLength(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += lenLen
		entries = append(entries, DolEntry{Tag: tag, Length: length})
	}
	return entries, nil
}

// ParseTagList decodes a Tag List (§3): tags only, no lengths, used for
// GET DATA requests for multiple tags and for the Tag List that
// accompanies CDOL-style structures in some profiles.
func ParseTagList(data []byte) ([]Tag, error) {
	var tags []Tag
	pos := 0
	for pos < len(data) {
		tag, tagLen, err := decodeTag(data[pos:])
		if err != nil {
			return nil, err
		}
		pos += tagLen
		tags = append(tags, tag)
	}
	return tags, nil
}

// ComputeDolDataLength sums the declared lengths of a DOL's entries,
// rejecting overflow of a signed 32-bit count (§4.1).
func ComputeDolDataLength(entries []DolEntry) (int, error) {
	total := 0
	for _, e := range entries {
		next := total + e.Length
		if next < total || next > 0x7FFFFFFF {
			return 0, ErrDolLengthOverflow
		}
		total = next
	}
	return total, nil
}

// tagFormat returns the EMV data format used for DOL length reconciliation
// for a given tag, following the EMV tag dictionary's declared formats for
// the fields a DOL commonly references. Tags not recognised default to
// binary, matching the EMV rule that binary fields are truncated/padded
// on the right.
func tagFormat(tag Tag) Format {
	switch tag {
	case 0x9A, 0x5F24, 0x5F25, 0x9F1A, 0x5F2A, 0x9F02, 0x9F03, 0x9F1B, 0x81, 0x9F21, 0x9F4E:
		return FormatN
	case 0x5A, 0x9F1E:
		return FormatCN
	default:
		return FormatB
	}
}

// BuildDolData assembles the concatenated value stream for a DOL against
// two TLV sources, searching source1 then source2 for each entry's tag
// (§4.1). Missing tags emit the declared-length run of zero bytes; a
// zero-length entry emits nothing. source2 may be nil.
func BuildDolData(dol []byte, source1, source2 *List) ([]byte, error) {
	entries, err := ParseDol(dol)
	if err != nil {
		return nil, err
	}
	var out []byte
	for _, e := range entries {
		if e.Length == 0 {
			continue
		}
		field, ok := source1.Find(e.Tag)
		if !ok && source2 != nil {
			field, ok = source2.Find(e.Tag)
		}
		if !ok {
			out = append(out, make([]byte, e.Length)...)
			continue
		}
		format := tagFormat(e.Tag)
		value := field.Value
		switch {
		case len(value) == e.Length:
			out = append(out, value...)
		case len(value) > e.Length:
			out = append(out, truncateByFormat(value, e.Length, format)...)
		default:
			out = append(out, padByFormat(value, e.Length, format)...)
		}
	}
	return out, nil
}

// BuildDolDataInto writes BuildDolData's output into dst, reporting the
// number of bytes written via *n. If dst is too small, ErrOutputTooSmall
// is returned and *n is left at the required size so the caller can
// reallocate (§4.1: "insufficient space yields OutputTooSmall").
func BuildDolDataInto(dol []byte, source1, source2 *List, dst []byte, n *int) error {
	data, err := BuildDolData(dol, source1, source2)
	if err != nil {
		return err
	}
	*n = len(data)
	if len(dst) < len(data) {
		return ErrOutputTooSmall
	}
	copy(dst, data)
	return nil
}
