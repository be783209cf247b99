package emv

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// caKeyFile is the on-disk YAML shape for a CA public key registry (§6).
// Hex-key files separate from the main document are not needed here
// since keys are bulk-loaded; modulus/exponent are inline hex strings
// the way the teacher's key material is hex-encoded on disk.
type caKeyFile struct {
	Keys []caKeyEntry `yaml:"keys"`
}

type caKeyEntry struct {
	RID      string `yaml:"rid"`
	Index    int    `yaml:"index"`
	Modulus  string `yaml:"modulus"`
	Exponent string `yaml:"exponent"`
}

// LoadCARegistry reads a CA public key registry from a YAML file (§6
// "read-only registry of CA public keys loaded at startup"). Unknown
// fields are rejected the same way the teacher's config loader rejects
// them, to catch typos in hand-edited key files early.
func LoadCARegistry(path string) (*CARegistry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA key registry: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var doc caKeyFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse CA key registry yaml: %w", err)
	}

	reg := NewCARegistry()
	for i, entry := range doc.Keys {
		ridBytes, err := hex.DecodeString(strings.TrimSpace(entry.RID))
		if err != nil || len(ridBytes) != 5 {
			return nil, fmt.Errorf("CA key registry entry %d: rid must be 5 hex bytes", i)
		}
		modulus, err := hex.DecodeString(strings.TrimSpace(entry.Modulus))
		if err != nil {
			return nil, fmt.Errorf("CA key registry entry %d: invalid modulus hex: %w", i, err)
		}
		exponent, err := hex.DecodeString(strings.TrimSpace(entry.Exponent))
		if err != nil {
			return nil, fmt.Errorf("CA key registry entry %d: invalid exponent hex: %w", i, err)
		}
		if entry.Index < 0 || entry.Index > 0xFF {
			return nil, fmt.Errorf("CA key registry entry %d: index out of range", i)
		}

		var rid [5]byte
		copy(rid[:], ridBytes)
		reg.Add(rid, byte(entry.Index), PublicKey{Modulus: modulus, Exponent: exponent})
	}
	return reg, nil
}

// terminalConfigFile is the on-disk YAML shape for the terminal
// configuration TLVs listed in §6: capabilities, type, country code,
// floor limit, identifiers, and the supported-AID list.
type terminalConfigFile struct {
	CapabilitiesHex           string              `yaml:"capabilities_hex"`
	TerminalType              int                 `yaml:"terminal_type"`
	AdditionalCapabilitiesHex string              `yaml:"additional_capabilities_hex"`
	CountryCodeHex            string              `yaml:"country_code_hex"`
	FloorLimitHex             string              `yaml:"floor_limit_hex"`
	TerminalIDHex             string              `yaml:"terminal_id_hex"`
	IFDSerialHex              string              `yaml:"ifd_serial_hex"`
	SupportedAIDs             []supportedAIDEntry `yaml:"supported_aids"`
}

type supportedAIDEntry struct {
	AID     string `yaml:"aid"`
	Partial bool   `yaml:"partial"`
}

// TerminalConfig is the result of loading a terminal's static
// configuration: the config TLV list ready for Context.Config, and the
// parsed supported-AID list ready for Context.SupportedAIDs.
type TerminalConfig struct {
	Config        *List
	SupportedAIDs []SupportedAID
}

// LoadTerminalConfig reads a terminal's static configuration from a YAML
// file. Every value is an inline hex string (or an integer for
// terminal_type); no paths are read or resolved. Unlike the teacher's
// config (one terminal's worth of DESFire auth material), this yields the
// config TLVs 9F33, 9F35, 9F40, 9F1A and 9F1B, plus 9F1C and 9F1E when
// given, and a standalone supported-AID list (§4.5, §6).
func LoadTerminalConfig(path string) (*TerminalConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terminal config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var doc terminalConfigFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse terminal config yaml: %w", err)
	}

	list := NewList()
	if err := setHexField(list, TagTerminalCapabilities, doc.CapabilitiesHex, 3); err != nil {
		return nil, err
	}
	if doc.TerminalType < 0 || doc.TerminalType > 0xFF {
		return nil, fmt.Errorf("terminal config: terminal_type out of range")
	}
	list.Set(TagTerminalType, []byte{byte(doc.TerminalType)})
	if err := setHexField(list, TagAdditionalTermCaps, doc.AdditionalCapabilitiesHex, 5); err != nil {
		return nil, err
	}
	if err := setHexField(list, TagTerminalCountryCode, doc.CountryCodeHex, 2); err != nil {
		return nil, err
	}
	if err := setHexField(list, TagTerminalFloorLimit, doc.FloorLimitHex, 4); err != nil {
		return nil, err
	}
	if doc.TerminalIDHex != "" {
		if err := setHexField(list, TagTerminalID, doc.TerminalIDHex, 8); err != nil {
			return nil, err
		}
	}
	if doc.IFDSerialHex != "" {
		if err := setHexField(list, TagIFDSerialNumber, doc.IFDSerialHex, 8); err != nil {
			return nil, err
		}
	}

	supported := make([]SupportedAID, 0, len(doc.SupportedAIDs))
	for i, e := range doc.SupportedAIDs {
		aid, err := hex.DecodeString(strings.TrimSpace(e.AID))
		if err != nil || len(aid) < 5 || len(aid) > 16 {
			return nil, fmt.Errorf("terminal config: supported_aids[%d]: aid must be 5..16 hex bytes", i)
		}
		mode := MatchExact
		if e.Partial {
			mode = MatchPartial
		}
		supported = append(supported, SupportedAID{AID: aid, Mode: mode})
	}

	return &TerminalConfig{Config: list, SupportedAIDs: supported}, nil
}

// setHexField decodes a hex-encoded config value and stores it in list
// under tag, requiring an exact byte length.
func setHexField(list *List, tag Tag, value string, length int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("terminal config: field for tag %s is required", tag)
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return fmt.Errorf("terminal config: tag %s: invalid hex: %w", tag, err)
	}
	if len(b) != length {
		return fmt.Errorf("terminal config: tag %s must be %d bytes, got %d", tag, length, len(b))
	}
	list.Set(tag, b)
	return nil
}
