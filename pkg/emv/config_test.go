package emv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCARegistryParsesValidEntries(t *testing.T) {
	path := writeYAML(t, `
keys:
  - rid: "A000000003"
    index: 1
    modulus: "AABBCC"
    exponent: "03"
  - rid: "A000000004"
    index: 9
    modulus: "DDEEFF"
    exponent: "010001"
`)

	reg, err := LoadCARegistry(path)
	if err != nil {
		t.Fatalf("LoadCARegistry returned error: %v", err)
	}
	var rid [5]byte
	copy(rid[:], []byte{0xA0, 0x00, 0x00, 0x00, 0x03})
	key, ok := reg.Lookup(rid, 0x01)
	if !ok {
		t.Fatalf("expected key for rid=A000000003 index=01")
	}
	if !bytesEqual(key.Modulus, []byte{0xAA, 0xBB, 0xCC}) || !bytesEqual(key.Exponent, []byte{0x03}) {
		t.Fatalf("key = %+v, want modulus AABBCC exponent 03", key)
	}
}

func TestLoadCARegistryRejectsBadRIDLength(t *testing.T) {
	path := writeYAML(t, `
keys:
  - rid: "A0000003"
    index: 1
    modulus: "AABBCC"
    exponent: "03"
`)
	if _, err := LoadCARegistry(path); err == nil || !strings.Contains(err.Error(), "rid must be 5 hex bytes") {
		t.Fatalf("LoadCARegistry error = %v, want rid length error", err)
	}
}

func TestLoadCARegistryRejectsUnknownFields(t *testing.T) {
	path := writeYAML(t, `
keys:
  - rid: "A000000003"
    index: 1
    modulus: "AABBCC"
    exponent: "03"
    bogus: "field"
`)
	if _, err := LoadCARegistry(path); err == nil {
		t.Fatalf("expected error for unknown yaml field")
	}
}

func TestLoadTerminalConfigParsesAllFields(t *testing.T) {
	path := writeYAML(t, `
capabilities_hex: "E0E0C8"
terminal_type: 34
additional_capabilities_hex: "6000F0A001"
country_code_hex: "0840"
floor_limit_hex: "00002710"
terminal_id_hex: "3132333435363738"
ifd_serial_hex: "4142434445464748"
supported_aids:
  - aid: "A0000000031010"
    partial: false
  - aid: "A000000004"
    partial: true
`)

	cfg, err := LoadTerminalConfig(path)
	if err != nil {
		t.Fatalf("LoadTerminalConfig returned error: %v", err)
	}
	caps, ok := cfg.Config.Find(TagTerminalCapabilities)
	if !ok || !bytesEqual(caps.Value, []byte{0xE0, 0xE0, 0xC8}) {
		t.Fatalf("capabilities = %v, want E0E0C8", caps)
	}
	termType, ok := cfg.Config.Find(TagTerminalType)
	if !ok || !bytesEqual(termType.Value, []byte{34}) {
		t.Fatalf("terminal type = %v, want 34", termType)
	}
	floor, ok := cfg.Config.Find(TagTerminalFloorLimit)
	if !ok || !bytesEqual(floor.Value, []byte{0x00, 0x00, 0x27, 0x10}) {
		t.Fatalf("floor limit = %v, want 00002710", floor)
	}
	if len(cfg.SupportedAIDs) != 2 {
		t.Fatalf("SupportedAIDs len = %d, want 2", len(cfg.SupportedAIDs))
	}
	if cfg.SupportedAIDs[0].Mode != MatchExact || cfg.SupportedAIDs[1].Mode != MatchPartial {
		t.Fatalf("SupportedAIDs modes = %v/%v, want Exact/Partial", cfg.SupportedAIDs[0].Mode, cfg.SupportedAIDs[1].Mode)
	}
}

func TestLoadTerminalConfigAllowsMissingOptionalIdentifiers(t *testing.T) {
	path := writeYAML(t, `
capabilities_hex: "E0E0C8"
terminal_type: 34
additional_capabilities_hex: "6000F0A001"
country_code_hex: "0840"
floor_limit_hex: "00002710"
supported_aids: []
`)

	cfg, err := LoadTerminalConfig(path)
	if err != nil {
		t.Fatalf("LoadTerminalConfig returned error: %v", err)
	}
	if _, ok := cfg.Config.Find(TagTerminalID); ok {
		t.Fatalf("did not expect terminal ID field when hex is absent")
	}
}

func TestLoadTerminalConfigRejectsMissingRequiredField(t *testing.T) {
	path := writeYAML(t, `
terminal_type: 34
additional_capabilities_hex: "6000F0A001"
country_code_hex: "0840"
floor_limit_hex: "00002710"
`)
	if _, err := LoadTerminalConfig(path); err == nil || !strings.Contains(err.Error(), "is required") {
		t.Fatalf("LoadTerminalConfig error = %v, want missing-field error", err)
	}
}

func TestLoadTerminalConfigRejectsInvalidSupportedAID(t *testing.T) {
	path := writeYAML(t, `
capabilities_hex: "E0E0C8"
terminal_type: 34
additional_capabilities_hex: "6000F0A001"
country_code_hex: "0840"
floor_limit_hex: "00002710"
supported_aids:
  - aid: "AABB"
    partial: false
`)
	if _, err := LoadTerminalConfig(path); err == nil || !strings.Contains(err.Error(), "aid must be 5..16 hex bytes") {
		t.Fatalf("LoadTerminalConfig error = %v, want aid length error", err)
	}
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
