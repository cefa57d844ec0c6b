package nexusconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/secretstore"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadDecodesKnownSections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conf.toml", `
[sui]
net = "testnet"
wallet_path = "/home/u/.sui/wallet.key"
rpc_url = "https://fullnode.testnet.sui.io:443"

[nexus]
workflow_pkg_id = "0xWORKFLOW"
tool_registry_object_id = "0xREGISTRY"

[tools."demo.org/adder@1"]
over_tool = "0xADDER"
over_gas = 5000000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sui.Net != "testnet" || cfg.Sui.RpcURL != "https://fullnode.testnet.sui.io:443" {
		t.Fatalf("unexpected sui section: %+v", cfg.Sui)
	}
	if cfg.Nexus.WorkflowPkgID != "0xWORKFLOW" || cfg.Nexus.ToolRegistryObjectID != "0xREGISTRY" {
		t.Fatalf("unexpected nexus section: %+v", cfg.Nexus)
	}
	override, ok := cfg.Tools["demo.org/adder@1"]
	if !ok {
		t.Fatal("expected tools override for demo.org/adder@1")
	}
	if override.OverTool != "0xADDER" || override.OverGas != 5000000 {
		t.Fatalf("unexpected override: %+v", override)
	}
}

func TestLoadToleratesStringGasOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conf.toml", `
[sui]
net = "localnet"

[tools."demo.org/adder@1"]
over_tool = "0xADDER"
over_gas = "5000000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools["demo.org/adder@1"].OverGas != 5000000 {
		t.Fatalf("expected cast to normalize string gas override, got %+v", cfg.Tools["demo.org/adder@1"])
	}
}

type fixedKeyProvider struct{ key []byte }

func (p fixedKeyProvider) Key() ([]byte, error) { return p.key, nil }

func TestSaveRoundTripsCryptoSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conf.toml", `
[sui]
net = "devnet"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	provider := fixedKeyProvider{key: make([]byte, 32)}
	plaintext := CryptoConf{
		IdentityKey: []byte("identity-key-bytes"),
		Sessions: map[string]RatchetSession{
			"session-1": {State: []byte("ratchet-state")},
		},
	}
	cfg.SetCrypto(plaintext, provider)

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Crypto == nil {
		t.Fatal("expected crypto section to round-trip")
	}
	reloaded.Crypto.AttachProvider(provider)

	var got CryptoConf
	if err := reloaded.Crypto.Expose(func(v *CryptoConf) { got = *v }); err != nil {
		t.Fatalf("Expose: %v", err)
	}
	if string(got.IdentityKey) != string(plaintext.IdentityKey) {
		t.Fatalf("unexpected identity key: %q", got.IdentityKey)
	}
	if string(got.Sessions["session-1"].State) != "ratchet-state" {
		t.Fatalf("unexpected session state: %+v", got.Sessions)
	}
}

func TestSavePreservesUnrecognizedSection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "conf.toml", `
[sui]
net = "devnet"

[experimental]
enable_feature_x = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(raw), "[experimental]") || !strings.Contains(string(raw), "enable_feature_x") {
		t.Fatalf("expected unrecognized section to be preserved, got:\n%s", raw)
	}
}

func TestDefaultPathHonorsEnvOverride(t *testing.T) {
	t.Setenv("NEXUS_CONFIG_PATH", "/tmp/custom-nexus-conf.toml")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if path != "/tmp/custom-nexus-conf.toml" {
		t.Fatalf("expected env override to win, got %q", path)
	}
}

func TestSetCryptoProducesEncryptedGenericSecretKeyed(t *testing.T) {
	var cfg Config
	provider := fixedKeyProvider{key: make([]byte, 32)}
	cfg.SetCrypto(CryptoConf{IdentityKey: []byte("k")}, provider)

	text, err := cfg.Crypto.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}

	decoded := secretstore.NewEncrypted[CryptoConf](cryptoAlgo(), nil, nil, nil)
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	decoded.AttachProvider(provider)
	var got CryptoConf
	if err := decoded.Expose(func(v *CryptoConf) { got = *v }); err != nil {
		t.Fatalf("Expose: %v", err)
	}
	if string(got.IdentityKey) != "k" {
		t.Fatalf("unexpected identity key: %q", got.IdentityKey)
	}
}
