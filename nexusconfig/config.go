// Package nexusconfig loads and rewrites the CLI's single TOML
// configuration file (spec.md §6.4): a `sui` connection section, a
// `nexus` section of on-chain object identifiers, a `tools` map of
// per-FQN overrides, and an optional encrypted `crypto` section wrapping
// the long-term identity key and session-ratchet state.
package nexusconfig

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/cryptoprimitives"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/pkg/utils"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/secretstore"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// SuiConfig is the `sui` section: how to reach the chain and which
// wallet to sign with.
type SuiConfig struct {
	Net        string `mapstructure:"net"`
	WalletPath string `mapstructure:"wallet_path"`
	RpcURL     string `mapstructure:"rpc_url"`
}

// NexusConfig is the `nexus` section: the on-chain object IDs the CLI
// needs to address published packages and registries. Every field is
// optional; a fresh install has none of them until the corresponding
// on-chain resource is published or discovered.
type NexusConfig struct {
	WorkflowPkgID        string `mapstructure:"workflow_pkg_id"`
	PrimitivesPkgID      string `mapstructure:"primitives_pkg_id"`
	ToolRegistryObjectID string `mapstructure:"tool_registry_object_id"`
	DefaultSapObjectID   string `mapstructure:"default_sap_object_id"`
	NetworkID            string `mapstructure:"network_id"`
}

// ToolOverride is one `tools.<fqn>` entry: a per-tool override of the
// on-chain tool object to call and the gas budget to spend.
type ToolOverride struct {
	OverTool string
	OverGas  uint64
}

// CryptoConf is the plaintext shape of the `crypto` section once
// decrypted: the long-term X3DH identity key and a map of 32-byte
// session identifiers (hex-encoded) to ratchet session state. The
// ratchet construction that consumes Sessions is external to this core
// (spec.md §4.5 hands off the shared secret to "a session-ratchet
// construction"); this repository only needs to carry the bytes intact.
type CryptoConf struct {
	IdentityKey []byte                    `json:"identity_key"`
	Sessions    map[string]RatchetSession `json:"sessions"`
}

// RatchetSession is an opaque, ratchet-construction-defined blob keyed
// by session identifier; carried verbatim since the ratchet itself is
// out of scope.
type RatchetSession struct {
	State []byte `json:"state"`
}

// Config is the fully-parsed configuration file plus the underlying
// viper instance used to preserve unrecognized sections on rewrite.
type Config struct {
	Sui   SuiConfig
	Nexus NexusConfig
	Tools map[string]ToolOverride

	// Crypto is nil if the file has no crypto section. Call
	// AttachProvider then Expose to read it; call SetCrypto to replace
	// it before Save.
	Crypto *secretstore.GenericSecretKeyed[CryptoConf]

	v *viper.Viper
}

// cryptoAlgo is the fixed AEAD profile for the crypto section: AES-GCM,
// the secret-at-rest profile (§4.6) used everywhere else in this core.
func cryptoAlgo() secretstore.KeyedAEAD { return cryptoprimitives.ProfileB{} }

// DefaultPath returns NEXUS_CONFIG_PATH if set, otherwise
// ~/.nexus/conf.toml.
func DefaultPath() (string, error) {
	if p := utils.EnvOrDefault("NEXUS_CONFIG_PATH", ""); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: could not determine home directory")
	}
	return filepath.Join(home, ".nexus", "conf.toml"), nil
}

// Load reads and parses the configuration file at path (DefaultPath() if
// path is empty).
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to read configuration file")
	}

	cfg := &Config{v: v}

	if err := v.UnmarshalKey("sui", &cfg.Sui); err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to decode sui section")
	}
	if v.IsSet("nexus") {
		if err := v.UnmarshalKey("nexus", &cfg.Nexus); err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to decode nexus section")
		}
	}

	if v.IsSet("tools") {
		tools, err := decodeTools(v.GetStringMap("tools"))
		if err != nil {
			return nil, err
		}
		cfg.Tools = tools
	}

	if v.IsSet("crypto") {
		raw, ok := v.Get("crypto").(string)
		if !ok {
			return nil, nexuserrors.New(nexuserrors.KindConfig, "nexusconfig: crypto section must be an encrypted string")
		}
		secret := secretstore.NewEncrypted[CryptoConf](cryptoAlgo(), nil, nil, nil)
		if err := secret.UnmarshalText([]byte(raw)); err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to decode crypto section")
		}
		cfg.Crypto = secret
	}

	return cfg, nil
}

// decodeTools normalizes each tools.<fqn> table into a ToolOverride,
// tolerating over_gas arriving as either a TOML integer or a decimal
// string (spf13/cast handles both uniformly).
func decodeTools(raw map[string]any) (map[string]ToolOverride, error) {
	out := make(map[string]ToolOverride, len(raw))
	for fqnStr, val := range raw {
		entry, ok := val.(map[string]any)
		if !ok {
			return nil, nexuserrors.New(nexuserrors.KindConfig, "nexusconfig: tools entry must be a table")
		}

		overTool, err := cast.ToStringE(entry["over_tool"])
		if err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: invalid tools.over_tool")
		}
		overGas, err := cast.ToUint64E(entry["over_gas"])
		if err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: invalid tools.over_gas")
		}

		out[fqnStr] = ToolOverride{OverTool: overTool, OverGas: overGas}
	}
	return out, nil
}

// SetCrypto replaces the crypto section with a freshly-keyed secret
// ready to Save.
func (c *Config) SetCrypto(value CryptoConf, provider secretstore.KeyProvider) {
	c.Crypto = secretstore.WithProvider(value, cryptoAlgo(), nil, provider)
}

// Save rewrites the configuration file at path (DefaultPath() if path is
// empty), overwriting only the sections this package understands.
// Sections present in the file but not modeled here (read during Load
// into the underlying viper instance) are carried through unchanged.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	v := c.v
	if v == nil {
		v = viper.New()
		v.SetConfigType("toml")
	}

	v.Set("sui", map[string]any{
		"net":         c.Sui.Net,
		"wallet_path": c.Sui.WalletPath,
		"rpc_url":     c.Sui.RpcURL,
	})
	v.Set("nexus", map[string]any{
		"workflow_pkg_id":         c.Nexus.WorkflowPkgID,
		"primitives_pkg_id":       c.Nexus.PrimitivesPkgID,
		"tool_registry_object_id": c.Nexus.ToolRegistryObjectID,
		"default_sap_object_id":   c.Nexus.DefaultSapObjectID,
		"network_id":              c.Nexus.NetworkID,
	})

	if len(c.Tools) > 0 {
		tools := make(map[string]any, len(c.Tools))
		for fqnStr, override := range c.Tools {
			tools[fqnStr] = map[string]any{
				"over_tool": override.OverTool,
				"over_gas":  override.OverGas,
			}
		}
		v.Set("tools", tools)
	}

	if c.Crypto != nil {
		text, err := c.Crypto.MarshalText()
		if err != nil {
			return nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to encrypt crypto section")
		}
		v.Set("crypto", string(text))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to create config directory")
	}
	if err := v.WriteConfigAs(path); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindConfig, err, "nexusconfig: failed to write configuration file")
	}
	c.v = v
	return nil
}
