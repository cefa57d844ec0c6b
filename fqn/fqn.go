// Package fqn parses and renders fully-qualified tool identifiers of the
// form `{domain}.{name}@{version}`, e.g. "xyz.taluslabs.example@1".
//
// A ToolFqn identifies a tool throughout the workflow core: OffChain DAG
// vertices carry one, tool-registration event payloads decode one, and
// the tool HTTP surface renders it in /meta responses.
package fqn

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// ToolFqn is the triple (domain, name, version) of a fully-qualified tool
// identifier. The zero value is not a valid FQN; construct via Parse or
// MustParse.
type ToolFqn struct {
	domain  string
	name    string
	version uint32
}

// segmentPattern matches a single dot-separated segment: lowercase letter
// first, then one or more lowercase alphanumerics/underscore/hyphen (so a
// segment is at least two characters long).
const segmentPattern = `[a-z][a-z0-9_-]+`

// fqnRegexp requires at least two domain segments (so "xyz.tool@1" with a
// single domain segment is rejected), one name segment, and a decimal
// version.
var fqnRegexp = regexp.MustCompile(
	`^(?P<domain>` + segmentPattern + `(?:\.` + segmentPattern + `)+)` +
		`\.(?P<name>` + segmentPattern + `)` +
		`@(?P<version>[0-9]+)$`,
)

// MaxVersion is the largest representable tool version (2^32 - 1).
const MaxVersion = 1<<32 - 1

// Validation failure reasons, matched via IsReason.
const (
	ReasonMalformedFqn    = "fqn: does not match {domain}.{name}@{version}"
	ReasonVersionOverflow = "fqn: version exceeds the maximum representable value"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason string.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

// Parse validates and decomposes s into a ToolFqn. It returns
// *nexuserrors.Error with Kind KindValidation on any grammar violation, and
// a dedicated reason when the numeric version overflows a uint32.
func Parse(s string) (ToolFqn, error) {
	m := fqnRegexp.FindStringSubmatch(s)
	if m == nil {
		return ToolFqn{}, nexuserrors.Validation(ReasonMalformedFqn)
	}

	domain := m[fqnRegexp.SubexpIndex("domain")]
	name := m[fqnRegexp.SubexpIndex("name")]
	versionStr := m[fqnRegexp.SubexpIndex("version")]

	version, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil {
		return ToolFqn{}, nexuserrors.Validation(ReasonVersionOverflow)
	}

	return ToolFqn{domain: domain, name: name, version: uint32(version)}, nil
}

// MustParse parses s and panics on error. Intended for tests and
// compile-time-known literals, mirroring the source SDK's `fqn!` macro.
func MustParse(s string) ToolFqn {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Domain returns the tool creator domain, e.g. "xyz.taluslabs".
func (f ToolFqn) Domain() string { return f.domain }

// Name returns the tool name, e.g. "example".
func (f ToolFqn) Name() string { return f.name }

// Version returns the tool version.
func (f ToolFqn) Version() uint32 { return f.version }

// String renders the canonical `{domain}.{name}@{version}` form. This is
// the inverse of Parse: Parse(f.String()) == f for any valid f.
func (f ToolFqn) String() string {
	var b strings.Builder
	b.WriteString(f.domain)
	b.WriteByte('.')
	b.WriteString(f.name)
	b.WriteByte('@')
	b.WriteString(strconv.FormatUint(uint64(f.version), 10))
	return b.String()
}

// MarshalText implements encoding.TextMarshaler so ToolFqn can be used
// directly as a JSON/YAML string and as a map key.
func (f ToolFqn) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *ToolFqn) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Equal reports whether two FQNs have the same domain, name, and version.
func (f ToolFqn) Equal(other ToolFqn) bool {
	return f.domain == other.domain && f.name == other.name && f.version == other.version
}
