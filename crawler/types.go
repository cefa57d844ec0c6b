// Package crawler is a typed, lazy deserializer over a remote object
// store. It turns Move-style collection fields (Table, ObjectTable, Bag,
// ObjectBag, LinkedTable, VecMap, VecSet, Structure) embedded in a fetched
// object's JSON content into either an already-materialized Go value
// (VecMap/VecSet/Structure) or a handle that defers fetching the backing
// storage until FetchOne/FetchAll is called.
//
// The remote store itself is an external collaborator: crawler talks to
// it only through the RemoteReader interface, never through a concrete
// RPC client.
package crawler

import (
	"strings"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Reason strings used as the machine-discriminable part of the errors
// this package returns, matched via IsReason.
const (
	ReasonRemoteUnreachable  = "crawler: remote object store unreachable"
	ReasonRemoteNotFound     = "crawler: remote object not found"
	ReasonDecodeError        = "crawler: could not decode remote object content"
	ReasonInconsistentRemote = "crawler: remote store returned mismatched keys and values"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

// ObjectID is a remote object's opaque address. The crawler never
// interprets it beyond equality and string rendering.
type ObjectID string

// SequenceNumber is a remote object's version counter.
type SequenceNumber uint64

// UID is Move's object-identity wrapper: every on-chain object's `id`
// field is a UID holding its own ObjectID.
type UID struct {
	ID ObjectID `json:"id"`
}

// Owner is the tagged union of who may mutate a remote object. Exactly
// one of the typed fields is meaningful, selected by Kind.
type Owner struct {
	Kind                 string         `json:"-"`
	Address              string         `json:"-"`
	ObjectOwner          ObjectID       `json:"-"`
	InitialSharedVersion SequenceNumber `json:"-"`
}

const (
	OwnerAddressOwner = "AddressOwner"
	OwnerObjectOwner  = "ObjectOwner"
	OwnerShared       = "Shared"
	OwnerImmutable    = "Immutable"
)

// IsShared reports whether the owner kind is Shared.
func (o Owner) IsShared() bool { return o.Kind == OwnerShared }

// MoveStructTag is a parsed Move struct type, e.g.
// "0x2::table::Table<0x1::foo::Name,0x1::bar::Value>". The crawler only
// ever needs the leading type parameter (to recover a Table/ObjectTable's
// key type) or the tag's canonical string form (to address a dynamic
// field lookup); it does not model the full recursive Move type lattice.
type MoveStructTag struct {
	Address    string
	Module     string
	Name       string
	TypeParams []string
}

// ParseStructTag parses a canonical Move struct tag string, splitting its
// top-level type parameter list on commas that are not nested inside
// another struct tag's angle brackets.
func ParseStructTag(s string) (MoveStructTag, error) {
	s = strings.TrimSpace(s)

	body := s
	var paramsStr string
	if idx := strings.IndexByte(s, '<'); idx >= 0 {
		if !strings.HasSuffix(s, ">") {
			return MoveStructTag{}, nexuserrors.New(nexuserrors.KindValidation, ReasonDecodeError)
		}
		body = s[:idx]
		paramsStr = s[idx+1 : len(s)-1]
	}

	parts := strings.SplitN(body, "::", 3)
	if len(parts) != 3 {
		return MoveStructTag{}, nexuserrors.New(nexuserrors.KindValidation, ReasonDecodeError)
	}

	tag := MoveStructTag{Address: parts[0], Module: parts[1], Name: parts[2]}
	if paramsStr != "" {
		tag.TypeParams = splitTopLevelCommas(paramsStr)
	}
	return tag, nil
}

// String renders the canonical Move struct tag form.
func (t MoveStructTag) String() string {
	var b strings.Builder
	b.WriteString(t.Address)
	b.WriteString("::")
	b.WriteString(t.Module)
	b.WriteString("::")
	b.WriteString(t.Name)
	if len(t.TypeParams) > 0 {
		b.WriteByte('<')
		b.WriteString(strings.Join(t.TypeParams, ","))
		b.WriteByte('>')
	}
	return b.String()
}

func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// DynamicFieldName addresses a single dynamic field lookup: the Move type
// of the field's name, plus its JSON-encoded value.
type DynamicFieldName struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}
