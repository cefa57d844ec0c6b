// Package events defines the on-chain event envelope emitted by the
// workflow engine and the replayer that folds a commit-ordered event
// stream into a per-execution trace.
package events

import (
	"encoding/json"
	"strconv"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Reason strings for decode failures, matched via IsReason.
const (
	ReasonMalformedEnvelope = "events: malformed event envelope"
	ReasonMalformedPayload  = "events: malformed event payload"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason string.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

// EventID identifies an event's position in the remote log: the
// transaction that emitted it plus its sequence number within that
// transaction. It is also used as a page cursor.
type EventID struct {
	TxDigest string `json:"tx_digest"`
	EventSeq U64    `json:"event_seq"`
}

// U64 carries a 64-bit unsigned integer as a decimal string on the wire,
// avoiding silent truncation in JSON consumers that decode numbers as
// 53-bit floats. It decodes either a JSON string or a bare JSON number, but
// always encodes as a string.
type U64 uint64

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *U64) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nexuserrors.Wrap(nexuserrors.KindValidation, err, "events: malformed u64 string")
		}
		*u = U64(n)
		return nil
	}

	var n uint64
	if err := json.Unmarshal(b, &n); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, "events: malformed u64")
	}
	*u = U64(n)
	return nil
}

// TypeName is a Move type name wrapper, carried on events that reference a
// vertex, variant, or agent type by name.
type TypeName struct {
	Name string `json:"name"`
}

// RequestWalkExecutionEvent is fired on-chain when a DAG vertex execution
// is requested.
type RequestWalkExecutionEvent struct {
	Dag               string   `json:"dag"`
	Execution         string   `json:"execution"`
	WalkIndex         U64      `json:"walk_index"`
	NextVertex        TypeName `json:"next_vertex"`
	Evaluations       string   `json:"evaluations"`
	WorksheetFromType TypeName `json:"worksheet_from_type"`
}

// AnnounceInterfacePackageEvent is fired when a new agent interface package
// is registered.
type AnnounceInterfacePackageEvent struct {
	SharedObjects []string `json:"shared_objects"`
}

// OffChainToolRegisteredEvent is fired when a new off-chain tool is
// registered, so a tool registry can be kept in sync.
type OffChainToolRegisteredEvent struct {
	Registry     string          `json:"registry"`
	Tool         string          `json:"tool"`
	Fqn          fqn.ToolFqn     `json:"fqn"`
	URL          string          `json:"url"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema"`
}

// OnChainToolRegisteredEvent is fired when a new on-chain tool is
// registered.
type OnChainToolRegisteredEvent struct {
	Fqn fqn.ToolFqn `json:"fqn"`
}

// ToolUnregisteredEvent is fired when a tool is unregistered.
type ToolUnregisteredEvent struct {
	Tool string      `json:"tool"`
	Fqn  fqn.ToolFqn `json:"fqn"`
}

// WalkAdvancedEvent is fired when a walk advances past a vertex.
type WalkAdvancedEvent struct {
	Dag                string          `json:"dag"`
	Execution          string          `json:"execution"`
	WalkIndex          U64             `json:"walk_index"`
	Vertex             TypeName        `json:"vertex"`
	Variant            TypeName        `json:"variant"`
	VariantPortsToData json.RawMessage `json:"variant_ports_to_data"`
}

// EndStateReachedEvent is fired when a walk halts in an end state.
type EndStateReachedEvent struct {
	Dag                string          `json:"dag"`
	Execution          string          `json:"execution"`
	WalkIndex          U64             `json:"walk_index"`
	Vertex             TypeName        `json:"vertex"`
	Variant            TypeName        `json:"variant"`
	VariantPortsToData json.RawMessage `json:"variant_ports_to_data"`
}

// ExecutionFinishedEvent is fired when all walks of an execution have
// halted in their end states.
type ExecutionFinishedEvent struct {
	Dag                 string `json:"dag"`
	Execution           string `json:"execution"`
	HasAnyWalkFailed    bool   `json:"has_any_walk_failed"`
	HasAnyWalkSucceeded bool   `json:"has_any_walk_succeeded"`
}

// Kind discriminates a NexusEventKind's payload. It is carried on the wire
// under the "_nexus_event_type" tag.
type Kind string

const (
	KindRequestWalkExecution     Kind = "RequestWalkExecutionEvent"
	KindAnnounceInterfacePackage Kind = "AnnounceInterfacePackageEvent"
	KindOffChainToolRegistered   Kind = "OffChainToolRegisteredEvent"
	KindOnChainToolRegistered    Kind = "OnChainToolRegisteredEvent"
	KindToolUnregistered         Kind = "ToolUnregisteredEvent"
	KindWalkAdvanced             Kind = "WalkAdvancedEvent"
	KindEndStateReached          Kind = "EndStateReachedEvent"
	KindExecutionFinished        Kind = "ExecutionFinishedEvent"
)

// eventTypeTag is the field name the original event wrapper uses to carry
// the discriminator alongside the payload under "event".
const eventTypeTag = "_nexus_event_type"

// NexusEventKind is the adjacently-tagged union of every event kind this
// repository recognizes on the wire. Only the field matching Kind is set;
// event kinds outside the eight above (e.g. the workflow-engine's
// bookkeeping events for DAG/registry object creation) still deserialize
// cleanly, with their payload kept verbatim in Raw — this repository
// observes them but does not act on them.
type NexusEventKind struct {
	Kind Kind

	RequestWalkExecution     *RequestWalkExecutionEvent
	AnnounceInterfacePackage *AnnounceInterfacePackageEvent
	OffChainToolRegistered   *OffChainToolRegisteredEvent
	OnChainToolRegistered    *OnChainToolRegisteredEvent
	ToolUnregistered         *ToolUnregisteredEvent
	WalkAdvanced             *WalkAdvancedEvent
	EndStateReached          *EndStateReachedEvent
	ExecutionFinished        *ExecutionFinishedEvent

	Raw json.RawMessage
}

type wireEventKind struct {
	Kind    Kind            `json:"_nexus_event_type"`
	Payload json.RawMessage `json:"event"`
}

func (k NexusEventKind) MarshalJSON() ([]byte, error) {
	var payload any
	switch k.Kind {
	case KindRequestWalkExecution:
		payload = k.RequestWalkExecution
	case KindAnnounceInterfacePackage:
		payload = k.AnnounceInterfacePackage
	case KindOffChainToolRegistered:
		payload = k.OffChainToolRegistered
	case KindOnChainToolRegistered:
		payload = k.OnChainToolRegistered
	case KindToolUnregistered:
		payload = k.ToolUnregistered
	case KindWalkAdvanced:
		payload = k.WalkAdvanced
	case KindEndStateReached:
		payload = k.EndStateReached
	case KindExecutionFinished:
		payload = k.ExecutionFinished
	default:
		return json.Marshal(wireEventKind{Kind: k.Kind, Payload: k.Raw})
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindInternal, err, "events: failed to encode event payload")
	}
	return json.Marshal(wireEventKind{Kind: k.Kind, Payload: raw})
}

func (k *NexusEventKind) UnmarshalJSON(b []byte) error {
	var w wireEventKind
	if err := json.Unmarshal(b, &w); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonMalformedEnvelope)
	}
	k.Kind = w.Kind

	var target any
	switch w.Kind {
	case KindRequestWalkExecution:
		k.RequestWalkExecution = new(RequestWalkExecutionEvent)
		target = k.RequestWalkExecution
	case KindAnnounceInterfacePackage:
		k.AnnounceInterfacePackage = new(AnnounceInterfacePackageEvent)
		target = k.AnnounceInterfacePackage
	case KindOffChainToolRegistered:
		k.OffChainToolRegistered = new(OffChainToolRegisteredEvent)
		target = k.OffChainToolRegistered
	case KindOnChainToolRegistered:
		k.OnChainToolRegistered = new(OnChainToolRegisteredEvent)
		target = k.OnChainToolRegistered
	case KindToolUnregistered:
		k.ToolUnregistered = new(ToolUnregisteredEvent)
		target = k.ToolUnregistered
	case KindWalkAdvanced:
		k.WalkAdvanced = new(WalkAdvancedEvent)
		target = k.WalkAdvanced
	case KindEndStateReached:
		k.EndStateReached = new(EndStateReachedEvent)
		target = k.EndStateReached
	case KindExecutionFinished:
		k.ExecutionFinished = new(ExecutionFinishedEvent)
		target = k.ExecutionFinished
	default:
		k.Raw = w.Payload
		return nil
	}

	if err := json.Unmarshal(w.Payload, target); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonMalformedPayload)
	}
	return nil
}

// NexusEvent is a single event read off the remote log: its position (ID),
// any generic type arguments the on-chain event wrapper carried, and its
// decoded payload.
type NexusEvent struct {
	ID       EventID           `json:"id"`
	Generics []json.RawMessage `json:"generics"`
	Data     NexusEventKind    `json:"data"`
}

// ParseEvent decodes a single remote event into a NexusEvent. eventName is
// the Move struct name the transport layer extracted from the event
// wrapper's type parameters (the package/module match and generic-type
// extraction themselves are a transport-layer concern, performed by the
// EventSource before calling this); payload is the inner event object.
// ParseEvent reproduces the original's core trick: insert the type name as
// a discriminator field alongside the payload, then decode the combined
// object as the adjacently-tagged NexusEventKind union.
func ParseEvent(id EventID, generics []json.RawMessage, eventName string, payload json.RawMessage) (NexusEvent, error) {
	nameJSON, err := json.Marshal(eventName)
	if err != nil {
		return NexusEvent{}, nexuserrors.Wrap(nexuserrors.KindInternal, err, "events: failed to encode event name")
	}

	combined, err := json.Marshal(map[string]json.RawMessage{
		eventTypeTag: nameJSON,
		"event":      payload,
	})
	if err != nil {
		return NexusEvent{}, nexuserrors.Wrap(nexuserrors.KindInternal, err, "events: failed to encode event envelope")
	}

	var kind NexusEventKind
	if err := json.Unmarshal(combined, &kind); err != nil {
		return NexusEvent{}, err
	}

	return NexusEvent{ID: id, Generics: generics, Data: kind}, nil
}
