package crawler

import (
	"context"
	"encoding/json"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// ObjectFields and ObjectValue mirror the one-level and two-level
// "fields" nesting Move's object-model wraps struct contents in on the
// wire: a plain struct serializes as {"fields": T}, and a struct that
// itself holds a single named field serializes one level deeper still.
type ObjectFields[T any] struct {
	Fields T `json:"fields"`
}

type ObjectValue[T any] struct {
	Value T `json:"value"`
}

// fieldsIDWire is the wire shape shared by Table, ObjectTable, Bag and
// ObjectBag: a "fields" object holding only the dynamic collection's own
// object ID.
type fieldsIDWire struct {
	Fields struct {
		ID UID `json:"id"`
	} `json:"fields"`
}

// typedFieldsIDWire additionally carries the Move struct tag the
// homogeneous collections (Table, ObjectTable) need to recover their key
// type.
type typedFieldsIDWire struct {
	Type   string `json:"type"`
	Fields struct {
		ID UID `json:"id"`
	} `json:"fields"`
}

func parseKeyTag(typeStr string) (string, error) {
	tag, err := ParseStructTag(typeStr)
	if err != nil {
		return "", err
	}
	if len(tag.TypeParams) == 0 {
		return "", nexuserrors.New(nexuserrors.KindValidation, ReasonDecodeError)
	}
	return tag.TypeParams[0], nil
}

// ObjectTable is a handle to a Move `ObjectTable<K, V>`: values are
// stored as standalone objects, keyed by K, with the key's Move type
// recovered from the table's own struct tag at deserialization time.
type ObjectTable[K comparable, V any] struct {
	id  ObjectID
	tag string
}

func (t *ObjectTable[K, V]) UnmarshalJSON(b []byte) error {
	var wire typedFieldsIDWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	tag, err := parseKeyTag(wire.Type)
	if err != nil {
		return err
	}
	t.id = wire.Fields.ID.ID
	t.tag = tag
	return nil
}

// FetchOne fetches the value stored under key.
func (t *ObjectTable[K, V]) FetchOne(ctx context.Context, r RemoteReader, key K) (V, error) {
	value, err := json.Marshal(key)
	if err != nil {
		var zero V
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	field := DynamicFieldName{Type: t.tag, Value: json.RawMessage(value)}
	return dynamicFetchOne[V](ctx, r, t.id, field)
}

// FetchAll fetches every value stored in the table.
func (t *ObjectTable[K, V]) FetchAll(ctx context.Context, r RemoteReader) (map[K]V, error) {
	return dynamicFetchMany[K, V](ctx, r, t.id)
}

// Table is a handle to a Move `Table<K, V>`. Unlike ObjectTable, a
// Table's dynamic field wraps its value one level deeper (the field
// object's own "value" field), so fetches decode into
// ObjectFields[ObjectValue[V]] and unwrap before returning to the caller.
type Table[K comparable, V any] struct {
	id  ObjectID
	tag string
}

func (t *Table[K, V]) UnmarshalJSON(b []byte) error {
	var wire typedFieldsIDWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	tag, err := parseKeyTag(wire.Type)
	if err != nil {
		return err
	}
	t.id = wire.Fields.ID.ID
	t.tag = tag
	return nil
}

func (t *Table[K, V]) FetchOne(ctx context.Context, r RemoteReader, key K) (V, error) {
	var zero V
	value, err := json.Marshal(key)
	if err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	field := DynamicFieldName{Type: t.tag, Value: json.RawMessage(value)}
	wrapped, err := dynamicFetchOne[ObjectFields[ObjectValue[V]]](ctx, r, t.id, field)
	if err != nil {
		return zero, err
	}
	return wrapped.Fields.Value, nil
}

func (t *Table[K, V]) FetchAll(ctx context.Context, r RemoteReader) (map[K]V, error) {
	wrapped, err := dynamicFetchMany[K, ObjectFields[ObjectValue[V]]](ctx, r, t.id)
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(wrapped))
	for k, w := range wrapped {
		out[k] = w.Fields.Value
	}
	return out, nil
}

// LinkedTable is a handle to a Move `LinkedTable<K, V>`. It shares
// Table's on-the-wire response shape (the value is nested one level
// under "value"); the original source defines no distinct wrapper for
// it, so this models it after Table.
type LinkedTable[K comparable, V any] struct {
	id  ObjectID
	tag string
}

func (t *LinkedTable[K, V]) UnmarshalJSON(b []byte) error {
	var wire typedFieldsIDWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	tag, err := parseKeyTag(wire.Type)
	if err != nil {
		return err
	}
	t.id = wire.Fields.ID.ID
	t.tag = tag
	return nil
}

func (t *LinkedTable[K, V]) FetchOne(ctx context.Context, r RemoteReader, key K) (V, error) {
	var zero V
	value, err := json.Marshal(key)
	if err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	field := DynamicFieldName{Type: t.tag, Value: json.RawMessage(value)}
	wrapped, err := dynamicFetchOne[ObjectFields[ObjectValue[V]]](ctx, r, t.id, field)
	if err != nil {
		return zero, err
	}
	return wrapped.Fields.Value, nil
}

func (t *LinkedTable[K, V]) FetchAll(ctx context.Context, r RemoteReader) (map[K]V, error) {
	wrapped, err := dynamicFetchMany[K, ObjectFields[ObjectValue[V]]](ctx, r, t.id)
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(wrapped))
	for k, w := range wrapped {
		out[k] = w.Fields.Value
	}
	return out, nil
}

// ObjectBag is a handle to a Move `ObjectBag<K, V>`: a heterogeneous
// table whose key type is not recoverable from its own struct tag, so
// FetchOne requires the caller to supply it.
type ObjectBag[K comparable, V any] struct {
	id ObjectID
}

func (b *ObjectBag[K, V]) UnmarshalJSON(data []byte) error {
	var wire fieldsIDWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	b.id = wire.Fields.ID.ID
	return nil
}

func (b *ObjectBag[K, V]) FetchOne(ctx context.Context, r RemoteReader, key K, tag string) (V, error) {
	var zero V
	value, err := json.Marshal(key)
	if err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	field := DynamicFieldName{Type: tag, Value: json.RawMessage(value)}
	return dynamicFetchOne[V](ctx, r, b.id, field)
}

func (b *ObjectBag[K, V]) FetchAll(ctx context.Context, r RemoteReader) (map[K]V, error) {
	return dynamicFetchMany[K, V](ctx, r, b.id)
}

// Bag is a handle to a Move `Bag<K, V>`. Like Table vs. ObjectTable, its
// dynamic field value is nested one level deeper than ObjectBag's.
type Bag[K comparable, V any] struct {
	id ObjectID
}

func (b *Bag[K, V]) UnmarshalJSON(data []byte) error {
	var wire fieldsIDWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	b.id = wire.Fields.ID.ID
	return nil
}

func (b *Bag[K, V]) FetchOne(ctx context.Context, r RemoteReader, key K, tag string) (V, error) {
	var zero V
	value, err := json.Marshal(key)
	if err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	field := DynamicFieldName{Type: tag, Value: json.RawMessage(value)}
	wrapped, err := dynamicFetchOne[ObjectFields[ObjectValue[V]]](ctx, r, b.id, field)
	if err != nil {
		return zero, err
	}
	return wrapped.Fields.Value, nil
}

func (b *Bag[K, V]) FetchAll(ctx context.Context, r RemoteReader) (map[K]V, error) {
	wrapped, err := dynamicFetchMany[K, ObjectFields[ObjectValue[V]]](ctx, r, b.id)
	if err != nil {
		return nil, err
	}
	out := make(map[K]V, len(wrapped))
	for k, w := range wrapped {
		out[k] = w.Fields.Value
	}
	return out, nil
}

// VecMap is Move's `VecMap<K, V>`: stored directly on the fetched
// object, so it is fully materialized at deserialization time rather
// than held as a fetch handle.
type VecMap[K comparable, V any] struct {
	values map[K]V
}

// Inner returns the map's entries.
func (m VecMap[K, V]) Inner() map[K]V { return m.values }

type vecMapEntryWire struct {
	Fields struct {
		Key   json.RawMessage `json:"key"`
		Name  json.RawMessage `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"fields"`
}

func (m *VecMap[K, V]) UnmarshalJSON(b []byte) error {
	var wire struct {
		Fields struct {
			Contents []vecMapEntryWire `json:"contents"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}

	values := make(map[K]V, len(wire.Fields.Contents))
	for _, entry := range wire.Fields.Contents {
		keyRaw := entry.Fields.Key
		if keyRaw == nil {
			keyRaw = entry.Fields.Name
		}
		var key K
		if err := json.Unmarshal(keyRaw, &key); err != nil {
			return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
		}
		var value V
		if err := json.Unmarshal(entry.Fields.Value, &value); err != nil {
			return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
		}
		values[key] = value
	}
	m.values = values
	return nil
}

// VecSet is Move's `VecSet<T>`: stored directly on the fetched object as
// a flat array of elements.
type VecSet[T comparable] struct {
	values map[T]struct{}
}

// Inner returns the set's elements.
func (s VecSet[T]) Inner() map[T]struct{} { return s.values }

func (s *VecSet[T]) UnmarshalJSON(b []byte) error {
	var wire struct {
		Fields struct {
			Contents []T `json:"contents"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	values := make(map[T]struct{}, len(wire.Fields.Contents))
	for _, v := range wire.Fields.Contents {
		values[v] = struct{}{}
	}
	s.values = values
	return nil
}

// Structure wraps a plain Move struct's fields, which serialize one
// level deeper than the struct's own Go representation.
type Structure[T any] struct {
	fields T
}

// Inner returns the wrapped value.
func (s Structure[T]) Inner() T { return s.fields }

func (s *Structure[T]) UnmarshalJSON(b []byte) error {
	var wire struct {
		Fields T `json:"fields"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	s.fields = wire.Fields
	return nil
}

func (s Structure[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Fields T `json:"fields"`
	}{Fields: s.fields})
}
