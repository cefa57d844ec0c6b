package crawler

import (
	"context"
	"encoding/json"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Response carries a fetched object's decoded content alongside the
// remote metadata (ID, owner, version) that a caller needs to reference
// the object again in a follow-up transaction.
type Response[T any] struct {
	ID      ObjectID
	Owner   Owner
	Version SequenceNumber
	Data    T
}

// IsShared reports whether the fetched object is a shared object.
func (r Response[T]) IsShared() bool {
	return r.Owner.IsShared()
}

// GetInitialVersion returns the version a shared object was first shared
// at, or the fetched version for any other ownership kind.
func (r Response[T]) GetInitialVersion() SequenceNumber {
	if r.Owner.Kind == OwnerShared {
		return r.Owner.InitialSharedVersion
	}
	return r.Version
}

// FetchOne fetches a single object and decodes its content as T.
func FetchOne[T any](ctx context.Context, r RemoteReader, id ObjectID) (Response[T], error) {
	resp, err := r.GetObject(ctx, id)
	if err != nil {
		return Response[T]{}, nexuserrors.Wrap(nexuserrors.KindRemote, err, ReasonRemoteUnreachable)
	}
	return parseObjectResponse[T](resp)
}

// FetchMany batch-fetches objects and decodes each one's content as T, in
// the order the remote store returns them.
func FetchMany[T any](ctx context.Context, r RemoteReader, ids []ObjectID) ([]Response[T], error) {
	if len(ids) == 0 {
		return nil, nil
	}

	resps, err := r.MultiGetObjects(ctx, ids)
	if err != nil {
		return nil, nexuserrors.Wrap(nexuserrors.KindRemote, err, ReasonRemoteUnreachable)
	}

	out := make([]Response[T], len(resps))
	for i, resp := range resps {
		parsed, err := parseObjectResponse[T](resp)
		if err != nil {
			return nil, err
		}
		out[i] = parsed
	}
	return out, nil
}

// dynamicFetchOne fetches a single dynamic field object and decodes its
// content directly as V (used by ObjectTable/ObjectBag, whose dynamic
// field value *is* the stored value) or as a fields-wrapped value (used
// by Table/Bag, which nest the value one level deeper).
func dynamicFetchOne[V any](ctx context.Context, r RemoteReader, id ObjectID, field DynamicFieldName) (V, error) {
	var zero V
	resp, err := r.GetDynamicFieldObject(ctx, id, field)
	if err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindRemote, err, ReasonRemoteUnreachable)
	}
	parsed, err := parseObjectResponse[V](resp)
	if err != nil {
		return zero, err
	}
	return parsed.Data, nil
}

// dynamicFetchMany lists all of a dynamic-field collection's entries,
// recovers each entry's key as K (skipping entries whose name does not
// decode as K, mirroring the original's filter_map), then batch-fetches
// the matching objects and decodes each one as W. Keys and values are
// zipped positionally, so the two slices must have matched lengths.
func dynamicFetchMany[K comparable, W any](ctx context.Context, r RemoteReader, id ObjectID) (map[K]W, error) {
	var entries []DynamicFieldEntry
	var cursor *string
	for {
		page, err := r.GetDynamicFields(ctx, id, cursor)
		if err != nil {
			return nil, nexuserrors.Wrap(nexuserrors.KindRemote, err, ReasonRemoteUnreachable)
		}
		entries = append(entries, page.Data...)
		cursor = page.NextCursor
		if !page.HasNextPage {
			break
		}
	}

	var keys []K
	var ids []ObjectID
	for _, e := range entries {
		ids = append(ids, e.ObjectID)
		var key K
		if err := json.Unmarshal(e.Name, &key); err == nil {
			keys = append(keys, key)
		}
	}

	values, err := FetchMany[W](ctx, r, ids)
	if err != nil {
		return nil, err
	}

	if len(keys) != len(values) {
		return nil, nexuserrors.New(nexuserrors.KindRemote, ReasonInconsistentRemote)
	}

	out := make(map[K]W, len(keys))
	for i, k := range keys {
		out[k] = values[i].Data
	}
	return out, nil
}

func parseObjectResponse[T any](resp ObjectResponse) (Response[T], error) {
	var zero Response[T]

	if resp.Error != nil {
		return zero, nexuserrors.New(nexuserrors.KindRemote, ReasonRemoteNotFound)
	}
	if resp.Data == nil {
		return zero, nexuserrors.New(nexuserrors.KindRemote, ReasonRemoteNotFound)
	}

	var data T
	if err := json.Unmarshal(resp.Data.Content, &data); err != nil {
		return zero, nexuserrors.Wrap(nexuserrors.KindValidation, err, ReasonDecodeError)
	}
	if resp.Data.Owner == nil {
		return zero, nexuserrors.New(nexuserrors.KindValidation, ReasonDecodeError)
	}

	return Response[T]{
		ID:      resp.ObjectID,
		Owner:   *resp.Data.Owner,
		Version: resp.Data.Version,
		Data:    data,
	}, nil
}
