package crawler

import (
	"context"
	"encoding/json"
)

// ObjectData is the content and metadata of one fetched object, as
// returned by a RemoteReader that was asked to include content and
// owner information.
type ObjectData struct {
	Content json.RawMessage
	Owner   *Owner
	Version SequenceNumber
}

// ObjectResponse is one object lookup's result. Error is set when the
// remote store itself reports a per-object failure (e.g. the object was
// pruned); Data is nil when the object does not exist.
type ObjectResponse struct {
	ObjectID ObjectID
	Error    *string
	Data     *ObjectData
}

// DynamicFieldEntry is one entry in a dynamic-field listing: the child
// object's ID plus its field name's raw JSON value.
type DynamicFieldEntry struct {
	ObjectID ObjectID
	Name     json.RawMessage
}

// DynamicFieldPage is one page of a dynamic-field listing.
type DynamicFieldPage struct {
	Data        []DynamicFieldEntry
	NextCursor  *string
	HasNextPage bool
}

// RemoteReader is the remote object store boundary the crawler polls.
// A production implementation backs this with a blockchain RPC client
// (an external collaborator); tests back it with an in-memory double.
type RemoteReader interface {
	GetObject(ctx context.Context, id ObjectID) (ObjectResponse, error)
	MultiGetObjects(ctx context.Context, ids []ObjectID) ([]ObjectResponse, error)
	GetDynamicFieldObject(ctx context.Context, id ObjectID, field DynamicFieldName) (ObjectResponse, error)
	GetDynamicFields(ctx context.Context, id ObjectID, cursor *string) (DynamicFieldPage, error)
}
