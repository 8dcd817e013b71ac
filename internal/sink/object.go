package sink

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/objectstore"
	"github.com/JonMunkholm/opendata/internal/table"
)

// Putter uploads an object. *objectstore.Store implements it.
type Putter interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}

// ObjectSink uploads the CSV encoding of each output under
// <Prefix>/<run id>/<name>.csv.
type ObjectSink struct {
	Store  Putter
	Prefix string
}

// NewObjectSink returns a sink uploading to store.
func NewObjectSink(store Putter, prefix string) *ObjectSink {
	return &ObjectSink{Store: store, Prefix: prefix}
}

// Key returns the object key used for name within the run of ctx.
func (o *ObjectSink) Key(ctx context.Context, name string) string {
	return objectstore.Key(o.Prefix, logging.RunID(ctx), baseName(name)+".csv")
}

func (o *ObjectSink) Write(ctx context.Context, name string, t *table.Table) error {
	data, err := EncodeCSV(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	key := o.Key(ctx, name)
	if err := o.Store.Put(ctx, key, data, "text/csv; charset=utf-8"); err != nil {
		return fmt.Errorf("bucket upload %s: %w", key, err)
	}
	logging.FromContext(ctx).Info("table uploaded", "key", key, "bytes", len(data))
	return nil
}
