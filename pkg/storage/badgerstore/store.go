// Package badgerstore is a reference implementation of the store.I
// boundary (§6) backed by dgraph-io/badger. The spec treats the storage
// backend as an external collaborator; this package exists so the relay
// has something to run against for local development and tests, the same
// role database.D plays for the teacher this module is adapted from.
package badgerstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"meshrelay.dev/pkg/encoders/event"
	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/interfaces/store"
	"meshrelay.dev/pkg/utils/apputil"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
	"meshrelay.dev/pkg/utils/units"
)

const eventPrefix = "ev:"

// D wraps a badger database as the relay's durable event store.
type D struct {
	*badger.DB
	dataDir string
}

// New opens (creating if necessary) a badger database at dataDir.
func New(ctx context.T, cancel context.F, dataDir, logLevel string) (d *D, err error) {
	if err = os.MkdirAll(dataDir, 0o755); chk.E(err) {
		return
	}
	if err = apputil.EnsureDir(filepath.Join(dataDir, "dummy.sst")); chk.E(err) {
		return
	}
	opts := badger.DefaultOptions(dataDir)
	opts.BlockCacheSize = int64(units.Gb)
	opts.Logger = NewLogger(logLevel)
	d = &D{dataDir: dataDir}
	if d.DB, err = badger.Open(opts); chk.E(err) {
		return
	}
	go func() {
		<-ctx.Done()
		if err := d.DB.Close(); err != nil {
			log.E.F("error closing database: %v", err)
		}
	}()
	return
}

var _ store.I = (*D)(nil)

// SaveEvent stores ev under "ev:<id>".
func (d *D) SaveEvent(ctx context.T, ev *event.E) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(eventPrefix+ev.ID), b)
	})
}

// QueryEvents scans the event keyspace in id order starting after
// bookmark, returning every event matching f up to f.Limit, the id of the
// last key consumed (returned, or examined and found not to match) as the
// new bookmark, and whether a further matching event remains past the
// limit.
func (d *D) QueryEvents(ctx context.T, f *filter.F, bookmark string) (page store.Page, err error) {
	limit := 500
	if f.Limit != nil {
		limit = *f.Limit
	}
	err = d.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := eventPrefix
		if bookmark != "" {
			seek = eventPrefix + bookmark
		}
		for it.Seek([]byte(seek)); it.ValidForPrefix([]byte(eventPrefix)); it.Next() {
			key := string(it.Item().Key())
			if bookmark != "" && key <= eventPrefix+bookmark {
				continue
			}
			var ev event.E
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			if !f.Matches(&ev) {
				page.Continue = strings.TrimPrefix(key, eventPrefix)
				continue
			}
			if len(page.Events) >= limit {
				page.HasMore = true
				return nil
			}
			page.Continue = strings.TrimPrefix(key, eventPrefix)
			page.Events = append(page.Events, &ev)
		}
		return nil
	})
	return
}
