// Package substore is the instance-local durable store for state that must
// survive a hibernation cycle but does not belong in the event store
// proper (§6): the persisted subscription list keyed "subs:<session-id>"
// and the single alarm record. It is a second badger.DB, separate from the
// event store, since the event store is an external collaborator (§1) the
// core only queries and writes through store.I while this one is owned
// outright.
package substore

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"meshrelay.dev/pkg/encoders/filter"
	"meshrelay.dev/pkg/storage/badgerstore"
	"meshrelay.dev/pkg/utils/apputil"
	"meshrelay.dev/pkg/utils/chk"
	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
)

const (
	subsPrefix = "subs:"
	alarmKey   = "alarm"
)

// D wraps a badger database holding per-session subscription lists and the
// lifecycle timer's alarm record.
type D struct {
	*badger.DB
}

// New opens (creating if necessary) a badger database at dataDir.
func New(ctx context.T, cancel context.F, dataDir, logLevel string) (d *D, err error) {
	if err = os.MkdirAll(dataDir, 0o755); chk.E(err) {
		return
	}
	if err = apputil.EnsureDir(dataDir + "/dummy.sst"); chk.E(err) {
		return
	}
	opts := badger.DefaultOptions(dataDir)
	opts.Logger = badgerstore.NewLogger(logLevel)
	d = &D{}
	if d.DB, err = badger.Open(opts); chk.E(err) {
		return
	}
	go func() {
		<-ctx.Done()
		if err := d.DB.Close(); err != nil {
			log.E.F("error closing substore: %v", err)
		}
	}()
	return
}

// subRecord is one (sub-id, filter-list) pair as persisted under
// "subs:<session-id>", matching §6's described wire shape.
type subRecord struct {
	SubID   string      `msgpack:"sub_id"`
	Filters []*filter.F `msgpack:"filters"`
}

// SaveSubscriptions durably persists sessionID's entire subscription map,
// replacing whatever was previously stored for it. Called whenever a
// session's subscription set changes (REQ, CLOSE) so a rehydration after
// this session's in-memory state is evicted reconstructs the same set
// (§4.1, §8 invariant 4).
func (d *D) SaveSubscriptions(sessionID string, subs map[string][]*filter.F) error {
	recs := make([]subRecord, 0, len(subs))
	for subID, filters := range subs {
		recs = append(recs, subRecord{SubID: subID, Filters: filters})
	}
	b, err := msgpack.Marshal(recs)
	if err != nil {
		return err
	}
	return d.DB.Update(func(txn *badger.Txn) error {
		if len(recs) == 0 {
			return deleteIfExists(txn, subsPrefix+sessionID)
		}
		return txn.Set([]byte(subsPrefix+sessionID), b)
	})
}

// LoadSubscriptions reads back sessionID's persisted subscription map, or
// an empty map if nothing was ever persisted for it.
func (d *D) LoadSubscriptions(sessionID string) (map[string][]*filter.F, error) {
	out := make(map[string][]*filter.F)
	err := d.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(subsPrefix + sessionID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var recs []subRecord
			if err := msgpack.Unmarshal(val, &recs); err != nil {
				return err
			}
			for _, r := range recs {
				out[r.SubID] = r.Filters
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSubscriptions purges sessionID's persisted subscription list,
// called on ordinary connection close (§4.1: "close and error events...
// purge persisted subscriptions for that session").
func (d *D) DeleteSubscriptions(sessionID string) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return deleteIfExists(txn, subsPrefix+sessionID)
	})
}

// SessionIDs lists every session id with a persisted subscription record,
// for the Lifecycle Timer's orphan sweep (§4.9).
func (d *D) SessionIDs() ([]string, error) {
	var out []string
	err := d.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(subsPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			out = append(out, key[len(subsPrefix):])
		}
		return nil
	})
	return out, err
}

func deleteIfExists(txn *badger.Txn, key string) error {
	if err := txn.Delete([]byte(key)); err != nil && err != badger.ErrKeyNotFound {
		return err
	}
	return nil
}

// alarmRecord is the single persisted wake-time record (§6).
type alarmRecord struct {
	WakeAt time.Time `json:"wake_at"`
}

// SetAlarm persists the Lifecycle Timer's next wake time.
func (d *D) SetAlarm(at time.Time) error {
	b, err := json.Marshal(alarmRecord{WakeAt: at})
	if err != nil {
		return err
	}
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(alarmKey), b)
	})
}

// GetAlarm returns the persisted wake time, if any.
func (d *D) GetAlarm() (at time.Time, ok bool, err error) {
	err = d.DB.View(func(txn *badger.Txn) error {
		item, e := txn.Get([]byte(alarmKey))
		if e == badger.ErrKeyNotFound {
			return nil
		}
		if e != nil {
			return e
		}
		return item.Value(func(val []byte) error {
			var rec alarmRecord
			if e := json.Unmarshal(val, &rec); e != nil {
				return e
			}
			at, ok = rec.WakeAt, true
			return nil
		})
	})
	return
}

// ClearAlarm removes the persisted alarm record.
func (d *D) ClearAlarm() error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return deleteIfExists(txn, alarmKey)
	})
}
