// Package storage holds the plugin's optional diagnostics ledger: a
// batched-write BoltDB helper, ported from the teacher's server-side write
// batcher, repurposed to record ref-count transitions and decode refusals
// instead of object metadata.
package storage

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// LedgerBucket is the single bucket every diagnostics entry is written into.
var LedgerBucket = []byte("diagnostics")

type kv struct{ k, v []byte }

// Batcher batches key/value writes into one bolt bucket, flushing on a timer
// or once enough entries have queued up, the same shape as the teacher's
// object-metadata batcher.
type Batcher struct {
	db     *bolt.DB
	bucket string
	ch     chan kv
	seq    uint64
}

// NewBatcher starts a Batcher writing into bucket, creating it first if
// necessary. The background flush loop has no stop mechanism: it runs until
// the process exits, and flushes after db is closed fail silently.
func NewBatcher(db *bolt.DB, bucket string) (*Batcher, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create diagnostics bucket: %w", err)
	}
	b := &Batcher{db: db, bucket: bucket, ch: make(chan kv, 1024)}
	go b.loop()
	return b, nil
}

// Put enqueues a raw key/value write.
func (b *Batcher) Put(k, v []byte) { b.ch <- kv{k, v} }

// RecordRefCountTransition logs a native-binding ref-count change under a
// monotonically increasing key so entries sort in write order.
func (b *Batcher) RecordRefCountTransition(from, to int) {
	b.Put(b.nextKey(), []byte(fmt.Sprintf("refcount %d -> %d at %s", from, to, time.Now().UTC().Format(time.RFC3339Nano))))
}

// RecordDecodeRefusal logs a refused decode attempt (e.g. "need 9, have 7").
func (b *Batcher) RecordDecodeRefusal(technique, reason string) {
	b.Put(b.nextKey(), []byte(fmt.Sprintf("%s decode refused: %s at %s", technique, reason, time.Now().UTC().Format(time.RFC3339Nano))))
}

func (b *Batcher) nextKey() []byte {
	b.seq++
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, b.seq)
	return key
}

func (b *Batcher) loop() {
	buf := make([]kv, 0, 100)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		_ = b.db.Update(func(tx *bolt.Tx) error {
			bk := tx.Bucket([]byte(b.bucket))
			for _, p := range buf {
				if err := bk.Put(p.k, p.v); err != nil {
					return err
				}
			}
			return nil
		})
		buf = buf[:0]
	}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case p := <-b.ch:
			buf = append(buf, p)
			if len(buf) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
