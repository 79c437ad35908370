package pebblestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/store"
)

// FsyncMode defines durability behavior for committed transactions.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed batch.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs within FsyncInterval.
	FsyncModeInterval
	// FsyncModeNever never forces a WAL sync from the application.
	FsyncModeNever
)

// ParseFsyncMode maps a config string to a FsyncMode.
func ParseFsyncMode(s string) (FsyncMode, error) {
	switch s {
	case "", "always":
		return FsyncModeAlways, nil
	case "interval":
		return FsyncModeInterval, nil
	case "never":
		return FsyncModeNever, nil
	default:
		return FsyncModeUnspecified, fmt.Errorf("pebble: unknown fsync mode %q", s)
	}
}

// Options configures the Pebble account backend.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
	// Metrics observes read and commit latencies. Optional.
	Metrics MetricsHook
}

// MetricsHook observes reads and batch commits.
type MetricsHook = store.MetricsHook

// DB is a store.Backend on top of Pebble.
type DB struct {
	inner     *pebble.DB
	writeSync bool
	metrics   MetricsHook

	// mu serializes Update so every transaction reads a state no other
	// uncommitted batch has touched.
	mu sync.Mutex
}

var _ store.Backend = (*DB)(nil)

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebble: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch opts.Fsync {
	case FsyncModeAlways, FsyncModeNever:
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	default:
		opts.Fsync = FsyncModeAlways
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, fmt.Errorf("pebble: open %s: %w", opts.DataDir, err)
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = store.NoopMetrics{}
	}

	return &DB{
		inner:     inner,
		writeSync: opts.Fsync != FsyncModeNever,
		metrics:   metrics,
	}, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

// Update runs fn against an indexed batch and commits it iff fn returns nil.
func (db *DB) Update(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	b := db.inner.NewIndexedBatch()
	defer b.Close()

	tx := &batchTx{db: db, reader: b, batch: b}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.commitBatch(b, tx.ops)
}

// View runs fn against a point-in-time snapshot.
func (db *DB) View(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := db.inner.NewSnapshot()
	defer snap.Close()
	return fn(&batchTx{db: db, reader: snap})
}

func (db *DB) commitBatch(b *pebble.Batch, ops int) error {
	if b.Empty() {
		return nil
	}
	start := time.Now()
	size := b.Len()

	syncMode := pebble.NoSync
	if db.writeSync {
		syncMode = pebble.Sync
	}
	err := b.Commit(syncMode)
	db.metrics.ObserveBatchCommit(time.Since(start), ops, size)
	if err != nil {
		return fmt.Errorf("pebble: commit: %w", err)
	}
	return nil
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

// batchTx reads through reader and, for Update, writes into batch.
type batchTx struct {
	db     *DB
	reader reader
	batch  *pebble.Batch
	ops    int
}

func (t *batchTx) GetAccount(addr ir.Pubkey) (ir.Account, bool, error) {
	start := time.Now()
	val, closer, err := t.reader.Get(accountKey(addr))
	if errors.Is(err, pebble.ErrNotFound) {
		return ir.Account{}, false, nil
	}
	if err != nil {
		return ir.Account{}, false, fmt.Errorf("get account %s: %w", addr, err)
	}
	defer closer.Close()

	acct, err := decodeAccount(val)
	if err != nil {
		return ir.Account{}, false, fmt.Errorf("get account %s: %w", addr, err)
	}
	t.db.metrics.ObserveRead(time.Since(start), len(val))
	return acct, true, nil
}

func (t *batchTx) PutAccount(addr ir.Pubkey, acct ir.Account) error {
	if t.batch == nil {
		return store.ErrReadOnly
	}
	if err := t.batch.Set(accountKey(addr), encodeAccount(acct), nil); err != nil {
		return fmt.Errorf("put account %s: %w", addr, err)
	}
	t.ops++
	return nil
}
