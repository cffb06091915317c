// Package emberdb wires the disk manager, buffer pool, and B+tree
// index layers into a single opened storage engine, and exposes the
// configuration knobs each layer accepts.
package emberdb

import (
	"go.uber.org/zap"

	"emberdb/btree"
	"emberdb/buffer"
	"emberdb/disk"
	"emberdb/page"
)

// Config bundles every tunable the engine's layers accept: pool size
// and replacer history depth for the buffer pool, node fan-out for
// indexes opened through this engine.
type Config struct {
	PoolSize   int
	ReplacerK  int
	Leaf       int
	Internal   int
	DataFile   string
}

// DefaultConfig returns sane defaults: a modest pool, LRU-2, and node
// sizes that fill a page.
func DefaultConfig(dataFile string) Config {
	d := btree.DefaultConfig()
	return Config{
		PoolSize:  64,
		ReplacerK: 2,
		Leaf:      d.LeafMaxSize,
		Internal:  d.InternalMaxSize,
		DataFile:  dataFile,
	}
}

// Engine is an opened storage engine: one backing file, one buffer
// pool over it, one header catalog, and any number of named indexes
// sharing both.
type Engine struct {
	cfg    Config
	disk   *disk.Manager
	pool   *buffer.Pool
	header *disk.Header
	log    *zap.Logger
}

// Open opens (creating if necessary) the engine's backing file and
// loads its header catalog.
func Open(cfg Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d, err := disk.Open(cfg.DataFile)
	if err != nil {
		return nil, err
	}
	h, err := disk.LoadHeader(d)
	if err != nil {
		d.Close()
		return nil, err
	}
	pool := buffer.New(cfg.PoolSize, cfg.ReplacerK, d, log)
	return &Engine{cfg: cfg, disk: d, pool: pool, header: h, log: log}, nil
}

// Index opens (or creates) the named B+tree index.
func (e *Engine) Index(name string) (*btree.Index, error) {
	idx, err := btree.NewIndex(name, e.pool, e.header, btree.Config{
		LeafMaxSize:     e.cfg.Leaf,
		InternalMaxSize: e.cfg.Internal,
	})
	if err != nil {
		return nil, err
	}
	idx.SetLogger(e.log)
	return idx, nil
}

// Pool exposes the underlying buffer pool, mainly for diagnostics.
func (e *Engine) Pool() *buffer.Pool { return e.pool }

// Flush writes every dirty page back to disk.
func (e *Engine) Flush() error { return e.pool.FlushAllPages() }

// Close flushes and closes the backing file.
func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		return err
	}
	return e.disk.Close()
}

// PageSize is re-exported for callers that need to size external
// buffers without importing the page package directly.
const PageSize = page.Size
