package tracing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/hailam/corengine/internal/xlog"
)

var tracingLog = xlog.Get("tracing")

// appName namespaces corengine's on-disk trace store the same way the
// teacher's storage package namespaced its preferences/stats database.
const appName = "corengine"

// DefaultTraceDir returns the platform-specific directory for the trace
// database, mirroring the teacher's GetDataDir layout.
func DefaultTraceDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, "AppData", "Roaming")
		}
	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	dir := filepath.Join(baseDir, appName, "trace")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// treeRecord and nodeRecord are the persisted tree and node shapes. A search
// is stored as a bare {finished} record; its trees point back to it through
// SearchID.
type treeRecord struct {
	SearchID uint64 `json:"search_id"`
	RootFEN  string `json:"root_fen"`
	Finished bool   `json:"finished"`
}

type nodeRecord struct {
	TreeID   uint64            `json:"tree_id"`
	Parent   uint64            `json:"parent"`
	Attrs    NodeAttrs         `json:"attrs"`
	Tags     map[string]string `json:"tags,omitempty"`
	Finished bool              `json:"finished"`
}

// BadgerSink persists search/tree/node records to an embedded BadgerDB,
// adapted from the teacher's preferences/stats storage layer: same
// open/close and KV-txn idiom, repurposed to key search-tree data instead of
// GUI state.
type BadgerSink struct {
	db      *badger.DB
	nextID  atomic.Uint64
}

var _ Sink = (*BadgerSink)(nil)

// NewBadgerSink opens (creating if necessary) a BadgerDB at dir.
func NewBadgerSink(dir string) (*BadgerSink, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger's own logging is off; write failures are logged via xlog

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerSink{db: db}, nil
}

// Close closes the underlying database.
func (s *BadgerSink) Close() error {
	return s.db.Close()
}

func (s *BadgerSink) allocID() uint64 {
	return s.nextID.Add(1)
}

func searchKey(id uint64) []byte { return []byte("search:" + itoa(id)) }
func treeKey(id uint64) []byte   { return []byte("tree:" + itoa(id)) }
func nodeKey(id uint64) []byte   { return []byte("node:" + itoa(id)) }

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (s *BadgerSink) put(key []byte, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		tracingLog.Warningf("marshal trace record: %v", err)
		return
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		tracingLog.Warningf("persist trace record: %v", err)
	}
}

func (s *BadgerSink) NewSearch() uint64 {
	id := s.allocID()
	s.put(searchKey(id), struct {
		Finished bool `json:"finished"`
	}{false})
	return id
}

func (s *BadgerSink) NewTree(searchID uint64, rootFEN string) uint64 {
	id := s.allocID()
	s.put(treeKey(id), treeRecord{SearchID: searchID, RootFEN: rootFEN})
	return id
}

func (s *BadgerSink) PushNode(treeID uint64, parent uint64, attrs NodeAttrs) uint64 {
	id := s.allocID()
	s.put(nodeKey(id), nodeRecord{TreeID: treeID, Parent: parent, Attrs: attrs})
	return id
}

func (s *BadgerSink) PushSibling(treeID uint64, node uint64, attrs NodeAttrs) uint64 {
	// A sibling shares the same parent as node; readers resolve the parent
	// chain when replaying a tree rather than storing it redundantly here.
	return s.PushNode(treeID, node, attrs)
}

func (s *BadgerSink) Set(node uint64, name string, value string) {
	var rec nodeRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(nodeKey(node))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}
		if rec.Tags == nil {
			rec.Tags = make(map[string]string)
		}
		rec.Tags[name] = value
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(nodeKey(node), data)
	})
	if err != nil {
		tracingLog.Warningf("set trace tag on node %d: %v", node, err)
	}
}

func (s *BadgerSink) PopNode(node uint64) {
	s.markFinished(nodeKey(node))
}

func (s *BadgerSink) FinishTree(treeID uint64) {
	s.markFinished(treeKey(treeID))
}

func (s *BadgerSink) FinishSearch(searchID uint64) {
	s.markFinished(searchKey(searchID))
}

func (s *BadgerSink) markFinished(key []byte) {
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var raw map[string]json.RawMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &raw)
		}); err != nil {
			return err
		}
		raw["finished"] = json.RawMessage("true")
		data, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		tracingLog.Warningf("mark trace record finished: %v", err)
	}
}
