package graph

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	bucketFiles   = []byte("files")
	bucketSymbols = []byte("symbols")
	bucketRefs    = []byte("refs")
	bucketMeta    = []byte("meta")

	metaGeneration = []byte("generation")
)

// SaveSnapshot persists the full graph to a bbolt file at path. The previous
// snapshot contents are replaced wholesale.
func (s *Store) SaveSnapshot(path string) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer db.Close()

	s.mu.RLock()
	defer s.mu.RUnlock()

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketFiles, bucketSymbols, bucketRefs, bucketMeta} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}

		files := tx.Bucket(bucketFiles)
		for path, rec := range s.files {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal file %s: %w", path, err)
			}
			if err := files.Put([]byte(path), data); err != nil {
				return err
			}
		}

		symbols := tx.Bucket(bucketSymbols)
		for id, sym := range s.symbols {
			data, err := json.Marshal(sym)
			if err != nil {
				return fmt.Errorf("marshal symbol %s: %w", id, err)
			}
			if err := symbols.Put([]byte(id), data); err != nil {
				return err
			}
		}

		refs := tx.Bucket(bucketRefs)
		for path, list := range s.refs {
			data, err := json.Marshal(list)
			if err != nil {
				return fmt.Errorf("marshal refs %s: %w", path, err)
			}
			if err := refs.Put([]byte(path), data); err != nil {
				return err
			}
		}

		var gen [8]byte
		binary.BigEndian.PutUint64(gen[:], s.generation.Load())
		return tx.Bucket(bucketMeta).Put(metaGeneration, gen[:])
	})
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}

	s.log.Info("saved snapshot",
		zap.String("path", path),
		zap.Int("files", len(s.files)),
		zap.Int("symbols", len(s.symbols)))
	return nil
}

// LoadSnapshot replaces the store contents with a previously saved snapshot.
// The tail index is rebuilt from the loaded symbols.
func (s *Store) LoadSnapshot(path string) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer db.Close()

	files := make(map[string]*FileRecord)
	symbols := make(map[string]Symbol)
	refs := make(map[string][]Reference)
	var generation uint64

	err = db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketFiles); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var rec FileRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return fmt.Errorf("file %s: %w", k, err)
				}
				files[string(k)] = &rec
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketSymbols); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var sym Symbol
				if err := json.Unmarshal(v, &sym); err != nil {
					return fmt.Errorf("symbol %s: %w", k, err)
				}
				symbols[string(k)] = sym
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketRefs); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				var list []Reference
				if err := json.Unmarshal(v, &list); err != nil {
					return fmt.Errorf("refs %s: %w", k, err)
				}
				refs[string(k)] = list
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(metaGeneration); len(v) == 8 {
				generation = binary.BigEndian.Uint64(v)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = files
	s.symbols = symbols
	s.refs = refs
	s.byTail = make(map[string]map[string]bool, len(symbols))
	for id, sym := range symbols {
		s.indexTailLocked(id, sym.Name.Tail())
	}
	s.generation.Store(generation)

	s.log.Info("loaded snapshot",
		zap.String("path", path),
		zap.Int("files", len(files)),
		zap.Int("symbols", len(symbols)),
		zap.Uint64("generation", generation))
	return nil
}
