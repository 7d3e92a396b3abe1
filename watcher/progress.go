// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package watcher

import (
	"encoding/binary"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var progressKey = []byte("watcher-next-block")

// Progress persists the number of the next block the watcher scans, so
// a restart resumes where the previous run stopped.
type Progress struct {
	db *leveldb.DB
}

// OpenProgress opens or creates the progress store at the given path.
func OpenProgress(path string) (*Progress, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Progress{db}, nil
}

// NewMemProgress creates a progress store in ram.
func NewMemProgress() *Progress {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &Progress{db}
}

// Close closes the progress store.
func (p *Progress) Close() {
	if err := p.db.Close(); err != nil {
		fmt.Println("could not close progress store, error:", err)
	}
}

// Next returns the stored next block number. ok is false when nothing
// has been saved yet.
func (p *Progress) Next() (next uint64, ok bool, err error) {
	raw, err := p.db.Get(progressKey, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("corrupted progress entry, %d bytes", len(raw))
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

// Save stores the next block number.
func (p *Progress) Save(next uint64) error {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], next)
	return p.db.Put(progressKey, raw[:], nil)
}
