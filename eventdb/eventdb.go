// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/mechio/mechgw/gateway"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	blockNumber INTEGER NOT NULL,
	eventIndex INTEGER NOT NULL,
	txHash BLOB NOT NULL,
	address BLOB NOT NULL,
	name TEXT NOT NULL,
	args TEXT NOT NULL,
	PRIMARY KEY (blockNumber, eventIndex)
);
CREATE INDEX IF NOT EXISTS event_name ON event(name);
CREATE INDEX IF NOT EXISTS event_txHash ON event(txHash);`

// EventDB persists decoded event records in sqlite.
type EventDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New creates or opens the event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			if err := db.Close(); err != nil {
				fmt.Println("could not close eventdb, error:", err)
			}
		}
	}()
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &EventDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() {
	if err := db.db.Close(); err != nil {
		fmt.Println("could not close eventdb, error:", err)
	}
}

func (db *EventDB) Path() string {
	return db.path
}

// Prepare starts a write batch.
func (db *EventDB) Prepare() *Batch {
	return &Batch{db: db.db}
}

// CountEvents returns the number of stored records.
func (db *EventDB) CountEvents(ctx context.Context) (uint64, error) {
	var n uint64
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// FilterEvents queries stored records. A nil filter returns everything.
func (db *EventDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Record, error) {
	if filter == nil {
		return db.queryRecords(ctx, "SELECT * FROM event")
	}
	var args []interface{}
	stmt := "SELECT * FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND blockNumber >= ? "
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND blockNumber <= ? "
		}
	}
	length := len(filter.CriteriaSet)
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1 "
		} else {
			stmt += " OR ( 1 "
		}
		if criteria.Name != "" {
			args = append(args, criteria.Name)
			stmt += " AND name = ? "
		}
		if criteria.Address != nil {
			args = append(args, criteria.Address.Bytes())
			stmt += " AND address = ? "
		}
		if criteria.TxHash != nil {
			args = append(args, criteria.TxHash.Bytes())
			stmt += " AND txHash = ? "
		}
		if i == length-1 {
			stmt += " )) "
		} else {
			stmt += " ) "
		}
	}

	if filter.Order == DESC {
		stmt += " ORDER BY blockNumber DESC,eventIndex DESC "
	} else {
		stmt += " ORDER BY blockNumber ASC,eventIndex ASC "
	}

	if filter.Options != nil {
		stmt += " limit ?, ? "
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryRecords(ctx, stmt, args...)
}

func (db *EventDB) queryRecords(ctx context.Context, stmt string, args ...interface{}) ([]*Record, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			blockNumber uint64
			eventIndex  uint32
			txHash      []byte
			address     []byte
			name        string
			argsJSON    []byte
		)
		if err := rows.Scan(
			&blockNumber,
			&eventIndex,
			&txHash,
			&address,
			&name,
			&argsJSON,
		); err != nil {
			return nil, err
		}
		records = append(records, &Record{
			BlockNumber: blockNumber,
			LogIndex:    eventIndex,
			TxHash:      common.BytesToHash(txHash),
			Address:     common.BytesToAddress(address),
			Name:        name,
			Args:        argsJSON,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Batch buffers records for one transactional write. Errors stick, the
// first one surfaces from Commit.
type Batch struct {
	db      *sql.DB
	records []*Record
	err     error
}

func (b *Batch) execInTx(proc func(*sql.Tx) error) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	if err := proc(tx); err != nil {
		if e := tx.Rollback(); e != nil {
			fmt.Println("could not rollback, error:", e)
		}
		return err
	}
	return tx.Commit()
}

// Insert buffers gateway records.
func (b *Batch) Insert(records ...*gateway.EventRecord) *Batch {
	if b.err != nil {
		return b
	}
	for _, rec := range records {
		stored, err := newRecord(rec)
		if err != nil {
			b.err = err
			return b
		}
		b.records = append(b.records, stored)
	}
	return b
}

// Commit writes all buffered records in one transaction. Replaying a
// block range overwrites the earlier rows.
func (b *Batch) Commit() error {
	if b.err != nil {
		return b.err
	}
	return b.execInTx(func(tx *sql.Tx) error {
		for _, rec := range b.records {
			if _, err := tx.Exec("INSERT OR REPLACE INTO event(blockNumber ,eventIndex ,txHash ,address ,name ,args) VALUES ( ?, ?, ?, ?, ?, ?);",
				rec.BlockNumber,
				rec.LogIndex,
				rec.TxHash.Bytes(),
				rec.Address.Bytes(),
				rec.Name,
				string(rec.Args),
			); err != nil {
				return err
			}
		}
		return nil
	})
}
