// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mechio/mechgw/gateway"
)

// Record is a decoded contract event as stored in db.
type Record struct {
	BlockNumber uint64
	LogIndex    uint32
	TxHash      common.Hash
	Address     common.Address
	Name        string
	Args        json.RawMessage
}

// newRecord converts a gateway record to its stored form.
func newRecord(rec *gateway.EventRecord) (*Record, error) {
	args, err := rec.ArgsJSON()
	if err != nil {
		return nil, err
	}
	return &Record{
		BlockNumber: rec.BlockNumber,
		LogIndex:    uint32(rec.LogIndex),
		TxHash:      rec.TxHash,
		Address:     rec.Address,
		Name:        rec.Name,
		Args:        args,
	}, nil
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

type EventCriteria struct {
	Name    string
	Address *common.Address
	TxHash  *common.Hash
}

// EventFilter filter
type EventFilter struct {
	CriteriaSet []*EventCriteria
	Range       *Range
	Options     *Options
	Order       Order // default asc
}
