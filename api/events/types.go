// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mechio/mechgw/eventdb"
)

// EventCriteria selects stored records by event name, contract address
// or transaction hash. Empty fields match everything.
type EventCriteria struct {
	Name    string          `json:"name"`
	Address *common.Address `json:"address"`
	TxHash  *common.Hash    `json:"txHash"`
}

type EventFilter struct {
	CriteriaSet []*EventCriteria `json:"criteriaSet"`
	Range       *eventdb.Range   `json:"range"`
	Options     *eventdb.Options `json:"options"`
	Order       eventdb.Order    `json:"order"`
}

// FilteredEvent is one stored record in response shape. TxHash is
// lowercase hex without a 0x prefix.
type FilteredEvent struct {
	Name        string          `json:"name"`
	Address     common.Address  `json:"address"`
	TxHash      string          `json:"tx_hash"`
	BlockNumber uint64          `json:"block_number"`
	LogIndex    uint32          `json:"log_index"`
	Args        json.RawMessage `json:"args"`
}

func convertRecord(rec *eventdb.Record) *FilteredEvent {
	return &FilteredEvent{
		Name:        rec.Name,
		Address:     rec.Address,
		TxHash:      hex.EncodeToString(rec.TxHash.Bytes()),
		BlockNumber: rec.BlockNumber,
		LogIndex:    rec.LogIndex,
		Args:        rec.Args,
	}
}

func convertEventFilter(filter *EventFilter) *eventdb.EventFilter {
	f := &eventdb.EventFilter{
		Range:   filter.Range,
		Options: filter.Options,
		Order:   filter.Order,
	}
	if len(filter.CriteriaSet) > 0 {
		criterias := make([]*eventdb.EventCriteria, len(filter.CriteriaSet))
		for i, criteria := range filter.CriteriaSet {
			criterias[i] = &eventdb.EventCriteria{
				Name:    criteria.Name,
				Address: criteria.Address,
				TxHash:  criteria.TxHash,
			}
		}
		f.CriteriaSet = criterias
	}
	return f
}
