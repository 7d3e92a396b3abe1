// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gateway

import (
	"encoding/hex"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw/abi"
)

// Arg is one named decoded event parameter.
type Arg struct {
	Name    string
	Value   Value
	Indexed bool
}

// EventRecord is one decoded occurrence of a contract event.
type EventRecord struct {
	Name        string
	Address     common.Address
	Args        []Arg
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// Arg finds a decoded parameter by name.
func (r *EventRecord) Arg(name string) (Value, bool) {
	for _, a := range r.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// TxHashHex returns the transaction hash as lowercase hex without a 0x
// prefix.
func (r *EventRecord) TxHashHex() string {
	return hex.EncodeToString(r.TxHash.Bytes())
}

// MarshalJSON flattens the record into one object holding tx_hash,
// block_number and the decoded parameters keyed by name. A parameter
// sharing a meta field's name wins over it.
func (r *EventRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Args)+2)
	out["tx_hash"] = r.TxHashHex()
	out["block_number"] = r.BlockNumber
	for _, a := range r.Args {
		out[a.Name] = a.Value
	}
	return json.Marshal(out)
}

// ArgsJSON marshals only the decoded parameters keyed by name.
func (r *EventRecord) ArgsJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Args))
	for _, a := range r.Args {
		out[a.Name] = a.Value
	}
	return json.Marshal(out)
}

// decodeLog decodes a raw log against the event declaration. Topic
// count and data shape must both match, a partial record is never
// returned.
func decodeLog(ev *abi.Event, log *types.Log) (*EventRecord, error) {
	if len(log.Topics) == 0 {
		return nil, errors.WithMessage(ErrDecode, "log carries no topics")
	}
	if log.Topics[0] != ev.ID() {
		return nil, errors.WithMessagef(ErrDecode, "topic0 %s is not event %s", log.Topics[0], ev.Name())
	}
	indexed := ev.IndexedInputs()
	if len(log.Topics) != len(indexed)+1 {
		return nil, errors.WithMessagef(ErrDecode, "event %s wants %d topics, log carries %d",
			ev.Name(), len(indexed)+1, len(log.Topics))
	}
	nonIndexed := ev.NonIndexedInputs()
	if len(nonIndexed) == 0 && len(log.Data) != 0 {
		return nil, errors.WithMessagef(ErrDecode, "event %s wants empty data, log carries %d bytes",
			ev.Name(), len(log.Data))
	}
	if len(log.Data)%32 != 0 {
		return nil, errors.WithMessagef(ErrDecode, "event %s data length %d is not word aligned",
			ev.Name(), len(log.Data))
	}
	var dataArgs map[string]interface{}
	if len(nonIndexed) > 0 {
		var err error
		if dataArgs, err = ev.Decode(log.Data); err != nil {
			return nil, errors.WithMessagef(ErrDecode, "event %s data: %s", ev.Name(), err)
		}
	}

	args := make([]Arg, 0, len(ev.Inputs()))
	topicIdx := 1
	for _, input := range ev.Inputs() {
		if input.Indexed {
			val, err := decodeTopic(input.Type, log.Topics[topicIdx])
			topicIdx++
			if err != nil {
				return nil, errors.WithMessagef(ErrDecode, "event %s arg %s: %s", ev.Name(), input.Name, err)
			}
			args = append(args, Arg{input.Name, val, true})
			continue
		}
		raw, ok := dataArgs[input.Name]
		if !ok {
			return nil, errors.WithMessagef(ErrDecode, "event %s arg %s missing from data", ev.Name(), input.Name)
		}
		val, err := fromABIValue(input.Type, raw)
		if err != nil {
			return nil, errors.WithMessagef(ErrDecode, "event %s arg %s: %s", ev.Name(), input.Name, err)
		}
		args = append(args, Arg{input.Name, val, false})
	}

	return &EventRecord{
		Name:        ev.Name(),
		Address:     log.Address,
		Args:        args,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}
