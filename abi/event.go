// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	"fmt"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func canonicalEventSignature(e *ethabi.Event) string {
	types := make([]string, len(e.Inputs))
	for i, input := range e.Inputs {
		types[i] = input.Type.String()
	}
	return fmt.Sprintf("%v(%v)", e.Name, strings.Join(types, ","))
}

// Event see abi.Event in go-ethereum.
type Event struct {
	id         common.Hash
	event      *ethabi.Event
	indexed    ethabi.Arguments
	nonIndexed ethabi.Arguments
}

func newEvent(event *ethabi.Event) *Event {
	var indexed, nonIndexed ethabi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}
	id := common.BytesToHash(crypto.Keccak256([]byte(canonicalEventSignature(event))))

	return &Event{
		id,
		event,
		indexed,
		nonIndexed,
	}
}

// ID returns the event id, used as topic0 of emitted logs.
func (e *Event) ID() common.Hash {
	return e.id
}

// Name returns event name.
func (e *Event) Name() string {
	return e.event.Name
}

// Signature returns the canonical signature, e.g. "Request(address,uint256,bytes)".
func (e *Event) Signature() string {
	return e.event.Sig
}

// Inputs returns all event arguments in declaration order.
func (e *Event) Inputs() ethabi.Arguments {
	return e.event.Inputs
}

// IndexedInputs returns the arguments carried in log topics.
func (e *Event) IndexedInputs() ethabi.Arguments {
	return e.indexed
}

// NonIndexedInputs returns the arguments carried in the log data payload.
func (e *Event) NonIndexedInputs() ethabi.Arguments {
	return e.nonIndexed
}

// Encode encodes non-indexed args to event data.
func (e *Event) Encode(args ...interface{}) ([]byte, error) {
	return e.nonIndexed.Pack(args...)
}

// Decode decodes non-indexed event data into an argument map.
func (e *Event) Decode(data []byte) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if err := e.nonIndexed.UnpackIntoMap(out, data); err != nil {
		return nil, err
	}
	return out, nil
}
