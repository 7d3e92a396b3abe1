// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package gateway builds call data for and decodes event logs of one
// contract deployment.
package gateway

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw/abi"
	"github.com/mechio/mechgw/ledger"
)

// EncodedCall is ready-to-sign contract call input data.
type EncodedCall []byte

// Hex returns the call data as 0x-prefixed hex.
func (c EncodedCall) Hex() string {
	return hexutil.Encode(c)
}

func (c EncodedCall) String() string {
	return c.Hex()
}

// MethodID returns the 4-byte selector prefix.
func (c EncodedCall) MethodID() (abi.MethodID, error) {
	return abi.ExtractMethodID(c)
}

// Gateway is a stateless front to one deployed contract. It keeps no
// caches and never retries, every query maps to at most one ledger
// round trip.
type Gateway struct {
	addr   common.Address
	abi    *abi.ABI
	client ledger.Client
}

// New creates a gateway bound to the contract deployed at addr. client
// may be nil when only call building and receipt extraction are needed.
func New(addr common.Address, descriptor *abi.ABI, client ledger.Client) *Gateway {
	return &Gateway{addr, descriptor, client}
}

// Address returns the bound contract address.
func (g *Gateway) Address() common.Address {
	return g.addr
}

// ABI returns the bound contract descriptor.
func (g *Gateway) ABI() *abi.ABI {
	return g.abi
}

// EncodeCall builds call data for any method the descriptor declares.
func (g *Gateway) EncodeCall(method string, args ...interface{}) (EncodedCall, error) {
	m, ok := g.abi.MethodByName(method)
	if !ok {
		return nil, errors.WithMessage(ErrUnknownMethod, method)
	}
	data, err := m.EncodeInput(args...)
	if err != nil {
		return nil, errors.WithMessagef(ErrEncoding, "method %s: %s", method, err)
	}
	return data, nil
}

// BuildDeliverCall builds the call data delivering the result of
// request requestID. The encoding is deterministic for equal inputs.
func (g *Gateway) BuildDeliverCall(requestID *big.Int, data []byte) (EncodedCall, error) {
	if err := checkUint256("requestId", requestID); err != nil {
		return nil, err
	}
	return g.EncodeCall("deliver", requestID, data)
}

// BuildRequestCall builds the call data submitting a new request payload.
func (g *Gateway) BuildRequestCall(data []byte) (EncodedCall, error) {
	return g.EncodeCall("request", data)
}

// checkUint256 rejects values the ABI coder would silently wrap modulo
// 2^256.
func checkUint256(name string, n *big.Int) error {
	if n == nil {
		return errors.WithMessage(ErrEncoding, name+" is nil")
	}
	if n.Sign() < 0 {
		return errors.WithMessagef(ErrEncoding, "%s %s is negative", name, n)
	}
	if n.BitLen() > 256 {
		return errors.WithMessagef(ErrEncoding, "%s overflows uint256", name)
	}
	return nil
}

// QueryEvents returns all occurrences of the named event within the
// block range, preserving the order the ledger reports. A single log
// that fails to decode fails the whole query.
func (g *Gateway) QueryEvents(ctx context.Context, event string, rng BlockRange) ([]*EventRecord, error) {
	ev, ok := g.abi.EventByName(event)
	if !ok {
		return nil, errors.WithMessage(ErrUnknownEvent, event)
	}
	if g.client == nil {
		return nil, errors.WithMessage(ErrTransport, "no ledger client")
	}
	query := ethereum.FilterQuery{
		FromBlock: rng.From.BigInt(),
		ToBlock:   rng.To.BigInt(),
		Addresses: []common.Address{g.addr},
		Topics:    [][]common.Hash{{ev.ID()}},
	}
	logs, err := g.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.WithMessagef(ErrTransport, "filter %s logs of %s in %s: %s", event, g.addr, rng, err)
	}
	records := make([]*EventRecord, 0, len(logs))
	for i := range logs {
		rec, err := decodeLog(ev, &logs[i])
		if err != nil {
			return nil, errors.WithMessagef(err, "log %d of block %d", logs[i].Index, logs[i].BlockNumber)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExtractEventsFromReceipt returns every log of the named event emitted
// by the bound contract within the receipt, in execution order. No
// matches yields an empty slice, not an error.
func (g *Gateway) ExtractEventsFromReceipt(event string, receipt *types.Receipt) ([]*EventRecord, error) {
	ev, ok := g.abi.EventByName(event)
	if !ok {
		return nil, errors.WithMessage(ErrUnknownEvent, event)
	}
	if receipt == nil {
		return nil, errors.New("nil receipt")
	}
	// A populated bloom covers every log of the receipt, so a miss
	// proves absence without scanning.
	if receipt.Bloom != (types.Bloom{}) && !types.BloomLookup(receipt.Bloom, ev.ID()) {
		return nil, nil
	}
	var records []*EventRecord
	for _, log := range receipt.Logs {
		if log == nil || log.Address != g.addr {
			continue
		}
		if len(log.Topics) == 0 || log.Topics[0] != ev.ID() {
			continue
		}
		rec, err := decodeLog(ev, log)
		if err != nil {
			return nil, errors.WithMessagef(err, "receipt %s log %d", receipt.TxHash, log.Index)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ExtractEventFromReceipt returns the first log of the named event
// emitted by the bound contract within the receipt. Receipts keep logs
// in execution order, so the first match is the earliest emission; use
// ExtractEventsFromReceipt when later emissions matter.
func (g *Gateway) ExtractEventFromReceipt(event string, receipt *types.Receipt) (*EventRecord, error) {
	records, err := g.ExtractEventsFromReceipt(event, receipt)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.WithMessagef(ErrNotFound, "%s in receipt %s", event, receipt.TxHash)
	}
	return records[0], nil
}
