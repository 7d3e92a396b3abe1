// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger declares the narrow client capabilities the gateway and
// the watcher consume. Callers own the client lifecycle, nothing here
// reconnects or retries.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

// Client can query logs and transaction receipts.
type Client interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// HeadReader reports the number of the newest block.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dial connects to a JSON-RPC endpoint. The returned client satisfies
// both Client and HeadReader.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "dial "+url)
	}
	return client, nil
}

var (
	_ Client     = (*ethclient.Client)(nil)
	_ HeadReader = (*ethclient.Client)(nil)
)
