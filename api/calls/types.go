// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package calls

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// DeliverBody carries the arguments of a deliver call. RequestID
// accepts decimal or 0x hex.
type DeliverBody struct {
	RequestID *math.HexOrDecimal256 `json:"requestId"`
	Data      hexutil.Bytes         `json:"data"`
}

// RequestBody carries the payload of a request call.
type RequestBody struct {
	Data hexutil.Bytes `json:"data"`
}

// CallData is ready-to-sign input data for a transaction to the
// contract.
type CallData struct {
	To     common.Address `json:"to"`
	Method string         `json:"method"`
	Data   hexutil.Bytes  `json:"data"`
}
