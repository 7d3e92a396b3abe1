// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mech binds the gateway to the AgentMech contract family.
package mech

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/mechio/mechgw/abi"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/ledger"
)

// Canonical AgentMech event and method names.
const (
	EventRequest  = "Request"
	EventDeliver  = "Deliver"
	MethodRequest = "request"
	MethodDeliver = "deliver"
)

// ABIJSON is the AgentMech contract interface.
const ABIJSON = `[
	{"inputs":[{"internalType":"uint256","name":"_price","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"},{"indexed":false,"internalType":"bytes","name":"data","type":"bytes"}],"name":"Deliver","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"price","type":"uint256"}],"name":"PriceUpdated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"sender","type":"address"},{"indexed":false,"internalType":"uint256","name":"requestId","type":"uint256"},{"indexed":false,"internalType":"bytes","name":"data","type":"bytes"}],"name":"Request","type":"event"},
	{"inputs":[{"internalType":"uint256","name":"requestId","type":"uint256"},{"internalType":"bytes","name":"data","type":"bytes"}],"name":"deliver","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"},{"internalType":"bytes","name":"data","type":"bytes"}],"name":"getRequestId","outputs":[{"internalType":"uint256","name":"requestId","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"price","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"bytes","name":"data","type":"bytes"}],"name":"request","outputs":[{"internalType":"uint256","name":"requestId","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"newPrice","type":"uint256"}],"name":"setPrice","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// MustABI parses the embedded AgentMech descriptor.
func MustABI() *abi.ABI {
	descriptor, err := abi.New([]byte(ABIJSON))
	if err != nil {
		panic(errors.Wrap(err, "load AgentMech ABI"))
	}
	return descriptor
}

// NewGateway creates a gateway for the AgentMech deployed at addr.
// client may be nil when only call building and receipt extraction are
// needed.
func NewGateway(addr common.Address, client ledger.Client) *gateway.Gateway {
	return gateway.New(addr, MustABI(), client)
}
