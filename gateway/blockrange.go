// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gateway

import (
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

const (
	tagNumber = iota
	tagEarliest
	tagLatest
	tagPending
)

// BlockID identifies a ledger block by number or by symbolic tag.
// The zero value is block 0.
type BlockID struct {
	tag    int
	number uint64
}

// BlockAt returns the id of a concrete block number.
func BlockAt(n uint64) BlockID {
	return BlockID{tagNumber, n}
}

// EarliestBlock returns the id of the genesis block.
func EarliestBlock() BlockID { return BlockID{tag: tagEarliest} }

// LatestBlock returns the id of the newest sealed block.
func LatestBlock() BlockID { return BlockID{tag: tagLatest} }

// PendingBlock returns the id of the block being built.
func PendingBlock() BlockID { return BlockID{tag: tagPending} }

// ParseBlockID parses a decimal block number or one of the tags
// "earliest", "latest" and "pending".
func ParseBlockID(s string) (BlockID, error) {
	switch s {
	case "earliest":
		return EarliestBlock(), nil
	case "latest":
		return LatestBlock(), nil
	case "pending":
		return PendingBlock(), nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return BlockID{}, errors.New("invalid block id: " + s)
	}
	return BlockAt(n), nil
}

// Number returns the concrete block number and whether the id holds one.
func (b BlockID) Number() (uint64, bool) {
	switch b.tag {
	case tagNumber:
		return b.number, true
	case tagEarliest:
		return 0, true
	default:
		return 0, false
	}
}

// BigInt converts the id to the form eth_getLogs clients understand:
// nil selects the latest block and -1 the pending block.
func (b BlockID) BigInt() *big.Int {
	switch b.tag {
	case tagEarliest:
		return new(big.Int)
	case tagLatest:
		return nil
	case tagPending:
		return big.NewInt(-1)
	default:
		return new(big.Int).SetUint64(b.number)
	}
}

func (b BlockID) String() string {
	switch b.tag {
	case tagEarliest:
		return "earliest"
	case tagLatest:
		return "latest"
	case tagPending:
		return "pending"
	default:
		return strconv.FormatUint(b.number, 10)
	}
}

// BlockRange bounds an event query. Both ends are inclusive.
type BlockRange struct {
	From BlockID
	To   BlockID
}

// EntireRange spans from genesis to the latest sealed block.
func EntireRange() BlockRange {
	return BlockRange{EarliestBlock(), LatestBlock()}
}

// Span returns the range covering blocks from through to.
func Span(from, to uint64) BlockRange {
	return BlockRange{BlockAt(from), BlockAt(to)}
}

func (r BlockRange) String() string {
	return "[" + r.From.String() + "," + r.To.String() + "]"
}
