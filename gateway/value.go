// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gateway

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Kind discriminates the variants a decoded ABI value can take.
type Kind byte

const (
	KindInvalid Kind = iota
	KindUint
	KindInt
	KindBool
	KindAddress
	KindBytes
	KindString
	// KindHash stands in for an indexed dynamic parameter, whose topic
	// carries only the keccak hash of the value.
	KindHash
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindAddress:
		return "address"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindHash:
		return "hash"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Value is one decoded ABI parameter. Exactly one variant is set,
// discriminated by Kind. The zero value is invalid.
type Value struct {
	kind Kind
	num  *big.Int
	flag bool
	addr common.Address
	data []byte
	str  string
	hash common.Hash
	list []Value
}

// UintValue wraps an unsigned integer of any ABI width.
func UintValue(n *big.Int) Value { return Value{kind: KindUint, num: n} }

// IntValue wraps a signed integer of any ABI width.
func IntValue(n *big.Int) Value { return Value{kind: KindInt, num: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// AddressValue wraps an account address.
func AddressValue(a common.Address) Value { return Value{kind: KindAddress, addr: a} }

// BytesValue wraps a dynamic or fixed-size byte string.
func BytesValue(b []byte) Value { return Value{kind: KindBytes, data: b} }

// StringValue wraps a UTF-8 string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// HashValue wraps the keccak digest of an indexed dynamic parameter.
func HashValue(h common.Hash) Value { return Value{kind: KindHash, hash: h} }

// ArrayValue wraps an ordered list of values.
func ArrayValue(vs ...Value) Value { return Value{kind: KindArray, list: vs} }

// Kind returns the variant discriminator.
func (v Value) Kind() Kind { return v.kind }

// Uint returns the unsigned integer variant.
func (v Value) Uint() (*big.Int, bool) {
	if v.kind != KindUint {
		return nil, false
	}
	return v.num, true
}

// Int returns the signed integer variant.
func (v Value) Int() (*big.Int, bool) {
	if v.kind != KindInt {
		return nil, false
	}
	return v.num, true
}

// Bool returns the boolean variant.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.flag, true
}

// Address returns the address variant.
func (v Value) Address() (common.Address, bool) {
	if v.kind != KindAddress {
		return common.Address{}, false
	}
	return v.addr, true
}

// Bytes returns the byte string variant.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.data, true
}

// Text returns the string variant.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Hash returns the digest variant.
func (v Value) Hash() (common.Hash, bool) {
	if v.kind != KindHash {
		return common.Hash{}, false
	}
	return v.hash, true
}

// Array returns the list variant.
func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.list, true
}

func (v Value) String() string {
	switch v.kind {
	case KindUint, KindInt:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindAddress:
		return v.addr.Hex()
	case KindBytes:
		return hexutil.Encode(v.data)
	case KindString:
		return v.str
	case KindHash:
		return v.hash.Hex()
	case KindArray:
		elems := make([]string, len(v.list))
		for i, e := range v.list {
			elems[i] = e.String()
		}
		return "[" + strings.Join(elems, ",") + "]"
	default:
		return "<invalid>"
	}
}

// MarshalJSON renders integers as JSON numbers, byte strings and hashes
// as 0x-prefixed hex and addresses in checksum form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindUint, KindInt:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	case KindAddress:
		return json.Marshal(v.addr.Hex())
	case KindBytes:
		return json.Marshal(hexutil.Encode(v.data))
	case KindString:
		return json.Marshal(v.str)
	case KindHash:
		return json.Marshal(v.hash.Hex())
	case KindArray:
		if v.list == nil {
			return json.Marshal([]Value{})
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(nil)
	}
}

var twoPow256 = new(big.Int).Lsh(big.NewInt(1), 256)

// decodeTopic decodes one indexed parameter from its 32-byte topic.
// Dynamic types cannot be recovered, their topic is the keccak hash of
// the value and decodes to KindHash.
func decodeTopic(t ethabi.Type, topic common.Hash) (Value, error) {
	switch t.T {
	case ethabi.AddressTy:
		return AddressValue(common.BytesToAddress(topic.Bytes())), nil
	case ethabi.UintTy:
		return UintValue(new(big.Int).SetBytes(topic.Bytes())), nil
	case ethabi.IntTy:
		n := new(big.Int).SetBytes(topic.Bytes())
		if topic[0]&0x80 != 0 {
			n.Sub(n, twoPow256)
		}
		return IntValue(n), nil
	case ethabi.BoolTy:
		return BoolValue(topic[31] != 0), nil
	case ethabi.FixedBytesTy, ethabi.FunctionTy:
		if t.Size > common.HashLength {
			return Value{}, errors.Errorf("fixed bytes size %d exceeds topic", t.Size)
		}
		return BytesValue(topic.Bytes()[:t.Size]), nil
	default:
		return HashValue(topic), nil
	}
}

// fromABIValue converts a value produced by the go-ethereum unpacker
// into the variant declared by the ABI type.
func fromABIValue(t ethabi.Type, val interface{}) (Value, error) {
	switch t.T {
	case ethabi.UintTy:
		switch n := val.(type) {
		case *big.Int:
			return UintValue(n), nil
		case uint8:
			return UintValue(new(big.Int).SetUint64(uint64(n))), nil
		case uint16:
			return UintValue(new(big.Int).SetUint64(uint64(n))), nil
		case uint32:
			return UintValue(new(big.Int).SetUint64(uint64(n))), nil
		case uint64:
			return UintValue(new(big.Int).SetUint64(n)), nil
		}
	case ethabi.IntTy:
		switch n := val.(type) {
		case *big.Int:
			return IntValue(n), nil
		case int8:
			return IntValue(big.NewInt(int64(n))), nil
		case int16:
			return IntValue(big.NewInt(int64(n))), nil
		case int32:
			return IntValue(big.NewInt(int64(n))), nil
		case int64:
			return IntValue(big.NewInt(n)), nil
		}
	case ethabi.BoolTy:
		if b, ok := val.(bool); ok {
			return BoolValue(b), nil
		}
	case ethabi.AddressTy:
		if a, ok := val.(common.Address); ok {
			return AddressValue(a), nil
		}
	case ethabi.StringTy:
		if s, ok := val.(string); ok {
			return StringValue(s), nil
		}
	case ethabi.BytesTy:
		if b, ok := val.([]byte); ok {
			return BytesValue(b), nil
		}
	case ethabi.HashTy:
		if h, ok := val.(common.Hash); ok {
			return HashValue(h), nil
		}
	case ethabi.FixedBytesTy, ethabi.FunctionTy:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return BytesValue(b), nil
		}
	case ethabi.SliceTy, ethabi.ArrayTy:
		rv := reflect.ValueOf(val)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			elems := make([]Value, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				elem, err := fromABIValue(*t.Elem, rv.Index(i).Interface())
				if err != nil {
					return Value{}, err
				}
				elems[i] = elem
			}
			return ArrayValue(elems...), nil
		}
	default:
		return Value{}, errors.Errorf("unsupported ABI type %v", t.String())
	}
	return Value{}, errors.Errorf("ABI type %v decoded to unexpected %T", t.String(), val)
}
