// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package abi

import (
	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// MethodID is the first 4 bytes of the keccak256 hash of a method signature.
type MethodID [4]byte

// ExtractMethodID extracts the method id from call input data.
func ExtractMethodID(input []byte) (MethodID, error) {
	if len(input) < 4 {
		return MethodID{}, errors.New("input data too short")
	}
	var id MethodID
	copy(id[:], input[:4])
	return id, nil
}

func (id MethodID) String() string {
	return hexutil.Encode(id[:])
}

// Method see abi.Method in go-ethereum.
type Method struct {
	id     MethodID
	method *ethabi.Method
}

func newMethod(method *ethabi.Method) *Method {
	var id MethodID
	copy(id[:], method.ID)
	return &Method{id, method}
}

// ID returns method id.
func (m *Method) ID() MethodID {
	return m.id
}

// Name returns method name.
func (m *Method) Name() string {
	return m.method.Name
}

// Signature returns the canonical signature, e.g. "deliver(uint256,bytes)".
func (m *Method) Signature() string {
	return m.method.Sig
}

// EncodeInput encodes the method id and args into call input data.
func (m *Method) EncodeInput(args ...interface{}) ([]byte, error) {
	packed, err := m.method.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, 4+len(packed))
	data = append(data, m.id[:]...)
	return append(data, packed...), nil
}

// DecodeInput decodes call input data into an argument map.
func (m *Method) DecodeInput(input []byte) (map[string]interface{}, error) {
	id, err := ExtractMethodID(input)
	if err != nil {
		return nil, err
	}
	if id != m.id {
		return nil, errors.New("method id mismatch")
	}
	out := make(map[string]interface{})
	if err := m.method.Inputs.UnpackIntoMap(out, input[4:]); err != nil {
		return nil, err
	}
	return out, nil
}
