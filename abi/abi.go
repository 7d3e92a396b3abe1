// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package abi wraps go-ethereum's ABI primitives with lookups keyed by
// name, method id and event id.
package abi

import (
	"bytes"
	"sort"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ABI holds the parsed methods and events of a contract interface.
type ABI struct {
	nameToMethod map[string]*Method
	nameToEvent  map[string]*Event
	idToMethod   map[MethodID]*Method
	idToEvent    map[common.Hash]*Event
}

// New parses a JSON ABI definition.
func New(data []byte) (*ABI, error) {
	parsed, err := ethabi.JSON(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parse ABI")
	}

	abi := &ABI{
		nameToMethod: make(map[string]*Method),
		nameToEvent:  make(map[string]*Event),
		idToMethod:   make(map[MethodID]*Method),
		idToEvent:    make(map[common.Hash]*Event),
	}
	for name := range parsed.Methods {
		m := parsed.Methods[name]
		method := newMethod(&m)
		abi.nameToMethod[name] = method
		abi.idToMethod[method.id] = method
	}
	for name := range parsed.Events {
		e := parsed.Events[name]
		event := newEvent(&e)
		abi.nameToEvent[name] = event
		abi.idToEvent[event.id] = event
	}
	return abi, nil
}

// MethodByName finds a method by name.
func (a *ABI) MethodByName(name string) (*Method, bool) {
	m, ok := a.nameToMethod[name]
	return m, ok
}

// MethodByID finds a method by the 4-byte id extracted from call input data.
func (a *ABI) MethodByID(id MethodID) (*Method, bool) {
	m, ok := a.idToMethod[id]
	return m, ok
}

// EventByName finds an event by name.
func (a *ABI) EventByName(name string) (*Event, bool) {
	e, ok := a.nameToEvent[name]
	return e, ok
}

// EventByID finds an event by its topic0 hash.
func (a *ABI) EventByID(id common.Hash) (*Event, bool) {
	e, ok := a.idToEvent[id]
	return e, ok
}

// EventNames lists declared event names in lexical order.
func (a *ABI) EventNames() []string {
	names := make([]string, 0, len(a.nameToEvent))
	for name := range a.nameToEvent {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
