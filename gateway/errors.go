// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gateway

import "github.com/pkg/errors"

var (
	// ErrEncoding marks call data that cannot be built from the given arguments.
	ErrEncoding = errors.New("bad call arguments")
	// ErrTransport marks ledger client failures.
	ErrTransport = errors.New("ledger request failed")
	// ErrDecode marks logs whose shape does not match the declared event.
	ErrDecode = errors.New("log mismatches event ABI")
	// ErrNotFound is returned when a receipt carries no log of the wanted event.
	ErrNotFound = errors.New("event not found in receipt")
	// ErrUnknownMethod is returned for method names absent from the descriptor.
	ErrUnknownMethod = errors.New("method not in ABI")
	// ErrUnknownEvent is returned for event names absent from the descriptor.
	ErrUnknownEvent = errors.New("event not in ABI")
)

// IsEncodingErr reports whether err means call data could not be built.
func IsEncodingErr(err error) bool {
	return errors.Is(err, ErrEncoding)
}

// IsTransportErr reports whether err originates from the ledger client.
func IsTransportErr(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDecodeErr reports whether err means a log did not match its event.
func IsDecodeErr(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsNotFound reports whether err means no matching event log exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
