// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mech

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/mechio/mechgw/abi"
)

// Config selects the contract deployment a gateway binds to.
type Config struct {
	// Address is the 0x-prefixed deployment address.
	Address string `yaml:"address"`
	// ABIFile optionally overrides the embedded AgentMech descriptor.
	ABIFile string `yaml:"abiFile"`
	// Events narrows which events the watcher follows. Empty follows
	// every event the descriptor declares.
	Events []string `yaml:"events"`
	// StartBlock is the first block the watcher scans.
	StartBlock uint64 `yaml:"startBlock"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return &cfg, nil
}

// ContractAddress validates and decodes the configured address.
func (c *Config) ContractAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Address) {
		return common.Address{}, errors.Errorf("invalid contract address %q", c.Address)
	}
	return common.HexToAddress(c.Address), nil
}

// Descriptor loads the ABI the config selects, falling back to the
// embedded AgentMech one.
func (c *Config) Descriptor() (*abi.ABI, error) {
	if c.ABIFile == "" {
		return MustABI(), nil
	}
	raw, err := os.ReadFile(c.ABIFile)
	if err != nil {
		return nil, errors.Wrap(err, "read ABI file")
	}
	descriptor, err := abi.New(raw)
	if err != nil {
		return nil, errors.Wrap(err, c.ABIFile)
	}
	return descriptor, nil
}

// WatchEvents resolves the event names the watcher should follow.
func (c *Config) WatchEvents(descriptor *abi.ABI) ([]string, error) {
	if len(c.Events) == 0 {
		return descriptor.EventNames(), nil
	}
	for _, name := range c.Events {
		if _, ok := descriptor.EventByName(name); !ok {
			return nil, errors.Errorf("event %q not in ABI", name)
		}
	}
	return c.Events, nil
}
