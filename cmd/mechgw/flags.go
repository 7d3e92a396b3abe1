// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	rpcURLFlag = cli.StringFlag{
		Name:  "rpc-url",
		Value: "http://localhost:8545",
		Usage: "JSON-RPC endpoint of the ledger node",
	}
	contractFlag = cli.StringFlag{
		Name:  "contract",
		Usage: "address of the AgentMech deployment",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML config overriding the embedded contract descriptor",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for event databases",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.IntFlag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-4: error..debug)",
	}
	pollIntervalFlag = cli.DurationFlag{
		Name:  "poll-interval",
		Value: 10 * time.Second,
		Usage: "delay between head polls",
	}
	chunkSizeFlag = cli.Uint64Flag{
		Name:  "chunk-size",
		Value: 2048,
		Usage: "max block span of one log query",
	}
	startBlockFlag = cli.Uint64Flag{
		Name:  "start-block",
		Usage: "first block to scan on a fresh data dir",
	}
	eventFlag = cli.StringSliceFlag{
		Name:  "event",
		Usage: "event name to follow (repeatable, default all)",
	}
	fromBlockFlag = cli.StringFlag{
		Name:  "from-block",
		Value: "earliest",
		Usage: "start of the queried block range (number|earliest|latest|pending)",
	}
	toBlockFlag = cli.StringFlag{
		Name:  "to-block",
		Value: "latest",
		Usage: "end of the queried block range (number|earliest|latest|pending)",
	}
	methodFlag = cli.StringFlag{
		Name:  "method",
		Value: "deliver",
		Usage: "method to encode (deliver|request)",
	}
	requestIDFlag = cli.StringFlag{
		Name:  "request-id",
		Usage: "request id, decimal or 0x hex",
	}
	dataFlag = cli.StringFlag{
		Name:  "data",
		Value: "0x",
		Usage: "payload bytes, 0x hex",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "dump decoded records in full detail",
	}
)
