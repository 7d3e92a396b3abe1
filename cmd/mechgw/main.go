// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/ethclient"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/mechio/mechgw/abi"
	"github.com/mechio/mechgw/api"
	"github.com/mechio/mechgw/eventdb"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/ledger"
	"github.com/mechio/mechgw/mech"
	"github.com/mechio/mechgw/watcher"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "mechgw",
		Usage:     "Gateway to the AgentMech contract",
		Copyright: "2024 mechio",
		Flags: []cli.Flag{
			rpcURLFlag,
			contractFlag,
			configFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			verbosityFlag,
			pollIntervalFlag,
			chunkSizeFlag,
			startBlockFlag,
			eventFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:  "events",
				Usage: "query historical events and print them as JSON",
				Flags: []cli.Flag{
					rpcURLFlag,
					contractFlag,
					configFlag,
					verbosityFlag,
					eventFlag,
					fromBlockFlag,
					toBlockFlag,
					debugFlag,
				},
				Action: eventsAction,
			},
			{
				Name:  "calldata",
				Usage: "build ready-to-sign call data and print it as hex",
				Flags: []cli.Flag{
					contractFlag,
					configFlag,
					verbosityFlag,
					methodFlag,
					requestIDFlag,
					dataFlag,
				},
				Action: calldataAction,
			},
			{
				Name:      "receipt",
				Usage:     "extract a named event from a transaction receipt",
				ArgsUsage: "TX_HASH",
				Flags: []cli.Flag{
					rpcURLFlag,
					contractFlag,
					configFlag,
					verbosityFlag,
					eventFlag,
				},
				Action: receiptAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// binding resolves the deployment the process works against, merging
// the --config file with command line flags. Flags win.
type binding struct {
	address    common.Address
	descriptor *abi.ABI
	events     []string
	startBlock uint64
}

func makeBinding(ctx *cli.Context) *binding {
	var cfg *mech.Config
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if cfg, err = mech.LoadConfig(path); err != nil {
			fatal("load config:", err)
		}
	}

	addrStr := ctx.String(contractFlag.Name)
	if addrStr == "" && cfg != nil {
		addrStr = cfg.Address
	}
	if addrStr == "" {
		fatal(fmt.Sprintf("contract address required, use -%s or -%s", contractFlag.Name, configFlag.Name))
	}
	if !common.IsHexAddress(addrStr) {
		fatal(fmt.Sprintf("invalid contract address %q", addrStr))
	}

	b := &binding{
		address:    common.HexToAddress(addrStr),
		descriptor: mech.MustABI(),
		events:     ctx.StringSlice(eventFlag.Name),
	}
	if ctx.IsSet(startBlockFlag.Name) {
		b.startBlock = ctx.Uint64(startBlockFlag.Name)
	}
	if cfg != nil {
		descriptor, err := cfg.Descriptor()
		if err != nil {
			fatal("load descriptor:", err)
		}
		b.descriptor = descriptor
		if len(b.events) == 0 {
			if b.events, err = cfg.WatchEvents(descriptor); err != nil {
				fatal(err)
			}
		}
		if !ctx.IsSet(startBlockFlag.Name) {
			b.startBlock = cfg.StartBlock
		}
	}
	return b
}

func dialLedger(ctx *cli.Context) *ethclient.Client {
	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := ledger.Dial(dialCtx, ctx.String(rpcURLFlag.Name))
	if err != nil {
		fatal("dial ledger:", err)
	}
	return client
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)
	exitSignal := handleExitSignal()

	b := makeBinding(ctx)
	client := dialLedger(ctx)
	defer client.Close()
	gw := gateway.New(b.address, b.descriptor, client)

	dataDir := makeDataDir(ctx)
	db, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		fatal("open event database:", err)
	}
	defer db.Close()
	progress, err := watcher.OpenProgress(filepath.Join(dataDir, "progress.db"))
	if err != nil {
		fatal("open progress store:", err)
	}
	defer progress.Close()

	w, err := watcher.New(gw, client, db, progress, watcher.Options{
		PollInterval: ctx.Duration(pollIntervalFlag.Name),
		ChunkSize:    ctx.Uint64(chunkSizeFlag.Name),
		StartBlock:   b.startBlock,
		Events:       b.events,
	})
	if err != nil {
		fatal("create watcher:", err)
	}

	apiHandler, apiCloser := api.New(gw, client, db, w, ctx.String(apiCorsFlag.Name))
	apiURL, srvCloser := startAPIServer(ctx, apiHandler)
	defer func() {
		srvCloser()
		apiCloser()
	}()

	fmt.Printf(`Starting mechgw %v
    Contract   [ %v ]
    Events     [ %v ]
    Data dir   [ %v ]
    API portal [ %v ]
`, fullVersion(), b.address, strings.Join(w.Events(), ", "), dataDir, apiURL)

	return w.Run(exitSignal)
}

func eventsAction(ctx *cli.Context) error {
	initLogger(ctx)

	b := makeBinding(ctx)
	client := dialLedger(ctx)
	defer client.Close()
	gw := gateway.New(b.address, b.descriptor, client)

	from, err := gateway.ParseBlockID(ctx.String(fromBlockFlag.Name))
	if err != nil {
		fatal(err)
	}
	to, err := gateway.ParseBlockID(ctx.String(toBlockFlag.Name))
	if err != nil {
		fatal(err)
	}
	name := mech.EventRequest
	if names := ctx.StringSlice(eventFlag.Name); len(names) > 0 {
		name = names[0]
	}

	records, err := gw.QueryEvents(context.Background(), name, gateway.BlockRange{From: from, To: to})
	if err != nil {
		return err
	}
	if ctx.Bool(debugFlag.Name) {
		spew.Dump(records)
		return nil
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

func calldataAction(ctx *cli.Context) error {
	initLogger(ctx)

	b := makeBinding(ctx)
	gw := gateway.New(b.address, b.descriptor, nil)

	data, err := hexutil.Decode(ctx.String(dataFlag.Name))
	if err != nil {
		fatal("invalid data:", err)
	}

	var call gateway.EncodedCall
	switch method := ctx.String(methodFlag.Name); method {
	case mech.MethodDeliver:
		requestID, ok := math.ParseBig256(ctx.String(requestIDFlag.Name))
		if !ok {
			fatal(fmt.Sprintf("invalid request id %q", ctx.String(requestIDFlag.Name)))
		}
		if call, err = gw.BuildDeliverCall(requestID, data); err != nil {
			return err
		}
	case mech.MethodRequest:
		if call, err = gw.BuildRequestCall(data); err != nil {
			return err
		}
	default:
		fatal(fmt.Sprintf("unsupported method %q", method))
	}
	fmt.Println(call.Hex())
	return nil
}

func receiptAction(ctx *cli.Context) error {
	initLogger(ctx)

	hashStr := ctx.Args().First()
	if len(hashStr) != 2+2*common.HashLength || !strings.HasPrefix(hashStr, "0x") {
		fatal(fmt.Sprintf("invalid tx hash %q", hashStr))
	}

	b := makeBinding(ctx)
	client := dialLedger(ctx)
	defer client.Close()
	gw := gateway.New(b.address, b.descriptor, client)

	receipt, err := client.TransactionReceipt(context.Background(), common.HexToHash(hashStr))
	if err != nil {
		return err
	}
	name := mech.EventRequest
	if names := ctx.StringSlice(eventFlag.Name); len(names) > 0 {
		name = names[0]
	}
	rec, err := gw.ExtractEventFromReceipt(name, receipt)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}
