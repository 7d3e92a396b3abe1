// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package watcher_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"

	"github.com/mechio/mechgw/abi"
	"github.com/mechio/mechgw/eventdb"
	"github.com/mechio/mechgw/gateway"
	"github.com/mechio/mechgw/watcher"
)

const testABI = `[
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"requestId","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"Request","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"requestId","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"Deliver","type":"event"}
]`

var (
	contractAddr = common.HexToAddress("0x77af263bd136faf1358b1bcb2dba79884f31db65")
	senderAddr   = common.HexToAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
)

// chainStub serves a fixed log set, filtered by block range and topic0.
type chainStub struct {
	mu   sync.Mutex
	head uint64
	logs []types.Log
}

func (c *chainStub) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *chainStub) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []types.Log
	for _, log := range c.logs {
		if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && log.Topics[0] != q.Topics[0][0] {
			continue
		}
		out = append(out, log)
	}
	return out, nil
}

func (c *chainStub) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (c *chainStub) extend(head uint64, logs ...types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
	c.logs = append(c.logs, logs...)
}

func requestLog(t *testing.T, d *abi.ABI, requestID int64, blockNum uint64, index uint) types.Log {
	ev, ok := d.EventByName("Request")
	if !ok {
		t.Fatal("Request event missing from descriptor")
	}
	data, err := ev.Encode(big.NewInt(requestID), []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	var txHash common.Hash
	txHash[0] = byte(blockNum)
	txHash[1] = byte(index)
	return types.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{ev.ID(), common.BytesToHash(common.LeftPadBytes(senderAddr.Bytes(), 32))},
		Data:        data,
		BlockNumber: blockNum,
		TxHash:      txHash,
		Index:       index,
	}
}

func newTestWatcher(t *testing.T, stub *chainStub, db *eventdb.EventDB, progress *watcher.Progress) *watcher.Watcher {
	d, err := abi.New([]byte(testABI))
	if err != nil {
		t.Fatal(err)
	}
	gw := gateway.New(contractAddr, d, stub)
	w, err := watcher.New(gw, stub, db, progress, watcher.Options{
		PollInterval: 10 * time.Millisecond,
		ChunkSize:    3,
		Events:       []string{"Request"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func waitRecords(t *testing.T, ch chan []*gateway.EventRecord, want int) []*gateway.EventRecord {
	var got []*gateway.EventRecord
	deadline := time.After(3 * time.Second)
	for len(got) < want {
		select {
		case batch := <-ch:
			got = append(got, batch...)
		case <-deadline:
			t.Fatalf("timed out waiting for %d records, got %d", want, len(got))
		}
	}
	return got
}

func TestWatcherIngestsAndPublishes(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	db, err := eventdb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	progress := watcher.NewMemProgress()
	defer progress.Close()

	stub := &chainStub{}
	w := newTestWatcher(t, stub, db, progress)
	d, _ := abi.New([]byte(testABI))
	stub.extend(7,
		requestLog(t, d, 1, 2, 0),
		requestLog(t, d, 2, 5, 1),
	)

	ch := make(chan []*gateway.EventRecord, 16)
	sub := w.SubscribeRecords(ch)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		w.Run(ctx)
	}()

	got := waitRecords(t, ch, 2)
	assert.Equal(t, uint64(2), got[0].BlockNumber)
	assert.Equal(t, uint64(5), got[1].BlockNumber)

	// a new block shows up on a later tick
	stub.extend(8, requestLog(t, d, 3, 8, 0))
	got = waitRecords(t, ch, 1)
	assert.Equal(t, uint64(8), got[0].BlockNumber)

	cancel()
	<-runDone

	n, err := db.CountEvents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, uint64(3), n)
	assert.Equal(t, uint64(9), w.NextBlock())
	assert.Equal(t, uint64(8), w.ChainHead())
}

func TestWatcherResumesFromProgress(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	db, err := eventdb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	progress := watcher.NewMemProgress()
	defer progress.Close()

	d, _ := abi.New([]byte(testABI))
	stub := &chainStub{}
	stub.extend(4, requestLog(t, d, 1, 3, 0))

	run := func(w *watcher.Watcher, pastHead uint64) {
		ctx, cancel := context.WithCancel(context.Background())
		runDone := make(chan struct{})
		go func() {
			defer close(runDone)
			w.Run(ctx)
		}()
		for w.NextBlock() <= pastHead {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		<-runDone
	}

	run(newTestWatcher(t, stub, db, progress), 4)

	n, _ := db.CountEvents(context.Background())
	assert.Equal(t, uint64(1), n)

	// a fresh watcher on the same stores must not rescan old blocks
	w2 := newTestWatcher(t, stub, db, progress)
	assert.Equal(t, uint64(5), w2.NextBlock())
	run(w2, 4)

	n, _ = db.CountEvents(context.Background())
	assert.Equal(t, uint64(1), n, "restart must not double-insert")
}

func TestWatcherRejectsUnknownEvent(t *testing.T) {
	db, err := eventdb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	progress := watcher.NewMemProgress()
	defer progress.Close()

	d, _ := abi.New([]byte(testABI))
	gw := gateway.New(contractAddr, d, &chainStub{})
	_, err = watcher.New(gw, &chainStub{}, db, progress, watcher.Options{
		Events: []string{"Burned"},
	})
	assert.Error(t, err)
}
