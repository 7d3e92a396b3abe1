// Copyright (c) 2024 The mechio developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package gateway_test

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/mechio/mechgw/abi"
	"github.com/mechio/mechgw/gateway"
)

const testABI = `[
	{"inputs":[{"name":"requestId","type":"uint256"},{"name":"data","type":"bytes"}],"name":"deliver","outputs":[],"type":"function"},
	{"inputs":[{"name":"data","type":"bytes"}],"name":"request","outputs":[{"name":"requestId","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"sender","type":"address"},{"indexed":false,"name":"requestId","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"Request","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":false,"name":"requestId","type":"uint256"},{"indexed":false,"name":"data","type":"bytes"}],"name":"Deliver","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"tag","type":"bytes32"},{"indexed":true,"name":"note","type":"string"},{"indexed":false,"name":"code","type":"uint32"},{"indexed":false,"name":"ok","type":"bool"},{"indexed":false,"name":"memo","type":"string"}],"name":"Audited","type":"event"}
]`

var (
	contractAddr = common.HexToAddress("0x77af263bd136faf1358b1bcb2dba79884f31db65")
	senderAddr   = common.HexToAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	txHashA      = common.HexToHash("0x2edcf43365acf1bbd7a4f60e12ee973278056bbc7f5b2790bfc509adbeca06af")
	txHashB      = common.HexToHash("0x686f1b32916e4f8a021a2f26b4ab2f2e7497c1f852e31b33ddb8ee5c252b35b9")
)

type stubLedger struct {
	logs      []types.Log
	err       error
	lastQuery ethereum.FilterQuery
	receipts  map[common.Hash]*types.Receipt
}

func (s *stubLedger) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return s.logs, nil
}

func (s *stubLedger) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if r, ok := s.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func mustDescriptor(t *testing.T) *abi.ABI {
	d, err := abi.New([]byte(testABI))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func requestLog(t *testing.T, d *abi.ABI, requestID int64, payload []byte, blockNum uint64, txHash common.Hash, index uint) types.Log {
	ev, ok := d.EventByName("Request")
	if !ok {
		t.Fatal("Request event missing from descriptor")
	}
	data, err := ev.Encode(big.NewInt(requestID), payload)
	if err != nil {
		t.Fatal(err)
	}
	return types.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{ev.ID(), common.BytesToHash(common.LeftPadBytes(senderAddr.Bytes(), 32))},
		Data:        data,
		BlockNumber: blockNum,
		TxHash:      txHash,
		Index:       index,
	}
}

func TestBuildDeliverCall(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	call, err := gw.BuildDeliverCall(big.NewInt(42), []byte("result"))
	if err != nil {
		t.Fatal(err)
	}

	var want abi.MethodID
	copy(want[:], crypto.Keccak256([]byte("deliver(uint256,bytes)"))[:4])
	id, err := call.MethodID()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, want, id)

	again, err := gw.BuildDeliverCall(big.NewInt(42), []byte("result"))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, call, again, "same inputs must yield identical call data")

	m, _ := gw.ABI().MethodByName("deliver")
	args, err := m.DecodeInput(call)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, big.NewInt(42).Cmp(args["requestId"].(*big.Int)))
	assert.Equal(t, []byte("result"), args["data"].([]byte))
}

func TestBuildDeliverCallRange(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	over := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err := gw.BuildDeliverCall(over, []byte{})
	assert.True(t, gateway.IsEncodingErr(err), "got %v", err)

	_, err = gw.BuildDeliverCall(big.NewInt(-1), []byte{})
	assert.True(t, gateway.IsEncodingErr(err), "got %v", err)

	_, err = gw.BuildDeliverCall(nil, []byte{})
	assert.True(t, gateway.IsEncodingErr(err), "got %v", err)

	max := new(big.Int).Sub(over, big.NewInt(1))
	_, err = gw.BuildDeliverCall(max, []byte{})
	assert.Nil(t, err)
}

func TestBuildRequestCall(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	call, err := gw.BuildRequestCall([]byte("prompt"))
	if err != nil {
		t.Fatal(err)
	}
	var want abi.MethodID
	copy(want[:], crypto.Keccak256([]byte("request(bytes)"))[:4])
	id, err := call.MethodID()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, want, id)
	assert.True(t, strings.HasPrefix(call.Hex(), "0x"))
}

func TestEncodeCallUnknownMethod(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	_, err := gw.EncodeCall("mint", big.NewInt(1))
	assert.True(t, errors.Is(err, gateway.ErrUnknownMethod), "got %v", err)
}

func TestEncodeCallBadArgs(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	_, err := gw.EncodeCall("deliver", "not a number", []byte{})
	assert.True(t, gateway.IsEncodingErr(err), "got %v", err)

	_, err = gw.EncodeCall("deliver", big.NewInt(1))
	assert.True(t, gateway.IsEncodingErr(err), "got %v", err)
}

func TestQueryEvents(t *testing.T) {
	d := mustDescriptor(t)
	stub := &stubLedger{logs: []types.Log{
		requestLog(t, d, 7, []byte("payload"), 5, txHashA, 2),
		requestLog(t, d, 8, []byte("late"), 6, txHashB, 0),
	}}
	gw := gateway.New(contractAddr, d, stub)

	recs, err := gw.QueryEvents(context.Background(), "Request", gateway.Span(1, 10))
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(recs))

	r := recs[0]
	assert.Equal(t, "Request", r.Name)
	assert.Equal(t, contractAddr, r.Address)
	assert.Equal(t, uint64(5), r.BlockNumber)
	assert.Equal(t, uint(2), r.LogIndex)
	assert.Equal(t, txHashA, r.TxHash)

	v, ok := r.Arg("sender")
	assert.True(t, ok)
	sender, ok := v.Address()
	assert.True(t, ok)
	assert.Equal(t, senderAddr, sender)

	v, _ = r.Arg("requestId")
	reqID, ok := v.Uint()
	assert.True(t, ok)
	assert.Equal(t, 0, big.NewInt(7).Cmp(reqID))

	v, _ = r.Arg("data")
	payload, ok := v.Bytes()
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), payload)

	// ledger report order is preserved
	assert.Equal(t, uint64(6), recs[1].BlockNumber)

	ev, _ := d.EventByName("Request")
	assert.Equal(t, []common.Address{contractAddr}, stub.lastQuery.Addresses)
	assert.Equal(t, [][]common.Hash{{ev.ID()}}, stub.lastQuery.Topics)
	assert.Equal(t, uint64(1), stub.lastQuery.FromBlock.Uint64())
	assert.Equal(t, uint64(10), stub.lastQuery.ToBlock.Uint64())
}

func TestQueryEventsRangeTags(t *testing.T) {
	stub := &stubLedger{}
	gw := gateway.New(contractAddr, mustDescriptor(t), stub)

	_, err := gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, stub.lastQuery.FromBlock.Sign())
	assert.Nil(t, stub.lastQuery.ToBlock, "latest maps to nil")

	_, err = gw.QueryEvents(context.Background(), "Request", gateway.BlockRange{
		From: gateway.BlockAt(3),
		To:   gateway.PendingBlock(),
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, uint64(3), stub.lastQuery.FromBlock.Uint64())
	assert.Equal(t, int64(-1), stub.lastQuery.ToBlock.Int64())
}

func TestQueryEventsTransportError(t *testing.T) {
	stub := &stubLedger{err: errors.New("connection refused")}
	gw := gateway.New(contractAddr, mustDescriptor(t), stub)

	recs, err := gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	assert.Nil(t, recs)
	assert.True(t, gateway.IsTransportErr(err), "got %v", err)
	assert.Contains(t, err.Error(), "Request")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestQueryEventsNoClient(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), nil)

	_, err := gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	assert.True(t, gateway.IsTransportErr(err), "got %v", err)
}

func TestQueryEventsUnknownEvent(t *testing.T) {
	gw := gateway.New(contractAddr, mustDescriptor(t), &stubLedger{})

	_, err := gw.QueryEvents(context.Background(), "Burned", gateway.EntireRange())
	assert.True(t, errors.Is(err, gateway.ErrUnknownEvent), "got %v", err)
}

func TestQueryEventsDecodeError(t *testing.T) {
	d := mustDescriptor(t)
	good := requestLog(t, d, 7, []byte("payload"), 5, txHashA, 0)

	ev, _ := d.EventByName("Request")
	missingTopic := good
	missingTopic.Topics = []common.Hash{ev.ID()}

	stub := &stubLedger{logs: []types.Log{good, missingTopic}}
	gw := gateway.New(contractAddr, d, stub)

	recs, err := gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	assert.Nil(t, recs, "one bad log must fail the whole query")
	assert.True(t, gateway.IsDecodeErr(err), "got %v", err)

	torn := good
	torn.Data = good.Data[:len(good.Data)-1]
	stub.logs = []types.Log{torn}
	recs, err = gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	assert.Nil(t, recs)
	assert.True(t, gateway.IsDecodeErr(err), "got %v", err)
}

func TestQueryEventsIndexedDynamicTopics(t *testing.T) {
	d := mustDescriptor(t)
	ev, _ := d.EventByName("Audited")

	tagTopic := common.HexToHash("0x0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")
	noteTopic := crypto.Keccak256Hash([]byte("observed"))

	data, err := ev.Encode(uint32(9), true, "hi")
	if err != nil {
		t.Fatal(err)
	}
	stub := &stubLedger{logs: []types.Log{{
		Address:     contractAddr,
		Topics:      []common.Hash{ev.ID(), tagTopic, noteTopic},
		Data:        data,
		BlockNumber: 11,
		TxHash:      txHashA,
	}}}
	gw := gateway.New(contractAddr, d, stub)

	recs, err := gw.QueryEvents(context.Background(), "Audited", gateway.EntireRange())
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(recs))
	r := recs[0]

	v, _ := r.Arg("tag")
	tag, ok := v.Bytes()
	assert.True(t, ok)
	assert.Equal(t, tagTopic.Bytes(), tag)

	v, _ = r.Arg("note")
	digest, ok := v.Hash()
	assert.True(t, ok, "indexed string decodes to its keccak digest")
	assert.Equal(t, noteTopic, digest)

	v, _ = r.Arg("code")
	code, ok := v.Uint()
	assert.True(t, ok)
	assert.Equal(t, uint64(9), code.Uint64())

	v, _ = r.Arg("ok")
	flag, ok := v.Bool()
	assert.True(t, ok)
	assert.True(t, flag)

	v, _ = r.Arg("memo")
	memo, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "hi", memo)
}

func TestExtractEventFromReceipt(t *testing.T) {
	d := mustDescriptor(t)
	a := requestLog(t, d, 7, []byte("first"), 5, txHashA, 1)
	b := requestLog(t, d, 8, []byte("second"), 5, txHashA, 2)

	foreign := a
	foreign.Address = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	foreign.Index = 0

	receipt := &types.Receipt{
		TxHash: txHashA,
		Logs:   []*types.Log{&foreign, &a, &b},
	}

	gw := gateway.New(contractAddr, d, nil)
	rec, err := gw.ExtractEventFromReceipt("Request", receipt)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := rec.Arg("requestId")
	reqID, _ := v.Uint()
	assert.Equal(t, 0, big.NewInt(7).Cmp(reqID), "first matching log wins")

	all, err := gw.ExtractEventsFromReceipt("Request", receipt)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(all))
	assert.Equal(t, uint(1), all[0].LogIndex)
	assert.Equal(t, uint(2), all[1].LogIndex)
}

func TestExtractEventFromReceiptNotFound(t *testing.T) {
	d := mustDescriptor(t)
	a := requestLog(t, d, 7, []byte("first"), 5, txHashA, 0)
	receipt := &types.Receipt{TxHash: txHashA, Logs: []*types.Log{&a}}

	gw := gateway.New(contractAddr, d, nil)

	_, err := gw.ExtractEventFromReceipt("Deliver", receipt)
	assert.True(t, gateway.IsNotFound(err), "got %v", err)

	_, err = gw.ExtractEventFromReceipt("Request", &types.Receipt{TxHash: txHashB})
	assert.True(t, gateway.IsNotFound(err), "got %v", err)

	all, err := gw.ExtractEventsFromReceipt("Deliver", receipt)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(all))
}

func TestExtractEventFromReceiptBloom(t *testing.T) {
	d := mustDescriptor(t)
	a := requestLog(t, d, 7, []byte("first"), 5, txHashA, 0)
	receipt := &types.Receipt{TxHash: txHashA, Logs: []*types.Log{&a}}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})

	gw := gateway.New(contractAddr, d, nil)

	rec, err := gw.ExtractEventFromReceipt("Request", receipt)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "Request", rec.Name)

	// the bloom rules Deliver out without scanning the logs
	_, err = gw.ExtractEventFromReceipt("Deliver", receipt)
	assert.True(t, gateway.IsNotFound(err), "got %v", err)
}

func TestRecordMarshalJSON(t *testing.T) {
	d := mustDescriptor(t)
	stub := &stubLedger{logs: []types.Log{
		requestLog(t, d, 7, []byte("payload"), 5, txHashA, 0),
	}}
	gw := gateway.New(contractAddr, d, stub)

	recs, err := gw.QueryEvents(context.Background(), "Request", gateway.EntireRange())
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(recs[0])
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}

	wantHash := strings.TrimPrefix(txHashA.Hex(), "0x")
	assert.Equal(t, wantHash, m["tx_hash"])
	assert.Equal(t, strings.ToLower(wantHash), m["tx_hash"], "tx_hash must be lowercase")
	assert.Equal(t, float64(5), m["block_number"])
	assert.Equal(t, senderAddr.Hex(), m["sender"])
	assert.Equal(t, float64(7), m["requestId"])
	assert.Equal(t, hexutil.Encode([]byte("payload")), m["data"])
}

func TestRecordMarshalJSONArgShadowsMeta(t *testing.T) {
	rec := &gateway.EventRecord{
		Name:        "Odd",
		TxHash:      txHashA,
		BlockNumber: 9,
		Args: []gateway.Arg{
			{Name: "tx_hash", Value: gateway.StringValue("shadow")},
		},
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "shadow", m["tx_hash"], "decoded parameter wins over the meta field")
	assert.Equal(t, float64(9), m["block_number"])
}
