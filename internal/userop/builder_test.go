package userop

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

var (
	testOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSender = common.HexToAddress("0x6666666666666666666666666666666666666666")
	testOpHash = common.HexToHash("0x7777777777777777777777777777777777777777777777777777777777777777")
)

// fakeChain answers factory and entry point eth_calls by method selector.
type fakeChain struct {
	code  []byte
	nonce *big.Int
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	selector := call.Data[:4]
	switch {
	case bytes.Equal(selector, eth.Selector(sigGetAddress)):
		return getAddressOut.Pack(testSender)
	case bytes.Equal(selector, eth.Selector(sigGetNonce)):
		return getNonceOut.Pack(f.nonce)
	case bytes.Equal(selector, eth.Selector(sigGetUserOpHash)):
		return getUserOpHashOut.Pack(testOpHash)
	}
	return nil, nil
}

func (f *fakeChain) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code, nil
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return nil, nil
}

// fakeSponsor fills gas fields and records the partial operation it saw.
type fakeSponsor struct {
	received domain.UserOperation
	err      error
}

func (f *fakeSponsor) RequestGasAndPaymasterAndData(ctx context.Context, op domain.UserOperation) (domain.UserOperation, error) {
	if f.err != nil {
		return domain.UserOperation{}, f.err
	}
	f.received = op
	op.CallGasLimit = (*hexutil.Big)(big.NewInt(100000))
	op.VerificationGasLimit = (*hexutil.Big)(big.NewInt(200000))
	op.PreVerificationGas = (*hexutil.Big)(big.NewInt(50000))
	op.MaxFeePerGas = (*hexutil.Big)(big.NewInt(30))
	op.MaxPriorityFeePerGas = (*hexutil.Big)(big.NewInt(2))
	op.PaymasterAndData = hexutil.Bytes{0x01}
	op.Signature = hexutil.Bytes{}
	return op, nil
}

func (f *fakeSponsor) Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error) {
	return nil, nil
}

func newTestBuilder(chain *fakeChain, sponsor Sponsor) *Builder {
	return NewBuilder(chain, sponsor, DefaultConfig(), zap.NewNop())
}

func TestBuildSponsored_UndeployedAccount(t *testing.T) {
	chain := &fakeChain{nonce: big.NewInt(0)}
	sponsor := &fakeSponsor{}
	b := newTestBuilder(chain, sponsor)

	tx := domain.Tx{
		To:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Data: hexutil.Bytes{0xde, 0xad},
	}
	built, err := b.BuildSponsored(context.Background(), testOwner, tx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if built.UserOp.Sender != testSender {
		t.Errorf("expected sender %s, got %s", testSender.Hex(), built.UserOp.Sender.Hex())
	}
	if built.Hash != testOpHash {
		t.Errorf("expected hash %s, got %s", testOpHash.Hex(), built.Hash.Hex())
	}

	// A counterfactual account deploys through the factory.
	initCode := sponsor.received.InitCode
	if !bytes.HasPrefix(initCode, SimpleAccountFactoryAddress.Bytes()) {
		t.Fatal("expected init code to start with the factory address")
	}
	if !bytes.Equal(initCode[20:24], eth.Selector(sigCreateAccount)) {
		t.Error("expected createAccount calldata after the factory address")
	}

	// The raw transaction rides inside the account's execute call.
	if !bytes.Equal(sponsor.received.CallData[:4], eth.Selector(sigExecute)) {
		t.Error("expected execute selector on call data")
	}
	if !bytes.Contains(sponsor.received.CallData, tx.To.Bytes()) {
		t.Error("expected call data to carry the target address")
	}
	if !bytes.Contains(sponsor.received.CallData, tx.Data) {
		t.Error("expected call data to carry the inner calldata")
	}
	if len(built.UserOp.Signature) != 0 {
		t.Error("expected an unsigned operation")
	}
}

func TestBuildSponsored_DeployedAccountSkipsInitCode(t *testing.T) {
	chain := &fakeChain{code: []byte{0x60, 0x80}, nonce: big.NewInt(7)}
	sponsor := &fakeSponsor{}
	b := newTestBuilder(chain, sponsor)

	built, err := b.BuildSponsored(context.Background(), testOwner, domain.Tx{
		To:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Data: hexutil.Bytes{0x01},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sponsor.received.InitCode) != 0 {
		t.Errorf("expected empty init code for a deployed account, got %d bytes", len(sponsor.received.InitCode))
	}
	if built.UserOp.Nonce.ToInt().Int64() != 7 {
		t.Errorf("expected nonce 7, got %s", built.UserOp.Nonce)
	}
}

func TestBuildSponsored_SponsorRejection(t *testing.T) {
	chain := &fakeChain{nonce: big.NewInt(0)}
	sponsor := &fakeSponsor{err: domain.ErrRelayerRejected}
	b := newTestBuilder(chain, sponsor)

	_, err := b.BuildSponsored(context.Background(), testOwner, domain.Tx{
		To: common.HexToAddress("0x2222222222222222222222222222222222222222"),
	})
	if !errors.Is(err, domain.ErrRelayerRejected) {
		t.Fatalf("expected ErrRelayerRejected, got %v", err)
	}
}

// fakeRPC scripts JSON-RPC responses for the relayer client.
type fakeRPC struct {
	method string
	args   []interface{}
	fill   func(result interface{})
	err    error
}

func (f *fakeRPC) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	f.method = method
	f.args = args
	if f.err != nil {
		return f.err
	}
	if f.fill != nil {
		f.fill(result)
	}
	return nil
}

func TestRelayer_RequestGasAndPaymasterAndData(t *testing.T) {
	rpc := &fakeRPC{fill: func(result interface{}) {
		resp := result.(*sponsorshipResponse)
		resp.CallGasLimit = (*hexutil.Big)(big.NewInt(111))
		resp.VerificationGasLimit = (*hexutil.Big)(big.NewInt(222))
		resp.PreVerificationGas = (*hexutil.Big)(big.NewInt(333))
		resp.MaxFeePerGas = (*hexutil.Big)(big.NewInt(30))
		resp.MaxPriorityFeePerGas = (*hexutil.Big)(big.NewInt(2))
		resp.PaymasterAndData = hexutil.Bytes{0xaa}
	}}
	r := NewRelayer(rpc, "policy-123", EntryPointAddress, zap.NewNop())

	op, err := r.RequestGasAndPaymasterAndData(context.Background(), domain.UserOperation{
		Sender: testSender,
		Nonce:  (*hexutil.Big)(big.NewInt(0)),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rpc.method != "alchemy_requestGasAndPaymasterAndData" {
		t.Errorf("unexpected method %s", rpc.method)
	}
	req := rpc.args[0].(sponsorshipRequest)
	if req.PolicyID != "policy-123" {
		t.Errorf("expected gas policy id, got %s", req.PolicyID)
	}
	if req.DummySignature != DummySignature {
		t.Error("expected the fixed dummy signature on the request")
	}
	if op.CallGasLimit.ToInt().Int64() != 111 {
		t.Errorf("expected call gas limit 111, got %s", op.CallGasLimit)
	}
	if !bytes.Equal(op.PaymasterAndData, hexutil.Bytes{0xaa}) {
		t.Error("expected paymaster data from the relayer")
	}
}

func TestRelayer_IncompleteGasResponse(t *testing.T) {
	rpc := &fakeRPC{fill: func(result interface{}) {
		resp := result.(*sponsorshipResponse)
		resp.CallGasLimit = (*hexutil.Big)(big.NewInt(111))
		resp.PaymasterAndData = hexutil.Bytes{0xaa}
	}}
	r := NewRelayer(rpc, "policy-123", EntryPointAddress, zap.NewNop())

	_, err := r.RequestGasAndPaymasterAndData(context.Background(), domain.UserOperation{
		Sender: testSender,
		Nonce:  (*hexutil.Big)(big.NewInt(0)),
	})
	if !errors.Is(err, domain.ErrRelayerRejected) {
		t.Fatalf("expected ErrRelayerRejected for a partial gas response, got %v", err)
	}
}

func TestRelayer_Rejection(t *testing.T) {
	rpc := &fakeRPC{err: errors.New("policy paused")}
	r := NewRelayer(rpc, "policy-123", EntryPointAddress, zap.NewNop())

	_, err := r.RequestGasAndPaymasterAndData(context.Background(), domain.UserOperation{})
	if !errors.Is(err, domain.ErrRelayerRejected) {
		t.Fatalf("expected ErrRelayerRejected, got %v", err)
	}
}

func TestRelayer_ReceiptNotMined(t *testing.T) {
	rpc := &fakeRPC{}
	r := NewRelayer(rpc, "policy-123", EntryPointAddress, zap.NewNop())

	receipt, err := r.Receipt(context.Background(), testOpHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt != nil {
		t.Errorf("expected nil receipt before mining, got %+v", receipt)
	}
	if rpc.method != "eth_getUserOperationReceipt" {
		t.Errorf("unexpected method %s", rpc.method)
	}
}
