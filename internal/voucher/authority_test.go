package voucher

import (
	"bytes"
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

var testContract = common.HexToAddress("0x5555555555555555555555555555555555555555")

type fakeCaller struct {
	redeemed   bool
	domainHash common.Hash
	blockTime  uint64
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return getRedeemResultOut.Pack(f.redeemed, f.domainHash)
}

func (f *fakeCaller) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeCaller) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), Time: f.blockTime}, nil
}

func newTestAuthority(t *testing.T, caller eth.Caller) *Authority {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return NewAuthority(caller, Config{
		Contract:       testContract,
		SigningKey:     key,
		ValidityWindow: 10 * time.Minute,
	}, zap.NewNop())
}

func TestPolicyHash(t *testing.T) {
	want := common.BytesToHash(crypto.Keccak256([]byte("launch-party")))
	if got := PolicyHash("launch-party"); got != want {
		t.Errorf("PolicyHash = %s, want %s", got.Hex(), want.Hex())
	}
	if PolicyHash("launch-party") == PolicyHash("other-party") {
		t.Error("expected distinct hashes for distinct policies")
	}
}

func TestSignRedemptionPayload_Recoverable(t *testing.T) {
	a := newTestAuthority(t, &fakeCaller{})
	commitment := common.HexToHash("0xcc")
	policyHash := PolicyHash("launch-party")
	maxPrice := big.NewInt(4_000_000_000_000_000)
	expiry := big.NewInt(1_700_000_600)

	sig, err := a.SignRedemptionPayload(commitment, policyHash, maxPrice, expiry)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}
	if v := sig[64]; v != 27 && v != 28 {
		t.Fatalf("expected V in {27, 28}, got %d", v)
	}

	recoverable := append([]byte(nil), sig...)
	recoverable[64] -= 27
	digest := redemptionDigest(testContract, policyHash, commitment, maxPrice, expiry)
	pub, err := crypto.SigToPub(accounts.TextHash(digest), recoverable)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got, want := crypto.PubkeyToAddress(*pub), crypto.PubkeyToAddress(a.cfg.SigningKey.PublicKey); got != want {
		t.Errorf("recovered signer %s, want %s", got.Hex(), want.Hex())
	}
}

func TestSignRedemptionPayload_ScopedToInputs(t *testing.T) {
	a := newTestAuthority(t, &fakeCaller{})
	commitment := common.HexToHash("0xcc")
	policyHash := PolicyHash("launch-party")
	maxPrice := big.NewInt(100)
	expiry := big.NewInt(1_700_000_600)

	base, err := a.SignRedemptionPayload(commitment, policyHash, maxPrice, expiry)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	variants := []struct {
		name string
		sig  func() ([]byte, error)
	}{
		{"commitment", func() ([]byte, error) {
			return a.SignRedemptionPayload(common.HexToHash("0xdd"), policyHash, maxPrice, expiry)
		}},
		{"policy", func() ([]byte, error) {
			return a.SignRedemptionPayload(commitment, PolicyHash("other"), maxPrice, expiry)
		}},
		{"maxPrice", func() ([]byte, error) {
			return a.SignRedemptionPayload(commitment, policyHash, big.NewInt(101), expiry)
		}},
		{"expiry", func() ([]byte, error) {
			return a.SignRedemptionPayload(commitment, policyHash, maxPrice, big.NewInt(1_700_000_601))
		}},
	}
	for _, v := range variants {
		sig, err := v.sig()
		if err != nil {
			t.Fatalf("sign %s variant: %v", v.name, err)
		}
		if bytes.Equal(sig, base) {
			t.Errorf("changing %s did not change the signature", v.name)
		}
	}
}

func TestIsAlreadyRedeemed(t *testing.T) {
	caller := &fakeCaller{redeemed: true, domainHash: common.HexToHash("0xee")}
	a := newTestAuthority(t, caller)

	redeemed, err := a.IsAlreadyRedeemed(context.Background(), common.HexToAddress("0x1"), "launch-party")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !redeemed {
		t.Error("expected redeemed")
	}

	caller.redeemed = false
	redeemed, err = a.IsAlreadyRedeemed(context.Background(), common.HexToAddress("0x1"), "launch-party")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redeemed {
		t.Error("expected not redeemed")
	}
}

func TestCompleteRegistrationTx(t *testing.T) {
	caller := &fakeCaller{blockTime: 1_700_000_000}
	a := newTestAuthority(t, caller)

	params := domain.ENSParams{
		Name:     "party",
		Owner:    common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Duration: 31536000,
		Secret:   make(hexutil.Bytes, 32),
		Data:     []hexutil.Bytes{},
	}
	commitment := common.HexToHash("0xcc")
	maxPrice := big.NewInt(5)

	tx, err := a.CompleteRegistrationTx(context.Background(), commitment, params, maxPrice, "launch-party")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.To != testContract {
		t.Errorf("expected tx to voucher contract, got %s", tx.To.Hex())
	}
	if tx.GasLimit != completeRegistrationGasLimit {
		t.Errorf("expected gas limit %d, got %d", completeRegistrationGasLimit, tx.GasLimit)
	}
	if !bytes.Equal(tx.Data[:4], eth.Selector(sigCompleteRegistration)) {
		t.Fatal("expected completeENSRegistration selector")
	}

	// Head words: policyHash, maxPrice, expiry.
	if got := common.BytesToHash(tx.Data[4:36]); got != PolicyHash("launch-party") {
		t.Errorf("expected policy hash word, got %s", got.Hex())
	}
	if got := new(big.Int).SetBytes(tx.Data[36:68]); got.Cmp(maxPrice) != 0 {
		t.Errorf("expected maxPrice word 5, got %s", got)
	}
	wantExpiry := new(big.Int).SetUint64(caller.blockTime + 600)
	if got := new(big.Int).SetBytes(tx.Data[68:100]); got.Cmp(wantExpiry) != 0 {
		t.Errorf("expected expiry %s, got %s", wantExpiry, got)
	}
}
