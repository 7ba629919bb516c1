// Package voucher implements the sponsor's voucher authority: it checks
// on-chain redemption state and produces the single-use signatures that
// authorize moving funds from the sponsor's deposit.
package voucher

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
	"github.com/gib-ens/gasless-registrar/internal/metrics"
)

// Config carries the voucher contract address, the sponsor's signing key,
// and the validity window embedded into every signature.
type Config struct {
	Contract common.Address
	// SigningKey authorizes spending from the sponsor's deposit. It must
	// never leave the backend; compromise is a full fund-drain risk.
	SigningKey     *ecdsa.PrivateKey
	ValidityWindow time.Duration
}

// Authority signs redemption payloads and reads redemption state.
type Authority struct {
	contract *contract
	caller   eth.Caller
	cfg      Config
	logger   *zap.Logger
}

// NewAuthority creates the voucher authority for one policy.
func NewAuthority(caller eth.Caller, cfg Config, logger *zap.Logger) *Authority {
	return &Authority{
		contract: &contract{caller: caller, address: cfg.Contract},
		caller:   caller,
		cfg:      cfg,
		logger:   logger,
	}
}

// PolicyHash is the keccak-256 of the policy identifier's UTF-8 bytes, the
// form the contract scopes redemptions by.
func PolicyHash(policyID string) common.Hash {
	return common.BytesToHash(crypto.Keccak256([]byte(policyID)))
}

// IsAlreadyRedeemed reports whether the claimant has used their one allowed
// registration for this policy. The on-chain record is the source of truth.
func (a *Authority) IsAlreadyRedeemed(ctx context.Context, claimant common.Address, policyID string) (bool, error) {
	redeemed, _, err := a.contract.getRedeemResult(ctx, claimant, PolicyHash(policyID))
	return redeemed, err
}

// SignRedemptionPayload signs the canonical redemption digest: keccak-256
// over the tightly packed (voucherAddress, policyHash, commitment, maxPrice,
// expiry) tuple, with personal-message semantics so the contract verifies
// against keccak256("\x19Ethereum Signed Message:\n32" || digest).
// The signature is scoped to exactly this policy/commitment pair; submitting
// it against any other pair fails on-chain with "Invalid signature".
func (a *Authority) SignRedemptionPayload(commitment, policyHash common.Hash, maxPrice, expiry *big.Int) ([]byte, error) {
	digest := redemptionDigest(a.cfg.Contract, policyHash, commitment, maxPrice, expiry)
	sig, err := crypto.Sign(accounts.TextHash(digest), a.cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("voucher: sign payload: %w", err)
	}
	// Contract-side ecrecover expects V in {27, 28}.
	sig[64] += 27
	metrics.VouchersSigned.Inc()
	return sig, nil
}

// redemptionDigest mirrors solidityPackedKeccak256(['address','bytes32',
// 'bytes32','uint256','uint256'], ...).
func redemptionDigest(voucherAddr common.Address, policyHash, commitment common.Hash, maxPrice, expiry *big.Int) []byte {
	packed := make([]byte, 0, 20+32+32+32+32)
	packed = append(packed, voucherAddr.Bytes()...)
	packed = append(packed, policyHash.Bytes()...)
	packed = append(packed, commitment.Bytes()...)
	packed = append(packed, common.LeftPadBytes(maxPrice.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(expiry.Bytes(), 32)...)
	return crypto.Keccak256(packed)
}

// CompleteRegistrationTx builds the completeENSRegistration transaction with
// a freshly signed voucher for the given commitment. Expiry is the current
// block timestamp plus the configured validity window; once it passes the
// signature is unusable and cannot be revoked earlier.
func (a *Authority) CompleteRegistrationTx(ctx context.Context, commitment common.Hash, p domain.ENSParams, maxPrice *big.Int, policyID string) (domain.Tx, error) {
	header, err := a.caller.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.Tx{}, fmt.Errorf("voucher: fetch block timestamp: %w", err)
	}
	expiry := new(big.Int).SetUint64(header.Time + uint64(a.cfg.ValidityWindow/time.Second))

	policyHash := PolicyHash(policyID)
	signature, err := a.SignRedemptionPayload(commitment, policyHash, maxPrice, expiry)
	if err != nil {
		return domain.Tx{}, err
	}

	a.logger.Info("signed redemption voucher",
		zap.String("commitment", commitment.Hex()),
		zap.String("expiry", expiry.String()),
	)
	return a.contract.completeRegistrationTx(policyHash, maxPrice, expiry, p, signature)
}
