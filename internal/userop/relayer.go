package userop

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/metrics"
)

// DummySignature is a fixed, structurally valid 65-byte ECDSA signature the
// relayer uses for gas estimation. It is never submitted on-chain.
const DummySignature = "0xe8fe34b166b64d118dccf44c7198648127bf8a76a48a042862321af6058026d276ca6abb4ed4b60ea265d1e57e33840d7466de75e13f072bbd3b7e64387eebfe1b"

// rpcCaller is the JSON-RPC surface the relayer client needs.
// *rpc.Client satisfies it.
type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Sponsor is the gas sponsorship contract the builder depends on: one
// request/response to obtain gas limits and paymaster data, plus receipt
// lookup for submitted operations.
type Sponsor interface {
	RequestGasAndPaymasterAndData(ctx context.Context, op domain.UserOperation) (domain.UserOperation, error)
	Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error)
}

// sponsorshipRequest is the relayer's request envelope.
type sponsorshipRequest struct {
	PolicyID       string           `json:"policyId"`
	EntryPoint     common.Address   `json:"entryPoint"`
	DummySignature string           `json:"dummySignature"`
	UserOperation  partialOperation `json:"userOperation"`
}

type partialOperation struct {
	Sender   common.Address `json:"sender"`
	Nonce    *hexutil.Big   `json:"nonce"`
	InitCode hexutil.Bytes  `json:"initCode"`
	CallData hexutil.Bytes  `json:"callData"`
}

// sponsorshipResponse carries the gas limits and paymaster data the relayer
// computed for the partial operation.
type sponsorshipResponse struct {
	CallGasLimit         *hexutil.Big  `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big  `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big  `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big  `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big  `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes `json:"paymasterAndData"`
}

var _ Sponsor = (*Relayer)(nil)

// Relayer talks JSON-RPC to the gas manager endpoint. Rejections (inactive
// policy, spend caps) surface as errors; the polling caller is the retry
// mechanism, this client never retries.
type Relayer struct {
	rpc         rpcCaller
	gasPolicyID string
	entryPoint  common.Address
	logger      *zap.Logger
}

// NewRelayer creates a relayer client for one gas policy.
func NewRelayer(rpc rpcCaller, gasPolicyID string, entryPoint common.Address, logger *zap.Logger) *Relayer {
	return &Relayer{
		rpc:         rpc,
		gasPolicyID: gasPolicyID,
		entryPoint:  entryPoint,
		logger:      logger,
	}
}

// RequestGasAndPaymasterAndData fills in the operation's gas limits and
// paymaster data. The dummy signature is only for estimation; the returned
// operation's signature field is left empty for the claimant.
func (r *Relayer) RequestGasAndPaymasterAndData(ctx context.Context, op domain.UserOperation) (domain.UserOperation, error) {
	req := sponsorshipRequest{
		PolicyID:       r.gasPolicyID,
		EntryPoint:     r.entryPoint,
		DummySignature: DummySignature,
		UserOperation: partialOperation{
			Sender:   op.Sender,
			Nonce:    op.Nonce,
			InitCode: op.InitCode,
			CallData: op.CallData,
		},
	}

	var resp sponsorshipResponse
	if err := r.rpc.CallContext(ctx, &resp, "alchemy_requestGasAndPaymasterAndData", req); err != nil {
		metrics.RelayerRequestsTotal.WithLabelValues("error").Inc()
		r.logger.Warn("relayer rejected sponsorship request", zap.Error(err))
		return domain.UserOperation{}, fmt.Errorf("%w: %v", domain.ErrRelayerRejected, err)
	}
	// Every gas field must be present; a partial response cannot produce a
	// hashable operation.
	if resp.CallGasLimit == nil || resp.VerificationGasLimit == nil ||
		resp.PreVerificationGas == nil || resp.MaxFeePerGas == nil ||
		resp.MaxPriorityFeePerGas == nil {
		metrics.RelayerRequestsTotal.WithLabelValues("error").Inc()
		r.logger.Warn("relayer returned incomplete gas response", zap.String("sender", op.Sender.Hex()))
		return domain.UserOperation{}, fmt.Errorf("%w: incomplete gas response", domain.ErrRelayerRejected)
	}
	metrics.RelayerRequestsTotal.WithLabelValues("ok").Inc()

	op.CallGasLimit = resp.CallGasLimit
	op.VerificationGasLimit = resp.VerificationGasLimit
	op.PreVerificationGas = resp.PreVerificationGas
	op.MaxFeePerGas = resp.MaxFeePerGas
	op.MaxPriorityFeePerGas = resp.MaxPriorityFeePerGas
	op.PaymasterAndData = resp.PaymasterAndData
	op.Signature = hexutil.Bytes{}
	return op, nil
}

// Receipt looks up the bundler's receipt for a user operation hash.
// Returns nil without error while the operation is not yet mined.
func (r *Relayer) Receipt(ctx context.Context, userOpHash common.Hash) (*domain.UserOpReceipt, error) {
	var receipt *domain.UserOpReceipt
	if err := r.rpc.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", userOpHash); err != nil {
		return nil, fmt.Errorf("userop: receipt lookup: %w", err)
	}
	return receipt, nil
}
