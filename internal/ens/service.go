// Package ens resolves domain availability against the ETH registrar
// controller and tracks commitment settlement.
package ens

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	wens "github.com/wealdtech/go-ens/v3"
	"go.uber.org/zap"

	"github.com/gib-ens/gasless-registrar/internal/domain"
	"github.com/gib-ens/gasless-registrar/internal/eth"
)

const (
	minLabelRunes = 3
	maxLabelRunes = 26
)

// Emoji codepoints and the joiners that build emoji sequences. Sponsored
// registrations cover text labels only, so any of these in a normalized
// label rejects it.
var emojiCodepoints = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1}, // zero width joiner
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // combining enclosing keycap
		{Lo: 0x2190, Hi: 0x2bff, Stride: 1}, // arrows, symbols, dingbats
		{Lo: 0xfe0e, Hi: 0xfe0f, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1fffd, Stride: 1}, // emoji planes
	},
}

// Config carries the per-policy contract addresses and limits the resolver
// needs. All values are resolved once at request entry.
type Config struct {
	Controller           common.Address
	Resolver             common.Address
	RegistrationDuration uint64
	MaxPriceWei          *big.Int
	SettlementWindow     time.Duration
}

// Service is the domain availability resolver and commitment tracker.
type Service struct {
	controller *controller
	cfg        Config
	logger     *zap.Logger

	now func() time.Time
}

// NewService creates a resolver bound to one policy's registrar controller.
func NewService(caller eth.Caller, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		controller: &controller{caller: caller, address: cfg.Controller},
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Normalize canonicalizes a raw domain input and enforces the label rules:
// exactly one text label of 3 to 26 codepoints, no emoji. Returns ok=false
// for anything a registration must reject.
func (s *Service) Normalize(raw string) (string, bool) {
	normalized, err := wens.NormaliseDomain(raw)
	if err != nil {
		return "", false
	}
	// A single label only. A dot would tokenize into multiple labels.
	if normalized == "" || strings.Contains(normalized, ".") {
		return "", false
	}
	n := utf8.RuneCountInString(normalized)
	if n < minLabelRunes || n > maxLabelRunes {
		return "", false
	}
	for _, r := range normalized {
		if unicode.Is(emojiCodepoints, r) {
			return "", false
		}
	}
	return normalized, true
}

// CheckAvailability normalizes the input and reads availability and rent
// price from the registrar. Purely a read-through; safe to call repeatedly.
func (s *Service) CheckAvailability(ctx context.Context, raw string) (domain.AvailabilityResult, error) {
	normalized, ok := s.Normalize(raw)
	if !ok {
		return domain.Unavailable(domain.ReasonInvalid), nil
	}

	available, err := s.controller.available(ctx, normalized)
	if err != nil {
		return domain.AvailabilityResult{}, err
	}
	if !available {
		return domain.Unavailable(domain.ReasonUnavailable), nil
	}

	price, err := s.controller.rentPrice(ctx, normalized, s.cfg.RegistrationDuration)
	if err != nil {
		return domain.AvailabilityResult{}, err
	}
	if price.Cmp(s.cfg.MaxPriceWei) > 0 {
		s.logger.Debug("domain over price ceiling",
			zap.String("domain", normalized),
			zap.String("price", price.String()),
			zap.String("ceiling", s.cfg.MaxPriceWei.String()),
		)
		return domain.Unavailable(domain.ReasonExpensive), nil
	}

	return domain.Available(domain.PurchaseInfo{
		NormalizedDomainName: normalized,
		Price:                (*hexutil.Big)(price),
		Duration:             s.cfg.RegistrationDuration,
	}), nil
}

// NewParams builds the full registration parameter set for a name, with a
// fresh single-use 32-byte secret. The secret is fixed for the job's
// lifetime; re-deriving it would change the commitment hash.
func (s *Service) NewParams(name string, owner common.Address) (domain.ENSParams, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return domain.ENSParams{}, fmt.Errorf("ens: generate secret: %w", err)
	}
	return domain.ENSParams{
		Name:                 name,
		Owner:                owner,
		Duration:             s.cfg.RegistrationDuration,
		Secret:               secret,
		Resolver:             s.cfg.Resolver,
		Data:                 []hexutil.Bytes{},
		ReverseRecord:        false,
		OwnerControlledFuses: 0,
	}, nil
}

// CommitmentHash computes the registrar's deterministic commitment hash for
// the parameter set. Pure with respect to chain state.
func (s *Service) CommitmentHash(ctx context.Context, p domain.ENSParams) (common.Hash, error) {
	return s.controller.makeCommitment(ctx, p)
}

// CommitTx builds the commit(hash) transaction for the parameter set.
func (s *Service) CommitTx(ctx context.Context, p domain.ENSParams) (domain.Tx, error) {
	commitment, err := s.CommitmentHash(ctx, p)
	if err != nil {
		return domain.Tx{}, err
	}
	return s.controller.commitTx(commitment)
}

// SettlementStatus reports whether a commitment is unknown, still aging
// inside the settlement window, or settled and ready to complete.
func (s *Service) SettlementStatus(ctx context.Context, commitment common.Hash) (domain.Settlement, error) {
	ts, err := s.controller.commitmentTimestamp(ctx, commitment)
	if err != nil {
		return domain.Settlement{}, err
	}
	if ts == 0 {
		return domain.Settlement{State: domain.SettlementNotFound}, nil
	}
	settlesAt := time.Unix(int64(ts), 0).Add(s.cfg.SettlementWindow)
	if !settlesAt.After(s.now()) {
		return domain.Settlement{State: domain.SettlementSettled}, nil
	}
	return domain.Settlement{State: domain.SettlementPending, SettlesAt: settlesAt}, nil
}
