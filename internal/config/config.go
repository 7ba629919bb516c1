package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/viper"

	"github.com/gib-ens/gasless-registrar/internal/domain"
)

// Config holds process-wide configuration for the registrar service.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    int
	GinMode      string
}

type RedisConfig struct {
	URL string
}

// PolicyConfig is one deployment context: an event's contracts, limits, and
// sponsorship credentials, resolved per request from the environment rather
// than a process-wide registry.
type PolicyConfig struct {
	Name      string
	EventName string
	NetworkID string

	RPCURL      string
	GasPolicyID string

	VoucherContract    common.Address
	ControllerContract common.Address
	ResolverContract   common.Address

	// AuthorityKey signs redemption vouchers. Backend-only.
	AuthorityKey *ecdsa.PrivateKey

	RegistrationDuration uint64
	VoucherValidity      time.Duration
	SettlementWindow     time.Duration
	JobTTL               time.Duration
	MaxPriceWei          *big.Int
}

// PublicPolicy is the subset of a policy safe to expose to clients.
type PublicPolicy struct {
	Name      string `json:"policyId"`
	EventName string `json:"eventName"`
	NetworkID string `json:"networkId"`
}

// Public strips the policy down to client-safe fields.
func (p *PolicyConfig) Public() PublicPolicy {
	return PublicPolicy{Name: p.Name, EventName: p.EventName, NetworkID: p.NetworkID}
}

// Load reads server configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("API_PORT", 8080)
	viper.SetDefault("API_READ_TIMEOUT", "15s")
	viper.SetDefault("API_WRITE_TIMEOUT", "30s")
	viper.SetDefault("API_RATE_LIMIT", 100)
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	// Attempt to read .env file (non-fatal if missing)
	_ = viper.ReadInConfig()

	cfg := &Config{}
	cfg.Server.Port = viper.GetInt("API_PORT")
	cfg.Server.ReadTimeout = viper.GetDuration("API_READ_TIMEOUT")
	cfg.Server.WriteTimeout = viper.GetDuration("API_WRITE_TIMEOUT")
	cfg.Server.RateLimit = viper.GetInt("API_RATE_LIMIT")
	cfg.Server.GinMode = viper.GetString("GIN_MODE")
	cfg.Redis.URL = viper.GetString("REDIS_URL")

	return cfg, nil
}

// LoadPolicy resolves one policy's settings from POLICY_<NAME>_* variables.
// Defaults: 1-year registrations, 10-minute voucher validity, 60-second
// settlement window, 30-minute job TTL.
func LoadPolicy(name string) (*PolicyConfig, error) {
	prefix := "POLICY_" + strings.ToUpper(name) + "_"
	get := func(key string) string { return viper.GetString(prefix + key) }

	rpcURL := get("RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrPolicyNotFound, name)
	}

	keyHex := strings.TrimPrefix(get("AUTHORITY_PK"), "0x")
	authorityKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("policy %s: parse authority key: %w", name, err)
	}

	maxPriceWei, err := parseEther(getOrDefault(get("MAX_PURCHASE_PRICE_ETH"), "0.004"))
	if err != nil {
		return nil, fmt.Errorf("policy %s: parse max price: %w", name, err)
	}

	cfg := &PolicyConfig{
		Name:               name,
		EventName:          get("EVENT_NAME"),
		NetworkID:          get("NETWORK_ID"),
		RPCURL:             rpcURL,
		GasPolicyID:        get("GAS_POLICY_ID"),
		VoucherContract:    common.HexToAddress(get("VOUCHER_CONTRACT_ADDRESS")),
		ControllerContract: common.HexToAddress(get("ENS_CONTROLLER_CONTRACT_ADDRESS")),
		ResolverContract:   common.HexToAddress(get("ENS_RESOLVER_CONTRACT_ADDRESS")),
		AuthorityKey:       authorityKey,

		RegistrationDuration: 365 * 24 * 60 * 60,
		VoucherValidity:      10 * time.Minute,
		SettlementWindow:     60 * time.Second,
		JobTTL:               30 * time.Minute,
		MaxPriceWei:          maxPriceWei,
	}

	if v := viper.GetUint64(prefix + "REGISTER_DOMAIN_FOR_SECONDS"); v > 0 {
		cfg.RegistrationDuration = v
	}
	if v := viper.GetDuration(prefix + "VOUCHER_VALIDITY"); v > 0 {
		cfg.VoucherValidity = v
	}
	if v := viper.GetDuration(prefix + "JOB_TTL"); v > 0 {
		cfg.JobTTL = v
	}

	return cfg, nil
}

func getOrDefault(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

// parseEther converts a decimal ETH amount to wei.
func parseEther(amount string) (*big.Int, error) {
	f, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", amount)
	}
	wei := new(big.Rat).Mul(f, new(big.Rat).SetInt(big.NewInt(1e18)))
	if !wei.IsInt() {
		return nil, fmt.Errorf("ether amount %q has sub-wei precision", amount)
	}
	return wei.Num(), nil
}
