package main

import (
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/domain/privacy"
	"github.com/shopadmin/backend/internal/infrastructure/config"
	"github.com/shopspring/decimal"
)

// newMasker extends the built-in PII field table with configured names
func newMasker(cfg config.MaskingConfig) *privacy.Engine {
	var opts []privacy.Option
	add := func(names []string, kind privacy.FieldKind) {
		for _, name := range names {
			opts = append(opts, privacy.WithField(name, kind))
		}
	}
	add(cfg.ExtraEmailFields, privacy.KindEmail)
	add(cfg.ExtraPhoneFields, privacy.KindPhone)
	add(cfg.ExtraNameFields, privacy.KindName)
	add(cfg.ExtraAddressFields, privacy.KindAddress)
	return privacy.NewEngine(opts...)
}

// feePolicy falls back to the default for any unset value
func feePolicy(cfg config.SettlementConfig) finance.FeePolicy {
	policy := finance.DefaultFeePolicy()
	if cfg.PGFeeRate > 0 {
		policy.PGFeeRate = decimal.NewFromFloat(cfg.PGFeeRate)
	}
	if cfg.PlatformFeeRate > 0 {
		policy.PlatformFeeRate = decimal.NewFromFloat(cfg.PlatformFeeRate)
	}
	if cfg.PayoutDelayDays > 0 {
		policy.PayoutDelayDays = cfg.PayoutDelayDays
	}
	return policy
}
