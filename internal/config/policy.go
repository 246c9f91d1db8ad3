package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CoachGroupSeed describes a coach group created at start-up when missing.
type CoachGroupSeed struct {
	Name            string  `mapstructure:"name"`
	LeadPercent     float64 `mapstructure:"lead_percent"`
	CoachPercent    float64 `mapstructure:"coach_percent"`
	PlatformPercent float64 `mapstructure:"platform_percent"`
	Internal        bool    `mapstructure:"internal"`
}

// Policy holds the money rules of the engine. Changing it affects only
// enrollments processed afterwards; historical splits carry a snapshot.
type Policy struct {
	TDSRatePercent           float64          `mapstructure:"tds_rate_percent"`
	TDSAnnualThreshold       float64          `mapstructure:"tds_annual_threshold"`
	InstallmentCount         int              `mapstructure:"installment_count"`
	PayoutDayOfMonth         int              `mapstructure:"payout_day_of_month"`
	PayoutMode               string           `mapstructure:"payout_mode"`
	PayoutPurpose            string           `mapstructure:"payout_purpose"`
	DefaultCoachGroup        string           `mapstructure:"default_coach_group"`
	ReferralCreditPercent    float64          `mapstructure:"referral_credit_percent"`
	ReferralCreditExpiryDays int              `mapstructure:"referral_credit_expiry_days"`
	ReconcileLookbackDays    int              `mapstructure:"reconcile_lookback_days"`
	CoachGroups              []CoachGroupSeed `mapstructure:"coach_groups"`
}

// DefaultCoachGroups are used when the policy file does not list any.
var DefaultCoachGroups = []CoachGroupSeed{
	{Name: "rising", LeadPercent: 20, CoachPercent: 50, PlatformPercent: 30},
	{Name: "expert", LeadPercent: 20, CoachPercent: 55, PlatformPercent: 25},
	{Name: "internal", PlatformPercent: 100, Internal: true},
}

// LoadPolicy reads the payout policy from a YAML file (optional) with
// POLICY_* environment overrides, e.g. POLICY_TDS_RATE_PERCENT=10.
func LoadPolicy(path string) (*Policy, error) {
	v := viper.New()

	v.SetDefault("tds_rate_percent", 10.0)
	v.SetDefault("tds_annual_threshold", 30000.0)
	v.SetDefault("installment_count", 3)
	v.SetDefault("payout_day_of_month", 5)
	v.SetDefault("payout_mode", "IMPS")
	v.SetDefault("payout_purpose", "payout")
	v.SetDefault("default_coach_group", "rising")
	v.SetDefault("referral_credit_percent", 10.0)
	v.SetDefault("referral_credit_expiry_days", 30)
	v.SetDefault("reconcile_lookback_days", 7)

	v.SetEnvPrefix("POLICY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read policy: %w", err)
		}
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	if len(p.CoachGroups) == 0 {
		p.CoachGroups = DefaultCoachGroups
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the policy for values the engine cannot work with
func (p *Policy) Validate() error {
	if p.TDSRatePercent < 0 || p.TDSRatePercent > 100 {
		return fmt.Errorf("tds_rate_percent must be between 0 and 100")
	}
	if p.TDSAnnualThreshold < 0 {
		return fmt.Errorf("tds_annual_threshold must not be negative")
	}
	if p.InstallmentCount < 1 {
		return fmt.Errorf("installment_count must be at least 1")
	}
	if p.PayoutDayOfMonth < 1 || p.PayoutDayOfMonth > 31 {
		return fmt.Errorf("payout_day_of_month must be between 1 and 31")
	}
	if p.ReferralCreditExpiryDays < 1 {
		return fmt.Errorf("referral_credit_expiry_days must be at least 1")
	}
	for _, g := range p.CoachGroups {
		if sum := g.LeadPercent + g.CoachPercent + g.PlatformPercent; sum != 100 {
			return fmt.Errorf("coach group %q percentages sum to %.2f, want 100", g.Name, sum)
		}
	}
	return nil
}

// DefaultPolicy returns the built-in policy without reading files or env.
func DefaultPolicy() *Policy {
	return &Policy{
		TDSRatePercent:           10,
		TDSAnnualThreshold:       30000,
		InstallmentCount:         3,
		PayoutDayOfMonth:         5,
		PayoutMode:               "IMPS",
		PayoutPurpose:            "payout",
		DefaultCoachGroup:        "rising",
		ReferralCreditPercent:    10,
		ReferralCreditExpiryDays: 30,
		ReconcileLookbackDays:    7,
		CoachGroups:              DefaultCoachGroups,
	}
}
