package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/PersonalHub360/gateway-sub002/src/internal/logger"
	"github.com/shopspring/decimal"
)

// Provider supplies the active fee and limit rules. Implementations must
// return immutable snapshots: the engine pins one snapshot per evaluation.
type Provider interface {
	Snapshot() (domain.PolicySnapshot, error)
}

// FileProvider serves policy snapshots from an optional JSON file layered
// over built-in defaults. Reload re-reads the file and swaps the snapshot
// atomically; readers holding an older snapshot are unaffected.
type FileProvider struct {
	path     string
	snapshot atomic.Value
	version  atomic.Int64
}

type fileRule struct {
	Type     string `json:"type"`
	Percent  string `json:"percent"`
	FixedFee string `json:"fixedFee"`
	MinFee   string `json:"minFee"`
	MaxFee   string `json:"maxFee"`
}

type fileLimits struct {
	MinAmount             string `json:"minAmount"`
	MaxAmount             string `json:"maxAmount"`
	DailyLimit            string `json:"dailyLimit"`
	MonthlyLimit          string `json:"monthlyLimit"`
	AutoApprovalThreshold string `json:"autoApprovalThreshold"`
}

type fileDocument struct {
	FeeRules []fileRule  `json:"feeRules"`
	Limits   *fileLimits `json:"limits"`
}

func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Snapshot() (domain.PolicySnapshot, error) {
	snap, ok := p.snapshot.Load().(domain.PolicySnapshot)
	if !ok {
		return domain.PolicySnapshot{}, domain.ErrPolicyUnavailable
	}
	return snap, nil
}

// Reload rebuilds the snapshot from defaults plus the policy file, if one
// is configured. cmd/server wires this to SIGHUP.
func (p *FileProvider) Reload() error {
	snap := defaultSnapshot()

	if p.path != "" {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			return fmt.Errorf("read policy file %q: %w", p.path, err)
		}

		var doc fileDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse policy file %q: %w", p.path, err)
		}

		if err := applyDocument(&snap, doc); err != nil {
			return err
		}
	}

	snap.Version = int(p.version.Add(1))
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	p.snapshot.Store(snap)
	logger.Info("policy provider snapshot loaded", logger.Fields{
		"version":  snap.Version,
		"feeRules": len(snap.FeeRules),
	})
	return nil
}

func applyDocument(snap *domain.PolicySnapshot, doc fileDocument) error {
	for _, raw := range doc.FeeRules {
		rule, err := parseRule(raw)
		if err != nil {
			return err
		}
		snap.FeeRules[rule.Type] = rule
	}

	if doc.Limits != nil {
		limits, err := parseLimits(*doc.Limits)
		if err != nil {
			return err
		}
		snap.Limits = limits
	}

	return nil
}

func parseRule(raw fileRule) (domain.FeeRule, error) {
	ruleType := domain.TransactionType(raw.Type)
	if !ruleType.Valid() {
		return domain.FeeRule{}, fmt.Errorf("unknown transaction type %q in policy file", raw.Type)
	}

	percent, err := decimal.NewFromString(raw.Percent)
	if err != nil {
		return domain.FeeRule{}, fmt.Errorf("rule %s: invalid percent: %w", raw.Type, err)
	}
	fixed, err := decimal.NewFromString(raw.FixedFee)
	if err != nil {
		return domain.FeeRule{}, fmt.Errorf("rule %s: invalid fixedFee: %w", raw.Type, err)
	}
	minFee, err := decimal.NewFromString(raw.MinFee)
	if err != nil {
		return domain.FeeRule{}, fmt.Errorf("rule %s: invalid minFee: %w", raw.Type, err)
	}
	maxFee, err := decimal.NewFromString(raw.MaxFee)
	if err != nil {
		return domain.FeeRule{}, fmt.Errorf("rule %s: invalid maxFee: %w", raw.Type, err)
	}

	return domain.FeeRule{
		Type:     ruleType,
		Percent:  percent,
		FixedFee: fixed,
		MinFee:   minFee,
		MaxFee:   maxFee,
	}, nil
}

func parseLimits(raw fileLimits) (domain.LimitPolicy, error) {
	minAmount, err := decimal.NewFromString(raw.MinAmount)
	if err != nil {
		return domain.LimitPolicy{}, fmt.Errorf("limits: invalid minAmount: %w", err)
	}
	maxAmount, err := decimal.NewFromString(raw.MaxAmount)
	if err != nil {
		return domain.LimitPolicy{}, fmt.Errorf("limits: invalid maxAmount: %w", err)
	}
	daily, err := decimal.NewFromString(raw.DailyLimit)
	if err != nil {
		return domain.LimitPolicy{}, fmt.Errorf("limits: invalid dailyLimit: %w", err)
	}
	monthly, err := decimal.NewFromString(raw.MonthlyLimit)
	if err != nil {
		return domain.LimitPolicy{}, fmt.Errorf("limits: invalid monthlyLimit: %w", err)
	}
	threshold, err := decimal.NewFromString(raw.AutoApprovalThreshold)
	if err != nil {
		return domain.LimitPolicy{}, fmt.Errorf("limits: invalid autoApprovalThreshold: %w", err)
	}

	return domain.LimitPolicy{
		MinAmount:             minAmount,
		MaxAmount:             maxAmount,
		DailyLimit:            daily,
		MonthlyLimit:          monthly,
		AutoApprovalThreshold: threshold,
	}, nil
}

func validateSnapshot(snap domain.PolicySnapshot) error {
	for _, rule := range snap.FeeRules {
		if rule.Percent.IsNegative() || rule.FixedFee.IsNegative() || rule.MinFee.IsNegative() || rule.MaxFee.IsNegative() {
			return fmt.Errorf("rule %s: fee components must be non-negative", rule.Type)
		}
		if rule.MinFee.GreaterThan(rule.MaxFee) {
			return fmt.Errorf("rule %s: minFee must not exceed maxFee", rule.Type)
		}
	}

	limits := snap.Limits
	if limits.MinAmount.IsNegative() || limits.MaxAmount.IsNegative() || limits.DailyLimit.IsNegative() ||
		limits.MonthlyLimit.IsNegative() || limits.AutoApprovalThreshold.IsNegative() {
		return fmt.Errorf("limits must be non-negative")
	}
	if limits.MinAmount.GreaterThan(limits.MaxAmount) {
		return fmt.Errorf("limits: minAmount must not exceed maxAmount")
	}
	if limits.AutoApprovalThreshold.GreaterThan(limits.MaxAmount) {
		return fmt.Errorf("limits: autoApprovalThreshold must not exceed maxAmount")
	}

	return nil
}

func defaultSnapshot() domain.PolicySnapshot {
	rules := map[domain.TransactionType]domain.FeeRule{
		domain.TransactionTypeSendMoney: {
			Type:     domain.TransactionTypeSendMoney,
			Percent:  decimal.NewFromFloat(2.5),
			FixedFee: decimal.NewFromFloat(0.50),
			MinFee:   decimal.NewFromFloat(0.50),
			MaxFee:   decimal.NewFromInt(25),
		},
		domain.TransactionTypeCashIn: {
			Type:     domain.TransactionTypeCashIn,
			Percent:  decimal.NewFromInt(1),
			FixedFee: decimal.Zero,
			MinFee:   decimal.Zero,
			MaxFee:   decimal.NewFromInt(10),
		},
		domain.TransactionTypeCashOut: {
			Type:     domain.TransactionTypeCashOut,
			Percent:  decimal.NewFromFloat(1.5),
			FixedFee: decimal.NewFromFloat(0.25),
			MinFee:   decimal.NewFromFloat(0.25),
			MaxFee:   decimal.NewFromInt(15),
		},
		domain.TransactionTypeBillPayment: {
			Type:     domain.TransactionTypeBillPayment,
			Percent:  decimal.NewFromInt(1),
			FixedFee: decimal.NewFromFloat(0.30),
			MinFee:   decimal.NewFromFloat(0.30),
			MaxFee:   decimal.NewFromInt(10),
		},
		domain.TransactionTypeMobileTopup: {
			Type:     domain.TransactionTypeMobileTopup,
			Percent:  decimal.Zero,
			FixedFee: decimal.NewFromFloat(0.10),
			MinFee:   decimal.NewFromFloat(0.10),
			MaxFee:   decimal.NewFromFloat(0.10),
		},
	}

	return domain.PolicySnapshot{
		FeeRules: rules,
		Limits: domain.LimitPolicy{
			MinAmount:             decimal.NewFromInt(1),
			MaxAmount:             decimal.NewFromInt(10000),
			DailyLimit:            decimal.NewFromInt(20000),
			MonthlyLimit:          decimal.NewFromInt(100000),
			AutoApprovalThreshold: decimal.NewFromInt(1000),
		},
	}
}
