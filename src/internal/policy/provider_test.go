package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
	"github.com/shopspring/decimal"
)

func TestFileProviderDefaults(t *testing.T) {
	provider, err := NewFileProvider("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := provider.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version != 1 {
		t.Fatalf("expected first snapshot version 1, got %d", snap.Version)
	}

	rule, err := snap.FeeRuleFor(domain.TransactionTypeSendMoney)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rule.Percent.Equal(decimal.NewFromFloat(2.5)) || !rule.FixedFee.Equal(decimal.NewFromFloat(0.50)) {
		t.Fatalf("unexpected default SEND_MONEY rule: %+v", rule)
	}
	if !snap.Limits.AutoApprovalThreshold.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected default threshold: %s", snap.Limits.AutoApprovalThreshold)
	}
}

func TestFileProviderOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	doc := `{
		"feeRules": [
			{"type": "SEND_MONEY", "percent": "1.0", "fixedFee": "0.10", "minFee": "0.10", "maxFee": "5"}
		],
		"limits": {
			"minAmount": "5",
			"maxAmount": "500",
			"dailyLimit": "1000",
			"monthlyLimit": "5000",
			"autoApprovalThreshold": "200"
		}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	provider, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := provider.Snapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rule, err := snap.FeeRuleFor(domain.TransactionTypeSendMoney)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rule.Percent.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected overlaid percent 1.0, got %s", rule.Percent)
	}
	if !snap.Limits.MaxAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected overlaid maxAmount 500, got %s", snap.Limits.MaxAmount)
	}

	// Types absent from the file keep their defaults.
	if _, err := snap.FeeRuleFor(domain.TransactionTypeCashIn); err != nil {
		t.Fatalf("expected default CASH_IN rule to survive the overlay: %v", err)
	}
}

func TestFileProviderRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	doc := `{
		"feeRules": [
			{"type": "SEND_MONEY", "percent": "1.0", "fixedFee": "0.10", "minFee": "9", "maxFee": "5"}
		]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	if _, err := NewFileProvider(path); err == nil {
		t.Fatal("expected minFee > maxFee to be rejected")
	}
}

func TestFileProviderReloadBumpsVersionAndPinsOldSnapshots(t *testing.T) {
	provider, err := NewFileProvider("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, _ := provider.Snapshot()
	if err := provider.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	after, _ := provider.Snapshot()

	if after.Version != before.Version+1 {
		t.Fatalf("expected version %d after reload, got %d", before.Version+1, after.Version)
	}
	if before.Version != 1 {
		t.Fatalf("pinned snapshot mutated: version %d", before.Version)
	}
}

func TestFileProviderReloadFailureKeepsServing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	provider, err := NewFileProvider(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(path, []byte(`not json`), 0o600); err != nil {
		t.Fatalf("rewrite policy file: %v", err)
	}
	if err := provider.Reload(); err == nil {
		t.Fatal("expected reload of malformed file to fail")
	}

	if _, err := provider.Snapshot(); err != nil {
		t.Fatalf("expected previous snapshot to keep serving, got %v", err)
	}
}
