package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultChannelID = "PayWaveApp"
const defaultChannelKey = "PayWaveKey001"
const defaultCurrency = "USD"
const defaultTimezone = "UTC"
const defaultFeeAccountID = "platform-fees"
const defaultSettlementAccountID = "platform-settlement"
const defaultAdminActorID = "admin-1"
const defaultAdminActorSecret = "ChangeMe001"

type Config struct {
	AppPort             string
	DatabaseDSN         string
	MigrationsDir       string
	ChannelID           string
	ChannelKey          string
	Currency            string
	DefaultTimezone     string
	FeeAccountID        string
	SettlementAccountID string
	PolicyFile          string
	AdminActorID        string
	AdminActorSecret    string
	ReviewTTL           time.Duration
	SweepInterval       time.Duration
	CommitRetries       int
}

func Load() (Config, error) {
	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))

	channelID := strings.TrimSpace(os.Getenv("CHANNEL_ID"))
	if channelID == "" {
		channelID = defaultChannelID
	}

	channelKey := strings.TrimSpace(os.Getenv("CHANNEL_KEY"))
	if channelKey == "" {
		channelKey = defaultChannelKey
	}

	currency := strings.ToUpper(strings.TrimSpace(os.Getenv("ENGINE_CURRENCY")))
	if currency == "" {
		currency = defaultCurrency
	}

	timezone := strings.TrimSpace(os.Getenv("DEFAULT_TIMEZONE"))
	if timezone == "" {
		timezone = defaultTimezone
	}

	feeAccountID := strings.TrimSpace(os.Getenv("FEE_ACCOUNT_ID"))
	if feeAccountID == "" {
		feeAccountID = defaultFeeAccountID
	}

	settlementAccountID := strings.TrimSpace(os.Getenv("SETTLEMENT_ACCOUNT_ID"))
	if settlementAccountID == "" {
		settlementAccountID = defaultSettlementAccountID
	}

	appPort := strings.TrimSpace(os.Getenv("APP_PORT"))
	if appPort == "" {
		appPort = "8080"
	}

	adminActorID := strings.TrimSpace(os.Getenv("ADMIN_ACTOR_ID"))
	if adminActorID == "" {
		adminActorID = defaultAdminActorID
	}

	adminActorSecret := strings.TrimSpace(os.Getenv("ADMIN_ACTOR_SECRET"))
	if adminActorSecret == "" {
		adminActorSecret = defaultAdminActorSecret
	}

	return Config{
		AppPort:             appPort,
		DatabaseDSN:         normalizeConnectionString(conn),
		MigrationsDir:       filepath.Join("src", "migrations"),
		ChannelID:           channelID,
		ChannelKey:          channelKey,
		Currency:            currency,
		DefaultTimezone:     timezone,
		FeeAccountID:        feeAccountID,
		SettlementAccountID: settlementAccountID,
		PolicyFile:          strings.TrimSpace(os.Getenv("POLICY_FILE")),
		AdminActorID:        adminActorID,
		AdminActorSecret:    adminActorSecret,
		ReviewTTL:           durationEnv("REVIEW_TTL_MINUTES", 24*60) * time.Minute,
		SweepInterval:       durationEnv("SWEEP_INTERVAL_SECONDS", 60) * time.Second,
		CommitRetries:       intEnv("COMMIT_RETRIES", 5),
	}, nil
}

func intEnv(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func durationEnv(name string, fallback int) time.Duration {
	return time.Duration(intEnv(name, fallback))
}

// normalizeConnectionString accepts both the libpq keyword form and the
// semicolon-separated "Host=;Port=;Database=" form used by ops tooling.
func normalizeConnectionString(raw string) string {
	if raw == "" || !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
