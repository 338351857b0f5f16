package config

import (
	"os"
	"strconv"
	"time"

	"github.com/Mindburn-Labs/actiongov/pkg/approval"
	"github.com/Mindburn-Labs/actiongov/pkg/risk"
)

// RuntimeConfig is the process-wide configuration assembled by Load.
type RuntimeConfig struct {
	ListenAddr          string
	ApprovalRouting     approval.RoutingConfig
	RiskScoring         risk.ScoringConfig
	AuditRedaction      RedactionConfig
	CanonicalizationVer int
	ChainHashVersion    int
	ProposalRateLimit   int // per-principal proposals per minute
}

// Load builds a RuntimeConfig from environment variables, falling back to
// safe defaults for anything unset.
func Load() RuntimeConfig {
	cfg := RuntimeConfig{
		ListenAddr:          getEnv("ACTIONGOV_LISTEN_ADDR", ":8080"),
		ApprovalRouting:     approval.DefaultRoutingConfig(),
		RiskScoring:         risk.Defaults(),
		AuditRedaction:      DefaultRedactionConfig(),
		CanonicalizationVer: 1,
		ChainHashVersion:    1,
		ProposalRateLimit:   getEnvInt("ACTIONGOV_PROPOSAL_RATE_LIMIT", 30),
	}

	if v := os.Getenv("ACTIONGOV_DEFAULT_APPROVERS"); v != "" {
		cfg.ApprovalRouting.DefaultApprovers = splitCSV(v)
	}
	if v := os.Getenv("ACTIONGOV_FALLBACK_APPROVER"); v != "" {
		cfg.ApprovalRouting.DefaultFallbackApprover = v
	}
	if v := getEnvDuration("ACTIONGOV_DEFAULT_EXPIRY", 0); v > 0 {
		cfg.ApprovalRouting.DefaultExpiry = v
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
