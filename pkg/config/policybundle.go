package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/actiongov/pkg/ruleeval"
)

// PolicyDefinition is one policy's on-disk YAML shape: a rule plus the
// effect it applies when matched.
type PolicyDefinition struct {
	ID         string             `yaml:"id"`
	Priority   int                `yaml:"priority"`
	Rule       ruleeval.PolicyRule `yaml:"rule,omitempty"`
	CELExpression string          `yaml:"cel,omitempty"` // takes precedence over Rule when set
	Effect     string             `yaml:"effect"` // allow | deny | require_approval | modify
	ApprovalLevel string          `yaml:"approval_level,omitempty"`
	Patch      map[string]interface{} `yaml:"patch,omitempty"`
	CartridgeIDs []string         `yaml:"cartridge_ids,omitempty"`
}

// PolicyBundle is a versioned collection of policies loaded from YAML.
// BundleVersion must be a valid semver string; LoadPolicyBundle rejects the
// bundle otherwise so an operator cannot silently ship malformed versioning.
type PolicyBundle struct {
	BundleVersion string             `yaml:"bundle_version"`
	Policies      []PolicyDefinition `yaml:"policies"`
}

// LoadPolicyBundle reads and parses a policy bundle from path, validating
// that BundleVersion parses as semver.
func LoadPolicyBundle(path string) (*PolicyBundle, *semver.Version, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("config: read policy bundle: %w", err)
	}

	var bundle PolicyBundle
	if err := yaml.Unmarshal(raw, &bundle); err != nil {
		return nil, nil, fmt.Errorf("config: parse policy bundle: %w", err)
	}

	version, err := semver.NewVersion(bundle.BundleVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("config: policy bundle %q has invalid version %q: %w", path, bundle.BundleVersion, err)
	}

	return &bundle, version, nil
}

// IsNewerThan reports whether candidate is a strictly newer version than
// current, used to decide whether a reloaded bundle should replace the
// active one.
func IsNewerThan(candidate, current *semver.Version) bool {
	if current == nil {
		return true
	}
	return candidate.GreaterThan(current)
}
