package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: us-east-1
pricing:
  instanceTypes: ["c3.large", "m3.large"]
  availabilityZones: ["us-east-1a", "us-east-1b"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Queue.Name != "load-balancer-test" {
		t.Errorf("queue name = %q, want load-balancer-test", cfg.Queue.Name)
	}
	if got := cfg.Pricing.RefreshInterval(); got != 10*time.Second {
		t.Errorf("price refresh interval = %v, want 10s", got)
	}
	if got := cfg.Replacer.ReconcileInterval(); got != 60*time.Second {
		t.Errorf("reconcile interval = %v, want 60s", got)
	}
	if cfg.Telemetry.ListenAddress != ":8080" {
		t.Errorf("listen address = %q, want :8080", cfg.Telemetry.ListenAddress)
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
aws:
  region: eu-west-1
queue:
  name: terminations
pricing:
  instanceTypes: ["c3.large"]
  availabilityZones: ["eu-west-1a"]
  refreshIntervalSeconds: 30
  workers: 8
  eligibilityExpression: "price < 0.5"
replacer:
  reconcileIntervalSeconds: 120
  estimateSavings: true
telemetry:
  listenAddress: ":9102"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("region = %q, want eu-west-1", cfg.AWS.Region)
	}
	if cfg.Queue.Name != "terminations" {
		t.Errorf("queue name = %q, want terminations", cfg.Queue.Name)
	}
	if cfg.Pricing.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Pricing.Workers)
	}
	if cfg.Pricing.EligibilityExpression != "price < 0.5" {
		t.Errorf("eligibility expression = %q", cfg.Pricing.EligibilityExpression)
	}
	if !cfg.Replacer.EstimateSavings {
		t.Error("estimateSavings not parsed")
	}
	if got := cfg.Replacer.ReconcileInterval(); got != 2*time.Minute {
		t.Errorf("reconcile interval = %v, want 2m", got)
	}
	if cfg.Telemetry.ListenAddress != ":9102" {
		t.Errorf("listen address = %q, want :9102", cfg.Telemetry.ListenAddress)
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "missing region",
			content: `
pricing:
  instanceTypes: ["c3.large"]
  availabilityZones: ["us-east-1a"]
`,
		},
		{
			name: "missing instance types",
			content: `
aws:
  region: us-east-1
pricing:
  availabilityZones: ["us-east-1a"]
`,
		},
		{
			name: "missing availability zones",
			content: `
aws:
  region: us-east-1
pricing:
  instanceTypes: ["c3.large"]
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "aws: [broken")); err == nil {
		t.Error("expected parse error")
	}
}
