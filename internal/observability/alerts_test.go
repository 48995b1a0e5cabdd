package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

func loadStockRules(t *testing.T) map[string]alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "stock.yml"))
	require.NoError(t, err)

	var doc alertFile
	require.NoError(t, yaml.Unmarshal(data, &doc))
	for _, g := range doc.Groups {
		if g.Name != "stock" {
			continue
		}
		rules := make(map[string]alertRule, len(g.Rules))
		for _, r := range g.Rules {
			rules[r.Alert] = r
		}
		return rules
	}
	t.Fatal("stock alert group missing")
	return nil
}

func TestStockAlertRules(t *testing.T) {
	rules := loadStockRules(t)
	expected := map[string]struct {
		severity string
		metric   string
	}{
		"HighErrorRate":    {severity: "critical", metric: "odyssey_http_requests_total"},
		"HighLatency":      {severity: "warning", metric: "odyssey_http_request_duration_seconds_bucket"},
		"StockDiscrepancy": {severity: "warning", metric: "odyssey_stock_reconcile_discrepancies_total"},
	}
	require.Len(t, rules, len(expected))

	runbook, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-stock.md"))
	require.NoError(t, err)

	for name, want := range expected {
		rule, ok := rules[name]
		require.True(t, ok, "rule %s missing", name)
		require.Equal(t, want.severity, rule.Labels["severity"], name)
		require.Contains(t, rule.Expr, want.metric, name)
		require.NotEmpty(t, rule.For, name)
		require.NotEmpty(t, rule.Annotations["summary"], name)
		require.NotEmpty(t, rule.Annotations["description"], name)

		link := rule.Annotations["runbook"]
		require.True(t, strings.HasPrefix(link, "docs/runbook-stock.md#"), name)
		anchor := strings.TrimPrefix(link, "docs/runbook-stock.md#")
		heading := "## " + strings.ReplaceAll(anchor, "-", " ")
		require.Contains(t, strings.ToLower(string(runbook)), heading, name)
	}
}
