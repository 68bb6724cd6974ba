package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9000"
supergraph_schema: supergraph.graphql
plan_manifest: plans.json
services:
  - name: accounts
    url: http://accounts:4001/graphql
    timeout: 5s
    headers:
      x-gateway: federation
    forward_headers: [authorization]
  - name: reviews
    url: http://reviews:4002/graphql
server:
  pretty: true
  max_body_bytes: 1048576
  cors_origins: ["*"]
  metrics_addr: ":9090"
opentelemetry:
  endpoint: collector:4317
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Len(t, cfg.Services, 2)
	require.Equal(t, "accounts", cfg.Services[0].Name)
	require.Equal(t, "federation", cfg.Services[0].Headers["x-gateway"])
	require.Equal(t, []string{"authorization"}, cfg.Services[0].ForwardHeaders)
	require.True(t, cfg.Server.Pretty)
	require.True(t, cfg.Server.IntrospectionEnabled())
	require.Equal(t, ":9090", cfg.Server.MetricsAddr)
	require.Equal(t, "collector:4317", cfg.Otel.Endpoint)
	// Defaults kick in for unset values.
	require.NotZero(t, cfg.Server.Timeout)
	require.Equal(t, "federation-gateway", cfg.Otel.ServiceName)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"MissingSchema", "plan_manifest: p.json\nservices: [{name: a, url: http://a}]"},
		{"MissingManifest", "supergraph_schema: s.graphql\nservices: [{name: a, url: http://a}]"},
		{"NoServices", "supergraph_schema: s.graphql\nplan_manifest: p.json"},
		{"UnnamedService", "supergraph_schema: s.graphql\nplan_manifest: p.json\nservices: [{url: http://a}]"},
		{"DuplicateService", "supergraph_schema: s.graphql\nplan_manifest: p.json\nservices: [{name: a, url: http://a}, {name: a, url: http://b}]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestIntrospectionToggle(t *testing.T) {
	path := writeConfig(t, `
supergraph_schema: s.graphql
plan_manifest: p.json
services: [{name: a, url: http://a}]
server:
  introspection: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Server.IntrospectionEnabled())
}
