package devenv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDescriptor_RepositoryDevcontainer(t *testing.T) {
	path := filepath.Join("..", "..", "..", "..", ".devcontainer", "docker-compose.yml")

	desc, err := NewLoader().LoadDescriptor(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"app", "cache"}, desc.ServiceNames())
	assert.NoError(t, desc.Validate())

	host, port, err := desc.CacheEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6379, port)
}

func TestLoadDescriptor_ShortSyntax(t *testing.T) {
	path := writeFile(t, "compose.yml", `
services:
  app:
    build: ..
    command: sleep infinity
    volumes:
      - ..:/workspace:cached
      - /data
    networks: [net]
    depends_on: [cache]
  cache:
    image: redis
    ports:
      - "127.0.0.1:16379:6379/tcp"
      - 9000
    networks: [net]
networks:
  net:
`)

	desc, err := NewLoader().LoadDescriptor(path)
	require.NoError(t, err)

	app := desc.Services["app"]
	assert.Equal(t, "..", app.Build)
	assert.Equal(t, []string{"sleep", "infinity"}, app.Command)
	assert.Equal(t, []domain.VolumeMount{
		{Source: "..", Target: "/workspace", Mode: "cached"},
		{Target: "/data"},
	}, app.Volumes)
	assert.Equal(t, []string{"cache"}, app.DependsOn)

	cache := desc.Services["cache"]
	assert.Equal(t, []domain.PortMapping{
		{HostIP: "127.0.0.1", Host: 16379, Container: 6379, Protocol: "tcp"},
		{Container: 9000},
	}, cache.Ports)

	assert.Equal(t, "bridge", desc.Networks["net"].EffectiveDriver())
	assert.Equal(t, path, desc.Path)
	assert.NoError(t, desc.Validate())

	host, port, err := desc.CacheEndpoint()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 16379, port)
}

func TestLoadDescriptor_LongSyntax(t *testing.T) {
	path := writeFile(t, "compose.yml", `
services:
  app:
    build:
      context: ..
      dockerfile: Dockerfile
    command: ["go", "run", "."]
    volumes:
      - type: bind
        source: ..
        target: /workspace
        read_only: true
    networks:
      net:
        aliases: [workspace]
    depends_on:
      cache:
        condition: service_started
  cache:
    image: redis
    ports:
      - target: 6379
        published: 6379
        protocol: tcp
    networks:
      net: {}
networks:
  net:
    driver: bridge
`)

	desc, err := NewLoader().LoadDescriptor(path)
	require.NoError(t, err)

	app := desc.Services["app"]
	assert.Equal(t, "..", app.Build)
	assert.Equal(t, []string{"go", "run", "."}, app.Command)
	assert.Equal(t, []domain.VolumeMount{{Source: "..", Target: "/workspace", Mode: "ro"}}, app.Volumes)
	assert.Equal(t, []string{"net"}, app.Networks)
	assert.Equal(t, []string{"cache"}, app.DependsOn)
	assert.Equal(t, []domain.PortMapping{{Host: 6379, Container: 6379, Protocol: "tcp"}}, desc.Services["cache"].Ports)
	assert.NoError(t, desc.Validate())
}

func TestLoadDescriptor_ContractViolations(t *testing.T) {
	path := writeFile(t, "compose.yml", `
services:
  only:
    image: redis
    ports: ["6379:6379"]
networks:
  overlay-net:
    driver: overlay
`)

	desc, err := NewLoader().LoadDescriptor(path)
	require.NoError(t, err)

	err = desc.Validate()
	assert.ErrorIs(t, err, domain.ErrInvalidDescriptor)
	assert.Contains(t, err.Error(), "expected exactly 2 services, found 1")
	assert.Contains(t, err.Error(), "no service mounts the workspace")
	assert.Contains(t, err.Error(), "no named bridge network")
}

func TestLoadDescriptor_InvalidPort(t *testing.T) {
	path := writeFile(t, "compose.yml", `
services:
  cache:
    ports: ["redis:6379"]
`)

	_, err := NewLoader().LoadDescriptor(path)

	assert.ErrorContains(t, err, `invalid port "redis"`)
}

func TestLoadDescriptor_Errors(t *testing.T) {
	_, err := NewLoader().LoadDescriptor(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewLoader().LoadDescriptor(writeFile(t, "bad.yml", "services: [unclosed"))
	assert.ErrorContains(t, err, "parse")
}

func TestLoadPlan(t *testing.T) {
	path := writeFile(t, "bootstrap.yaml", `
steps:
  - name: download dependencies
    run: [go, mod, download]
    requires: [go.mod]
  - name: create local infra
    dir: ..
    run: chatbot env wait
`)

	plan, err := NewLoader().LoadPlan(path)

	require.NoError(t, err)
	assert.Equal(t, []domain.Step{
		{Name: "download dependencies", Dir: ".", Run: []string{"go", "mod", "download"}, Requires: []string{"go.mod"}},
		{Name: "create local infra", Dir: "..", Run: []string{"chatbot", "env", "wait"}},
	}, plan.Steps)
}

func TestLoadPlan_RepositoryPlan(t *testing.T) {
	plan, err := NewLoader().LoadPlan(filepath.Join("..", "..", "..", "..", ".devcontainer", "bootstrap.yaml"))

	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, []string{"../go.mod"}, plan.Steps[0].Requires)
	assert.Equal(t, ".", plan.Steps[0].Dir)
	assert.Equal(t, ".", plan.Steps[1].Dir)
	assert.Equal(t, "..", plan.Steps[2].Dir, "last install runs from the parent directory")
}

func TestLoadPlan_Invalid(t *testing.T) {
	_, err := NewLoader().LoadPlan(writeFile(t, "empty.yaml", "steps: []\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewLoader().LoadPlan(writeFile(t, "noname.yaml", "steps:\n  - run: [true]\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseShortPort(t *testing.T) {
	tests := []struct {
		spec string
		want portEntry
	}{
		{"6379", portEntry{Container: 6379}},
		{"6380:6379", portEntry{Host: 6380, Container: 6379}},
		{"0.0.0.0:6379:6379/udp", portEntry{HostIP: "0.0.0.0", Host: 6379, Container: 6379, Protocol: "udp"}},
		{"8000-8010:8000-8010", portEntry{Host: 8000, Container: 8000}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseShortPort(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseShortPort("1:2:3:4")
	assert.Error(t, err)
	_, err = parseShortPort("70000")
	assert.Error(t, err)
}
