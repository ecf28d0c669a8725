package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withVersion(t *testing.T, v string) {
	t.Helper()
	saved := version
	version = v
	t.Cleanup(func() { version = saved })
}

func TestVersion_PrintsBuildInfo(t *testing.T) {
	withVersion(t, "1.4.0")

	out, err := execute(t, nil, "", "version")
	require.NoError(t, err)

	assert.Contains(t, out, "chatbot version 1.4.0")
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersion_Short(t *testing.T) {
	withVersion(t, "1.4.0")

	out, err := execute(t, nil, "", "version", "--short")
	require.NoError(t, err)

	assert.Equal(t, "1.4.0\n", out)
}

func TestVersion_RejectsArgs(t *testing.T) {
	_, err := execute(t, nil, "", "version", "extra")
	assert.Error(t, err)
}

func TestResolveVersion(t *testing.T) {
	withVersion(t, "v2.0.0")
	assert.Equal(t, "v2.0.0", resolveVersion())

	// Test binaries carry no module version.
	version = "dev"
	assert.Equal(t, "dev", resolveVersion())
}
