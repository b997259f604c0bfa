package properties

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	in := `# corporate proxy
http.proxyHost=proxy.example.com
http.proxyPort=3128
export http.proxyUser="bob"
http.proxyPassword='s3cr3t#1'
`
	m, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, Map{
		ProxyHost:     "proxy.example.com",
		ProxyPort:     "3128",
		ProxyUser:     "bob",
		ProxyPassword: "s3cr3t#1",
	}, m)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "proxy.properties")
	require.NoError(t, os.WriteFile(path, []byte("http.proxyHost=10.0.0.1\nhttp.proxyPort=8080\n"), 0o600))

	m, err := LoadFile(path)
	require.NoError(t, err)
	v, ok := m.Lookup(ProxyHost)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.1", v)
	_, ok = m.Lookup(ProxyUser)
	assert.False(t, ok)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.properties"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		key      string
		expected string
	}{
		{ProxyHost, "HTTP_PROXYHOST"},
		{ProxyPort, "HTTP_PROXYPORT"},
		{ProxyUser, "HTTP_PROXYUSER"},
		{ProxyPassword, "HTTP_PROXYPASSWORD"},
		{"plain", "PLAIN"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, EnvName(tt.key))
		})
	}
}

// modifies the process environment, must not run in parallel
func TestEnvironment(t *testing.T) {
	t.Setenv("HTTP_PROXYHOST", "alias.example.com")
	t.Setenv("HTTP_PROXYPORT", "1")

	v, ok := Environment{}.Lookup(ProxyHost)
	assert.True(t, ok)
	assert.Equal(t, "alias.example.com", v)

	t.Setenv(ProxyPort, "2")
	v, ok = Environment{}.Lookup(ProxyPort)
	assert.True(t, ok)
	assert.Equal(t, "2", v, "verbatim key takes precedence over the alias")

	os.Unsetenv("HTTP_PROXYUSER")
	_, ok = Environment{}.Lookup(ProxyUser)
	assert.False(t, ok)
}

func TestChain(t *testing.T) {
	t.Parallel()

	flags := Map{ProxyPort: "9999"}
	file := Map{ProxyHost: "file.example.com", ProxyPort: "3128"}
	c := Chain(flags, nil, file)

	v, ok := c.Lookup(ProxyPort)
	assert.True(t, ok)
	assert.Equal(t, "9999", v)

	v, ok = c.Lookup(ProxyHost)
	assert.True(t, ok)
	assert.Equal(t, "file.example.com", v)

	_, ok = c.Lookup(ProxyUser)
	assert.False(t, ok)

	_, ok = Chain().Lookup(ProxyHost)
	assert.False(t, ok)
}
