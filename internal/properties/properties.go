package properties

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Keys understood by the http client factory.
const (
	ProxyHost     = "http.proxyHost"
	ProxyPort     = "http.proxyPort"
	ProxyUser     = "http.proxyUser"
	ProxyPassword = "http.proxyPassword"
)

// Source is a read only key value store.
type Source interface {
	Lookup(key string) (string, bool)
}

// Map is an in memory Source.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Environment looks up keys in the process environment. A key is tried
// verbatim first and then as its upper case alias with dots replaced by
// underscores (http.proxyHost -> HTTP_PROXYHOST).
type Environment struct{}

func (Environment) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	return os.LookupEnv(EnvName(key))
}

// EnvName returns the environment alias of a property key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

type chain []Source

func (c chain) Lookup(key string) (string, bool) {
	for _, s := range c {
		if s == nil {
			continue
		}
		if v, ok := s.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// Chain returns a Source consulting the given sources in order, the first
// one holding the key wins.
func Chain(sources ...Source) Source {
	return chain(sources)
}

// Parse reads key=value pairs in the properties/dotenv format.
func Parse(r io.Reader) (Map, error) {
	m, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("could not parse properties: %w", err)
	}
	return Map(m), nil
}

// LoadFile parses the properties file at path.
func LoadFile(path string) (Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open properties file %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
