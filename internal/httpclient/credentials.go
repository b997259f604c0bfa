package httpclient

import (
	"fmt"
	"strings"
	"sync"
)

// AnyPort matches every port of a scope.
const AnyPort = -1

// AuthScope restricts a credential to a host and port. An empty Host
// matches every host.
type AuthScope struct {
	Host string
	Port int
}

func (s AuthScope) String() string {
	host := s.Host
	if host == "" {
		host = "<any host>"
	}
	if s.Port == AnyPort {
		return fmt.Sprintf("%s:<any port>", host)
	}
	return fmt.Sprintf("%s:%d", host, s.Port)
}

// match returns how specific s matches other, or -1 if it does not match
func (s AuthScope) match(other AuthScope) int {
	factor := 0
	switch {
	case s.Host == "":
	case strings.EqualFold(s.Host, other.Host):
		factor += 8
	default:
		return -1
	}
	switch s.Port {
	case AnyPort:
	case other.Port:
		factor += 4
	default:
		return -1
	}
	return factor
}

type Credentials struct {
	Username string
	Password string
}

// String never includes the password so credentials are safe to log.
func (c Credentials) String() string {
	if c.Password == "" {
		return c.Username
	}
	return c.Username + ":***"
}

// CredentialsProvider holds the credentials registered for a client. It is
// consulted by the transport on every proxied request.
type CredentialsProvider struct {
	mu          sync.RWMutex
	credentials map[AuthScope]Credentials
}

func NewCredentialsProvider() *CredentialsProvider {
	return &CredentialsProvider{
		credentials: make(map[AuthScope]Credentials),
	}
}

// SetCredentials registers creds for scope, replacing any previous entry.
// Hosts are compared case insensitive so they are stored lower case.
func (p *CredentialsProvider) SetCredentials(scope AuthScope, creds Credentials) {
	scope.Host = strings.ToLower(scope.Host)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credentials[scope] = creds
}

// Credentials returns the most specific credentials matching scope.
func (p *CredentialsProvider) Credentials(scope AuthScope) (Credentials, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	best := -1
	var found Credentials
	for s, c := range p.credentials {
		if f := s.match(scope); f > best {
			best = f
			found = c
		}
	}
	return found, best >= 0
}

// Scopes lists all registered scopes.
func (p *CredentialsProvider) Scopes() []AuthScope {
	p.mu.RLock()
	defer p.mu.RUnlock()

	scopes := make([]AuthScope, 0, len(p.credentials))
	for s := range p.credentials {
		scopes = append(scopes, s)
	}
	return scopes
}

func (p *CredentialsProvider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.credentials)
}

func (p *CredentialsProvider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.credentials)
}
