// SSH provider: a self-hosted OpenAI-compatible server addressed by host:port.
//
// Information Hiding:
// - Endpoint parsing and validation (fails before any network call)
// - Optional SSH jump host; HTTP connections are dialed through it
// - Host key verification against known_hosts

package llm

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ParseEndpoint splits a host:port string. A missing host, missing port or a
// port outside 1-65535 fails with ErrInvalidConnection.
func ParseEndpoint(s string) (host string, port int, err error) {
	s = strings.TrimSpace(s)
	h, p, splitErr := net.SplitHostPort(s)
	if splitErr != nil {
		return "", 0, configError("endpoint", s, ErrInvalidConnection, "expected host:port")
	}
	if h == "" {
		return "", 0, configError("endpoint", s, ErrInvalidConnection, "missing host")
	}
	n, convErr := strconv.Atoi(p)
	if convErr != nil || n < 1 || n > 65535 {
		return "", 0, configError("endpoint", s, ErrInvalidConnection, "port must be a number in 1-65535")
	}
	return h, n, nil
}

// TunnelConfig describes an SSH jump host.
type TunnelConfig struct {
	Addr           string // jump host host:port
	User           string
	KeyFile        string // private key path, "~" expanded
	KnownHostsFile string // defaults to ~/.ssh/known_hosts
	Timeout        time.Duration
}

// SSHProvider implements the Provider interface for a self-hosted server.
type SSHProvider struct {
	*OpenAIProvider
	host   string
	port   int
	tunnel *tunnelDialer
}

// NewSSHProvider creates a provider for the server at endpoint (host:port).
// Configuration is validated before any connection is attempted.
func NewSSHProvider(endpoint, model string, maxTokens uint32, temperature float32, tunnel *TunnelConfig, opts Options) (*SSHProvider, error) {
	host, port, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	p := &SSHProvider{host: host, port: port}

	opts.Name = "ssh"
	if opts.BaseURL == "" {
		opts.BaseURL = fmt.Sprintf("http://%s/v1", net.JoinHostPort(host, strconv.Itoa(port)))
	}
	if tunnel != nil {
		dialer, err := newTunnelDialer(tunnel)
		if err != nil {
			return nil, err
		}
		p.tunnel = dialer
		opts.HTTPClient = &http.Client{
			Transport: &http.Transport{DialContext: dialer.DialContext},
		}
	}

	p.OpenAIProvider = NewOpenAIProvider("EMPTY", model, maxTokens, temperature, opts)
	return p, nil
}

// Host returns the server host.
func (p *SSHProvider) Host() string {
	return p.host
}

// Port returns the server port.
func (p *SSHProvider) Port() int {
	return p.port
}

// Close releases the SSH connection, if one was opened.
func (p *SSHProvider) Close() error {
	if p.tunnel == nil {
		return nil
	}
	return p.tunnel.Close()
}

type tunnelDialer struct {
	addr   string
	config *ssh.ClientConfig

	mu     sync.Mutex
	client *ssh.Client
}

func newTunnelDialer(t *TunnelConfig) (*tunnelDialer, error) {
	if _, _, err := ParseEndpoint(t.Addr); err != nil {
		return nil, err
	}
	if t.User == "" {
		return nil, configError("tunnel.user", "", ErrInvalidConnection, "user is required")
	}

	keyPath, err := expandHome(t.KeyFile)
	if err != nil {
		return nil, configError("tunnel.key_file", t.KeyFile, ErrInvalidConnection, err.Error())
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, configError("tunnel.key_file", t.KeyFile, ErrInvalidConnection, err.Error())
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, configError("tunnel.key_file", t.KeyFile, ErrInvalidConnection, err.Error())
	}

	knownHosts := t.KnownHostsFile
	if knownHosts == "" {
		knownHosts = "~/.ssh/known_hosts"
	}
	knownHostsPath, err := expandHome(knownHosts)
	if err != nil {
		return nil, configError("tunnel.known_hosts_file", knownHosts, ErrInvalidConnection, err.Error())
	}
	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, configError("tunnel.known_hosts_file", knownHosts, ErrInvalidConnection, err.Error())
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &tunnelDialer{
		addr: t.Addr,
		config: &ssh.ClientConfig{
			User:            t.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
			Timeout:         timeout,
		},
	}, nil
}

// DialContext opens a connection to addr through the jump host, connecting
// to the jump host on first use.
func (d *tunnelDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	d.mu.Lock()
	if d.client == nil {
		client, err := ssh.Dial("tcp", d.addr, d.config)
		if err != nil {
			d.mu.Unlock()
			return nil, fmt.Errorf("ssh dial %s: %w", d.addr, err)
		}
		d.client = client
	}
	client := d.client
	d.mu.Unlock()

	return client.DialContext(ctx, network, addr)
}

func (d *tunnelDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Verify SSHProvider implements Provider
var _ Provider = (*SSHProvider)(nil)
