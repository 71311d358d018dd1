package tools

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshFailureExitCode mirrors the ssh client's status for transport failures.
const sshFailureExitCode int32 = 255

// SSHRunner runs commands on a remote compute host. Timeout bounds the
// connection setup only; commands run until they exit.
type SSHRunner struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
	Env                         []string
}

func (r SSHRunner) Run(name string, args ...string) ([]byte, []byte, int32, error) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	code, err := r.RunStreaming(name, args, &stdout, &stderr)
	return stdout.Bytes(), stderr.Bytes(), code, err
}

func (r SSHRunner) RunStreaming(name string, args []string, stdout, stderr io.Writer) (int32, error) {
	client, err := r.connect()
	if err != nil {
		return sshFailureExitCode, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return sshFailureExitCode, err
	}
	defer session.Close()

	session.Stdout = os.Stdout
	session.Stderr = os.Stderr
	if stdout != nil {
		session.Stdout = stdout
	}
	if stderr != nil {
		session.Stderr = stderr
	}

	err = session.Run(joinCommand(r.Env, name, args))
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitStatus()), err
	}
	return sshFailureExitCode, err
}

func (r SSHRunner) WithEnv(env ...string) StreamRunner {
	next := r
	next.Env = append(append([]string(nil), r.Env...), env...)
	return next
}

func joinCommand(env []string, cmd string, args []string) string {
	var builder strings.Builder
	if len(env) > 0 {
		builder.WriteString("env")
		for _, kv := range env {
			builder.WriteByte(' ')
			builder.WriteString(shellEscape(kv))
		}
		builder.WriteByte(' ')
	}
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}
	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// connect validates every setting before touching the network.
func (r SSHRunner) connect() (*ssh.Client, error) {
	addr, err := r.address()
	if err != nil {
		return nil, err
	}
	config, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: r.Timeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("tools: ssh dial %s: %w", addr, err)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("tools: ssh handshake %s: %w", addr, err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

// address defaults to port 22 unless Port or a host:port Host says otherwise.
func (r SSHRunner) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	switch {
	case host == "":
		return "", fmt.Errorf("%w: host is required", ErrSSHConfig)
	case r.Port != "":
		return net.JoinHostPort(host, r.Port), nil
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}
	return net.JoinHostPort(host, "22"), nil
}

func (r SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	if strings.TrimSpace(r.User) == "" {
		return nil, fmt.Errorf("%w: user is required", ErrSSHConfig)
	}
	auth, err := r.publicKeyAuth()
	if err != nil {
		return nil, err
	}
	hostKeys, err := r.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeys,
		Timeout:         r.Timeout,
	}, nil
}

func (r SSHRunner) publicKeyAuth() (ssh.AuthMethod, error) {
	if r.KeyPath == "" {
		return nil, fmt.Errorf("%w: key_path is required", ErrSSHConfig)
	}
	pemBytes, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("tools: read ssh key: %w", err)
	}

	var signer ssh.Signer
	if len(r.Passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, r.Passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(pemBytes)
	}
	var missing *ssh.PassphraseMissingError
	switch {
	case errors.As(err, &missing):
		return nil, fmt.Errorf("%w: key %s is encrypted and no passphrase was given", ErrSSHConfig, r.KeyPath)
	case err != nil:
		return nil, fmt.Errorf("tools: parse ssh key %s: %w", r.KeyPath, err)
	}
	return ssh.PublicKeys(signer), nil
}

// hostKeyCallback verifies against KnownHostsPath, falling back to
// ~/.ssh/known_hosts.
func (r SSHRunner) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if r.InsecureSkipHostKeyChecking {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: known_hosts path not set and home dir unavailable", ErrSSHConfig)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("tools: load known_hosts %s: %w", path, err)
	}
	return callback, nil
}
