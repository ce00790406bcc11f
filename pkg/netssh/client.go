// Package netssh runs commands on network devices over SSH.
package netssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"golang.org/x/crypto/ssh"
)

// NoOutput is returned by Execute when the command printed nothing.
const NoOutput = "Command has exited with no output"

const defaultTimeout = 30 * time.Second

type Target struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey string
	// KnownHostsKey pins the device host key (authorized_keys format). When
	// empty the host key is not checked.
	KnownHostsKey string
	Timeout       time.Duration
}

func (t Target) address() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

func (t Target) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if t.PrivateKey != "" {
		key, err := ssh.ParsePrivateKey([]byte(t.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(key))
	}
	if t.Password != "" {
		password := t.Password
		auth = append(auth,
			ssh.Password(password),
			// IOS devices frequently only offer keyboard-interactive
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}
	if len(auth) == 0 {
		return nil, errors.New("no password or private key for device")
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if t.KnownHostsKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(t.KnownHostsKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse host key: %w", err)
		}
		hostKey = ssh.FixedHostKey(pub)
	}

	timeout := t.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &ssh.ClientConfig{
		User:            t.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

type Client struct {
	target Target
	client *ssh.Client
}

// Dial connects and authenticates to the target.
func Dial(ctx context.Context, target Target) (*Client, error) {
	config, err := target.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := target.address()
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	xlog.Debug("SSH connected", "address", addr, "user", target.Username)
	return &Client{target: target, client: ssh.NewClient(c, chans, reqs)}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// closeOnCancel closes the session when ctx ends before the returned stop
// function is called.
func closeOnCancel(ctx context.Context, session *ssh.Session) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Execute runs a single command in its own exec session and returns the
// combined output.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	stop := closeOnCancel(ctx, session)
	defer stop()

	output, err := session.CombinedOutput(command)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil {
		// network OSes often close exec channels without an exit status
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) {
			return string(output), fmt.Errorf("running %q: %w", command, err)
		}
	}

	out := strings.TrimSpace(string(output))
	if out == "" {
		return NoOutput, nil
	}
	return out, nil
}

// Configure enters configuration mode in an interactive shell, writes the
// lines and returns the session transcript.
func (c *Client) Configure(ctx context.Context, lines []string) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	stop := closeOnCancel(ctx, session)
	defer stop()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("vt100", 0, 200, modes); err != nil {
		return "", fmt.Errorf("failed to request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out

	if err := session.Shell(); err != nil {
		return "", fmt.Errorf("failed to start shell: %w", err)
	}

	script := []string{"terminal length 0", "configure terminal"}
	script = append(script, lines...)
	script = append(script, "end", "exit")
	for _, line := range script {
		if _, err := io.WriteString(stdin, line+"\n"); err != nil {
			return out.String(), fmt.Errorf("writing %q: %w", line, err)
		}
	}
	stdin.Close()

	err = session.Wait()
	if ctx.Err() != nil {
		return out.String(), ctx.Err()
	}
	if err != nil {
		var missing *ssh.ExitMissingError
		if !errors.As(err, &missing) && !errors.Is(err, io.EOF) {
			return out.String(), fmt.Errorf("configuration session: %w", err)
		}
	}
	return out.String(), nil
}
