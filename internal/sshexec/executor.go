package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

const sshPort = "22"

// Target identifies the remote host and credentials for one command.
type Target struct {
	Host   string
	User   string
	Secret string
}

// Result is the outcome of a cleanly completed remote command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ConnectionError means the command's outcome is unknown: the session could
// not be established (auth failure, timeout, network unreachable). Callers
// must not infer absence of a remote resource from it.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ssh %s: connection failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommandError means the session was established but the command exited
// nonzero. Presence probes are written to always exit 0, so for them this
// signals a logic bug rather than a legitimate negative result.
type CommandError struct {
	Command string
	Result  Result
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote command %q exited %d: %s", e.Command, e.Result.ExitCode, e.Result.Stderr)
}

// IsConnectionError reports whether err (or anything it wraps) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsCommandError reports whether err (or anything it wraps) is a
// CommandError, extracting it when so.
func IsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	ok := errors.As(err, &ce)
	return ce, ok
}

// Executor opens an authenticated shell session to a host and runs a single
// command to completion.
type Executor struct {
	dialTimeout time.Duration
}

func NewExecutor(dialTimeout time.Duration) *Executor {
	return &Executor{dialTimeout: dialTimeout}
}

// Run executes one command on the target host. On clean completion it
// returns the command's stdout, stderr and exit code. Session-level
// failures return a *ConnectionError; a nonzero exit returns the populated
// Result alongside a *CommandError.
func (e *Executor) Run(ctx context.Context, target Target, command string) (*Result, error) {
	clientConfig := &ssh.ClientConfig{
		User: target.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(target.Secret),
		},
		// Customer machines are provisioned fresh; host keys are not
		// pinned at first contact.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.dialTimeout,
	}

	addr := net.JoinHostPort(target.Host, sshPort)
	dialer := net.Dialer{Timeout: e.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Host: target.Host, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return nil, &ConnectionError{Host: target.Host, Err: err}
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, &ConnectionError{Host: target.Host, Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	runErr := session.Run(command)
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, &CommandError{Command: command, Result: *result}
		}
		// The session died before the command reported an exit status.
		return nil, &ConnectionError{Host: target.Host, Err: runErr}
	}

	return result, nil
}
