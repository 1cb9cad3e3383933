// Package bsa talks to the BSA E-Filing secure file-transfer endpoint: an
// outbound submissions drop and an inbound acknowledgments drop, plus the
// parsers for the two asynchronous response file kinds.
package bsa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/tu-usuario/filing-pro/pkg/config"
	"github.com/tu-usuario/filing-pro/pkg/logger"
)

var (
	// ErrConnection marks connect/IO failures. Retryable per policy.
	ErrConnection = errors.New("bsa: connection error")
	// ErrRemoteFile marks remote-file failures (missing file, short write,
	// permission). Usually not retryable.
	ErrRemoteFile = errors.New("bsa: remote file error")
)

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnection)
}

// maxResponseSize bounds response downloads; acknowledgment files are small.
const maxResponseSize = 8 << 20

// Client dials the endpoint. The connection itself lives on a Session: a
// scoped resource acquired per logical operation and released on all exit
// paths. Sessions are not safe for concurrent use.
type Client struct {
	cfg config.BSAConfig
	log *logger.Logger
}

// NewClient builds the transport client from configuration.
func NewClient(cfg config.BSAConfig, log *logger.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

// Connect establishes an SFTP session with bounded retries and doubling
// backoff. The context only gates the waits between attempts; a dial in
// flight is bounded by the configured dial timeout.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	retries := c.cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	backoff := c.cfg.ConnectBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		sess, err := c.dial()
		if err == nil {
			if attempt > 1 {
				c.log.Info().Int("attempt", attempt).Msg("bsa: connected after retry")
			}
			return sess, nil
		}
		lastErr = err
		c.log.Warn().Err(err).Int("attempt", attempt).Int("max", retries).
			Msg("bsa: connection attempt failed")
		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: canceled while backing off: %v", ErrConnection, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrConnection, retries, lastErr)
}

func (c *Client) dial() (*Session, error) {
	auth, err := c.authMethods()
	if err != nil {
		return nil, err
	}
	hostKey, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         c.cfg.DialTimeout,
	}

	conn, err := net.DialTimeout("tcp", c.cfg.Addr(), c.cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, c.cfg.Addr(), err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.cfg.Addr(), sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ssh handshake: %v", ErrConnection, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("%w: open sftp subsystem: %v", ErrConnection, err)
	}
	return &Session{ssh: sshClient, sftp: sftpClient, log: c.log}, nil
}

func (c *Client) authMethods() ([]ssh.AuthMethod, error) {
	if c.cfg.PrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(c.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key: %v", ErrConnection, err)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: parse private key: %v", ErrConnection, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	if c.cfg.Password != "" {
		return []ssh.AuthMethod{ssh.Password(c.cfg.Password)}, nil
	}
	return nil, fmt.Errorf("%w: no credentials configured (BSA_PRIVATE_KEY_PATH or BSA_PASSWORD)", ErrConnection)
}

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(c.cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("%w: load known hosts: %v", ErrConnection, err)
		}
		return cb, nil
	}
	c.log.Warn().Msg("bsa: host key verification disabled; set BSA_KNOWN_HOSTS_PATH outside development")
	return ssh.InsecureIgnoreHostKey(), nil
}

// Session is one open SFTP connection.
type Session struct {
	ssh  *ssh.Client
	sftp *sftp.Client
	log  *logger.Logger
}

// Close releases the connection. Safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var first error
	if s.sftp != nil {
		first = s.sftp.Close()
		s.sftp = nil
	}
	if s.ssh != nil {
		if err := s.ssh.Close(); err != nil && first == nil {
			first = err
		}
		s.ssh = nil
	}
	return first
}

// Upload writes data to dir/name and verifies the remote size matches the
// bytes sent before declaring success. A short write is a remote-file error:
// the caller must not assume the document was delivered.
func (s *Session) Upload(dir, name string, data []byte) error {
	remote := path.Join(dir, name)
	f, err := s.sftp.Create(remote)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrRemoteFile, remote, err)
	}
	n, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("%w: write %s: %v", ErrConnection, remote, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w: close %s: %v", ErrConnection, remote, cerr)
	}
	if n != len(data) {
		return fmt.Errorf("%w: short write to %s: %d of %d bytes", ErrRemoteFile, remote, n, len(data))
	}
	info, err := s.sftp.Stat(remote)
	if err != nil {
		return fmt.Errorf("%w: stat after upload %s: %v", ErrRemoteFile, remote, err)
	}
	if info.Size() != int64(len(data)) {
		return fmt.Errorf("%w: size mismatch for %s: remote %d, sent %d",
			ErrRemoteFile, remote, info.Size(), len(data))
	}
	s.log.Debug().Str("remote", remote).Int("bytes", len(data)).Msg("bsa: upload verified")
	return nil
}

// List returns the filenames (not paths) in dir, directories excluded.
func (s *Session) List(dir string) ([]string, error) {
	infos, err := s.sftp.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrRemoteFile, dir, err)
	}
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	return names, nil
}

// Download reads dir/name, bounded to maxResponseSize.
func (s *Session) Download(dir, name string) ([]byte, error) {
	remote := path.Join(dir, name)
	f, err := s.sftp.Open(remote)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRemoteFile, remote, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConnection, remote, err)
	}
	return data, nil
}

// Exists checks for dir/name on the remote. Used after ambiguous upload
// failures: the safe action is to re-check rather than blindly re-upload.
func (s *Session) Exists(dir, name string) (bool, error) {
	_, err := s.sftp.Stat(path.Join(dir, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s: %v", ErrRemoteFile, path.Join(dir, name), err)
}
