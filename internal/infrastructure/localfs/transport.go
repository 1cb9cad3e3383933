// Package localfs is the development stand-in for the remote file-transfer
// endpoint: the same session surface as the SFTP client, backed by a local
// directory tree. Drop response files into the acknowledgments subdirectory
// to exercise the reconciliation path end to end without network access.
package localfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tu-usuario/filing-pro/pkg/logger"
)

// Transport creates sessions rooted at a base directory. Remote directory
// paths ("/submissions") map to subdirectories of the base.
type Transport struct {
	base string
	log  *logger.Logger
}

// New builds the transport. The base directory is created on first use.
func New(base string, log *logger.Logger) *Transport {
	return &Transport{base: base, log: log}
}

// Connect returns a session. There is no real connection; this exists to
// match the remote transport's acquire/release shape.
func (t *Transport) Connect(_ context.Context) (*Session, error) {
	if err := os.MkdirAll(t.base, 0o755); err != nil {
		return nil, fmt.Errorf("create local transport dir: %w", err)
	}
	return &Session{base: t.base, log: t.log}, nil
}

// Session is one scoped use of the local directory tree.
type Session struct {
	base string
	log  *logger.Logger
}

func (s *Session) Close() error { return nil }

func (s *Session) path(dir, name string) string {
	return filepath.Join(s.base, filepath.FromSlash(dir), name)
}

// Upload writes the file and verifies the size on disk, mirroring the remote
// client's post-upload check.
func (s *Session) Upload(dir, name string, data []byte) error {
	path := s.path(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	if info.Size() != int64(len(data)) {
		return fmt.Errorf("size mismatch on %s: wrote %d, found %d", name, len(data), info.Size())
	}
	s.log.Debug().Str("file", path).Int("bytes", len(data)).Msg("local upload")
	return nil
}

// List returns the file names in dir; a missing dir is an empty listing.
func (s *Session) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.base, filepath.FromSlash(dir)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *Session) Download(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(dir, name))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return data, nil
}

func (s *Session) Exists(dir, name string) (bool, error) {
	_, err := os.Stat(s.path(dir, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
