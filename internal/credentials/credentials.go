// Package credentials materializes the configured cookie blob into a private
// temporary file for the duration of one extraction attempt.
package credentials

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"

	"mediarelay/internal/fileutil"
	"mediarelay/internal/services"
)

// Scope owns one materialized cookie file. A zero Scope (no credentials
// configured) is valid and has an empty Path.
type Scope struct {
	path string
	once sync.Once
	err  error
}

// Path returns the cookie file location, or "" when no credentials apply.
func (s *Scope) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close removes the cookie file. Safe to call more than once.
func (s *Scope) Close() error {
	if s == nil || s.path == "" {
		return nil
	}
	s.once.Do(func() {
		s.err = fileutil.RemoveIfExists(s.path)
	})
	return s.err
}

// Materialize decodes blob and writes it to a freshly created file under dir.
// Each call yields a distinct file with owner-only permissions. An empty blob
// returns an empty scope and no error.
func Materialize(dir, blob string) (*Scope, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return &Scope{}, nil
	}
	decoded, err := decode(blob)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "credentials", "decode", "cookie blob is not valid base64", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, services.Wrap(services.ErrTransient, "credentials", "prepare", "create credential directory", err)
	}
	file, err := os.CreateTemp(dir, "cookies-*.txt")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "credentials", "create", "create cookie file", err)
	}
	scope := &Scope{path: file.Name()}
	if err := file.Chmod(0o600); err != nil {
		_ = file.Close()
		_ = scope.Close()
		return nil, services.Wrap(services.ErrTransient, "credentials", "chmod", "restrict cookie file", err)
	}
	if _, err := file.Write(decoded); err != nil {
		_ = file.Close()
		_ = scope.Close()
		return nil, services.Wrap(services.ErrTransient, "credentials", "write", "write cookie file", err)
	}
	if err := file.Close(); err != nil {
		_ = scope.Close()
		return nil, services.Wrap(services.ErrTransient, "credentials", "close", "flush cookie file", err)
	}
	return scope, nil
}

func decode(blob string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if decoded, err := enc.DecodeString(blob); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("unrecognized base64 alphabet or padding")
}
