package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	apperrors "staffpulse/internal/errors"
)

// Static is a directory loaded once from a JSON token file. The file is an
// array of entries; a missing file yields an empty, non-enforcing
// directory so fresh installs work without provisioning.
type Static struct {
	directory
	entries []Entry
}

var _ Authorizer = (*Static)(nil)

// NewStaticFromFile loads the directory from the tokens file.
func NewStaticFromFile(path string, ttl time.Duration, logger *slog.Logger) (*Static, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn("Authorization tokens file not found, running without enforcement",
			slog.String("path", path),
		)
		return NewStatic(nil, ttl), nil
	}
	if err != nil {
		return nil, apperrors.NewConfigError("failed to read tokens file", err).
			WithContext("path", path)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to parse tokens file %s", path), err)
	}

	s := NewStatic(entries, ttl)
	logger.Info("Authorization directory loaded",
		slog.String("mode", "static"),
		slog.String("path", path),
		slog.Int("entries", len(s.entries)),
	)
	return s, nil
}

// NewStatic builds a directory from in-memory entries. Entries without a
// principal are dropped.
func NewStatic(entries []Entry, ttl time.Duration) *Static {
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Principal = strings.TrimSpace(entry.Principal)
		if entry.Principal == "" {
			continue
		}
		kept = append(kept, entry)
	}

	s := &Static{entries: kept}
	s.directory = newDirectory(s.load, ttl)
	return s
}

func (s *Static) load(ctx context.Context) ([]Entry, error) {
	return s.entries, nil
}
