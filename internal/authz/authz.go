// Package authz answers the "may this principal do X and see Y" question
// for the report API. Principals live in a directory of entries (name,
// roles, visible sheets, API token digest) backed either by a static JSON
// file or by a Google Sheets spreadsheet maintained by operations staff.
//
// An empty directory enforces nothing: every request is allowed and sees
// every sheet. Provisioning the first entry turns enforcement on, so
// zero-config development works while production stays locked down.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
)

// Roles understood by the API. Admin implies every other role.
const (
	RoleViewer   = "viewer"
	RoleUploader = "uploader"
	RoleAdmin    = "admin"
)

// SheetWildcard in a sheet set grants access to every sheet.
const SheetWildcard = "*"

var (
	// ErrInvalidToken means the presented API token matched no enabled entry.
	ErrInvalidToken = errors.New("invalid API token")
	// ErrUnknownPrincipal means the directory has no entry for the principal.
	ErrUnknownPrincipal = errors.New("unknown principal")
)

// Authorizer resolves API tokens to principals and answers role and
// sheet-visibility questions about them.
type Authorizer interface {
	// Identify resolves a presented API token to its principal name.
	Identify(ctx context.Context, token string) (string, error)
	// Allowed reports whether the principal holds the role.
	Allowed(ctx context.Context, principal, role string) (bool, error)
	// SheetSet returns the sheets the principal may see.
	SheetSet(ctx context.Context, principal string) (SheetSet, error)
}

// SheetSet is the set of report sheet names a principal may see.
type SheetSet map[string]struct{}

// NewSheetSet builds a set from explicit names.
func NewSheetSet(names ...string) SheetSet {
	s := make(SheetSet, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			s[name] = struct{}{}
		}
	}
	return s
}

// ParseSheetSet parses a comma-separated sheet list as stored in the
// directory. "*" anywhere in the list grants everything.
func ParseSheetSet(raw string) SheetSet {
	return NewSheetSet(strings.Split(raw, ",")...)
}

// All reports whether the set carries the wildcard.
func (s SheetSet) All() bool {
	_, ok := s[SheetWildcard]
	return ok
}

// Contains reports whether the named sheet is visible.
func (s SheetSet) Contains(name string) bool {
	if s.All() {
		return true
	}
	_, ok := s[name]
	return ok
}

// Names returns the explicit sheet names, sorted.
func (s SheetSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry is one directory row. Principal names must not contain "." since
// API tokens are formed as "principal.secret".
type Entry struct {
	Principal   string   `json:"principal"`
	Roles       []string `json:"roles"`
	Sheets      string   `json:"sheets"`
	TokenDigest string   `json:"token_digest"`
	Disabled    bool     `json:"disabled,omitempty"`
}

// HasRole reports whether the entry grants the role, directly or through
// the admin role.
func (e Entry) HasRole(role string) bool {
	for _, r := range e.Roles {
		if r == role || r == RoleAdmin {
			return true
		}
	}
	return false
}

// New selects a directory implementation from configuration.
func New(ctx context.Context, cfg config.AuthzConfig, paths *config.Paths, logger *slog.Logger) (Authorizer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case "static":
		return NewStaticFromFile(paths.GetTokensPath(), cfg.CacheTTL, logger)
	case "sheets":
		return NewSheetsDirectory(ctx, cfg, paths.GetCredentialsPath(), logger)
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unknown authz mode: %s", cfg.Mode), nil)
	}
}
