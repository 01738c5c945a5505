package authz

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffpulse/internal/config"
	apperrors "staffpulse/internal/errors"
)

// Token minting runs scrypt, so the test directory is built once and
// shared across tests.
var testDir struct {
	once    sync.Once
	err     error
	entries []Entry
	tokens  map[string]string
}

func loadTestDirectory(t *testing.T) ([]Entry, map[string]string) {
	t.Helper()

	testDir.once.Do(func() {
		testDir.tokens = make(map[string]string)

		specs := []struct {
			principal string
			roles     []string
			sheets    string
			disabled  bool
		}{
			{"alice", []string{RoleViewer, RoleUploader}, "Chicago Branch,Dallas", false},
			{"bob", []string{RoleAdmin}, SheetWildcard, false},
			{"carol", []string{RoleViewer}, "Chicago Branch", true},
		}

		for _, spec := range specs {
			token, digest, err := MintToken(spec.principal)
			if err != nil {
				testDir.err = err
				return
			}
			testDir.tokens[spec.principal] = token
			testDir.entries = append(testDir.entries, Entry{
				Principal:   spec.principal,
				Roles:       spec.roles,
				Sheets:      spec.sheets,
				TokenDigest: digest,
				Disabled:    spec.disabled,
			})
		}
	})

	require.NoError(t, testDir.err)
	return testDir.entries, testDir.tokens
}

func TestStatic_Identify(t *testing.T) {
	ctx := context.Background()
	entries, tokens := loadTestDirectory(t)
	dir := NewStatic(entries, time.Minute)

	t.Run("valid token", func(t *testing.T) {
		principal, err := dir.Identify(ctx, tokens["alice"])
		require.NoError(t, err)
		assert.Equal(t, "alice", principal)

		// Second lookup is served from the verified cache.
		principal, err = dir.Identify(ctx, tokens["alice"])
		require.NoError(t, err)
		assert.Equal(t, "alice", principal)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := dir.Identify(ctx, "alice.0000000000000000")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown principal", func(t *testing.T) {
		_, err := dir.Identify(ctx, "mallory.deadbeef")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("disabled entry", func(t *testing.T) {
		_, err := dir.Identify(ctx, tokens["carol"])
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed tokens", func(t *testing.T) {
		for _, token := range []string{"", "nodots", ".secret", "alice."} {
			_, err := dir.Identify(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
		}
	})
}

func TestStatic_Allowed(t *testing.T) {
	ctx := context.Background()
	entries, _ := loadTestDirectory(t)
	dir := NewStatic(entries, time.Minute)

	tests := []struct {
		principal string
		role      string
		want      bool
	}{
		{"alice", RoleViewer, true},
		{"alice", RoleUploader, true},
		{"alice", RoleAdmin, false},
		{"bob", RoleViewer, true},
		{"bob", RoleUploader, true},
		{"bob", RoleAdmin, true},
		{"carol", RoleViewer, false},
	}

	for _, tt := range tests {
		got, err := dir.Allowed(ctx, tt.principal, tt.role)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s as %s", tt.principal, tt.role)
	}

	_, err := dir.Allowed(ctx, "mallory", RoleViewer)
	assert.ErrorIs(t, err, ErrUnknownPrincipal)
}

func TestStatic_SheetSet(t *testing.T) {
	ctx := context.Background()
	entries, _ := loadTestDirectory(t)
	dir := NewStatic(entries, time.Minute)

	t.Run("explicit sheet list", func(t *testing.T) {
		set, err := dir.SheetSet(ctx, "alice")
		require.NoError(t, err)

		assert.False(t, set.All())
		assert.True(t, set.Contains("Chicago Branch"))
		assert.True(t, set.Contains("Dallas"))
		assert.False(t, set.Contains("Austin"))
		assert.Equal(t, []string{"Chicago Branch", "Dallas"}, set.Names())
	})

	t.Run("wildcard", func(t *testing.T) {
		set, err := dir.SheetSet(ctx, "bob")
		require.NoError(t, err)

		assert.True(t, set.All())
		assert.True(t, set.Contains("Anything At All"))
	})

	t.Run("disabled entry sees nothing", func(t *testing.T) {
		set, err := dir.SheetSet(ctx, "carol")
		require.NoError(t, err)

		assert.False(t, set.All())
		assert.False(t, set.Contains("Chicago Branch"))
	})

	t.Run("unknown principal", func(t *testing.T) {
		_, err := dir.SheetSet(ctx, "mallory")
		assert.ErrorIs(t, err, ErrUnknownPrincipal)
	})
}

func TestStatic_OpenMode(t *testing.T) {
	ctx := context.Background()
	dir := NewStatic(nil, time.Minute)

	principal, err := dir.Identify(ctx, "whatever.token")
	require.NoError(t, err)
	assert.Empty(t, principal)

	allowed, err := dir.Allowed(ctx, "", RoleAdmin)
	require.NoError(t, err)
	assert.True(t, allowed)

	set, err := dir.SheetSet(ctx, "")
	require.NoError(t, err)
	assert.True(t, set.All())
}

func TestNewStatic_DropsBlankPrincipals(t *testing.T) {
	dir := NewStatic([]Entry{
		{Principal: "  "},
		{Principal: "alice", Roles: []string{RoleViewer}},
		{Principal: ""},
	}, time.Minute)

	allowed, err := dir.Allowed(context.Background(), "alice", RoleViewer)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = dir.Allowed(context.Background(), "", RoleViewer)
	assert.ErrorIs(t, err, ErrUnknownPrincipal)
}

func TestNewStaticFromFile(t *testing.T) {
	entries, _ := loadTestDirectory(t)

	t.Run("loads entries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "authz-tokens.json")
		data, err := json.Marshal(entries)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0600))

		dir, err := NewStaticFromFile(path, time.Minute, nil)
		require.NoError(t, err)

		allowed, err := dir.Allowed(context.Background(), "bob", RoleAdmin)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("missing file runs open", func(t *testing.T) {
		dir, err := NewStaticFromFile(filepath.Join(t.TempDir(), "nope.json"), time.Minute, nil)
		require.NoError(t, err)

		allowed, err := dir.Allowed(context.Background(), "anyone", RoleAdmin)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "authz-tokens.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewStaticFromFile(path, time.Minute, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse tokens file")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeConfig, appErr.Type)
	})
}

func TestNew_ModeSelection(t *testing.T) {
	ctx := context.Background()
	paths := &config.Paths{
		TokensFile:      filepath.Join(t.TempDir(), "authz-tokens.json"),
		CredentialsFile: filepath.Join(t.TempDir(), "credentials.json"),
	}

	t.Run("static", func(t *testing.T) {
		a, err := New(ctx, config.AuthzConfig{Mode: "static", CacheTTL: time.Minute}, paths, nil)
		require.NoError(t, err)
		assert.IsType(t, &Static{}, a)
	})

	t.Run("sheets without credentials file", func(t *testing.T) {
		cfg := config.AuthzConfig{Mode: "sheets", SpreadsheetID: "sheet-id", CacheTTL: time.Minute}
		_, err := New(ctx, cfg, paths, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read credentials file")
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := New(ctx, config.AuthzConfig{Mode: "ldap"}, paths, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown authz mode")
	})
}

func TestSheetSetHelpers(t *testing.T) {
	set := ParseSheetSet(" Chicago Branch , Dallas ,")
	assert.Equal(t, []string{"Chicago Branch", "Dallas"}, set.Names())
	assert.False(t, set.All())

	assert.True(t, ParseSheetSet("*").All())
	assert.True(t, ParseSheetSet("Chicago Branch,*").All())

	empty := NewSheetSet()
	assert.False(t, empty.All())
	assert.False(t, empty.Contains("Chicago Branch"))
	assert.Empty(t, empty.Names())
}

func TestEntry_HasRole(t *testing.T) {
	viewer := Entry{Roles: []string{RoleViewer}}
	assert.True(t, viewer.HasRole(RoleViewer))
	assert.False(t, viewer.HasRole(RoleUploader))

	admin := Entry{Roles: []string{RoleAdmin}}
	assert.True(t, admin.HasRole(RoleViewer))
	assert.True(t, admin.HasRole(RoleUploader))
	assert.True(t, admin.HasRole(RoleAdmin))

	assert.False(t, Entry{}.HasRole(RoleViewer))
}
