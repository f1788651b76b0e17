// Package sqlite is the default credential.Store, backed by a local
// SQLite file (modernc.org/sqlite, a pure-Go driver so the binary stays
// cgo-free).
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/agentcloak/mailproxy/credential"
	"github.com/agentcloak/mailproxy/types"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("credential sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create credential db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize credential schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateConnection registers a new provider connection. It is not part
// of credential.Store (presenters never create connections) but is
// needed by operator tooling and by this package's own tests.
func (s *Store) CreateConnection(ctx context.Context, providerType string, creds map[string]string) (string, error) {
	if strings.TrimSpace(providerType) == "" {
		return "", fmt.Errorf("provider type is required")
	}
	blob, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("encode connection credentials: %w", err)
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	const q = `INSERT INTO connections (id, provider_type, credentials_json, created_at) VALUES (?, ?, ?, ?);`
	if _, err := s.db.ExecContext(ctx, q, id, providerType, string(blob), now); err != nil {
		return "", fmt.Errorf("create connection: %w", err)
	}
	return id, nil
}

// SetFilterConfig stores connectionID's policy, overwriting any prior
// value.
func (s *Store) SetFilterConfig(ctx context.Context, connectionID string, cfg types.FilterConfig) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode filter config: %w", err)
	}
	const q = `INSERT INTO filter_configs (connection_id, config_json) VALUES (?, ?)
		ON CONFLICT(connection_id) DO UPDATE SET config_json = excluded.config_json;`
	if _, err := s.db.ExecContext(ctx, q, connectionID, string(blob)); err != nil {
		return fmt.Errorf("set filter config: %w", err)
	}
	return nil
}

func (s *Store) CreateCredential(ctx context.Context, connectionID string) (string, string, error) {
	if strings.TrimSpace(connectionID) == "" {
		return "", "", fmt.Errorf("connection id is required")
	}
	secret, err := generateSecret()
	if err != nil {
		return "", "", err
	}
	bearer := credential.BearerPrefix + secret
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	const q = `INSERT INTO credentials (id, connection_id, bearer_hash, created_at) VALUES (?, ?, ?, ?);`
	if _, err := s.db.ExecContext(ctx, q, id, connectionID, credential.HashBearer(bearer), now); err != nil {
		return "", "", fmt.Errorf("create credential: %w", err)
	}
	return id, bearer, nil
}

func (s *Store) ResolveCredential(ctx context.Context, bearerHash string) (credential.Credential, error) {
	const q = `
SELECT id, connection_id, revoked_at, created_at, last_used_at
FROM credentials
WHERE bearer_hash = ?;
`
	var (
		c          credential.Credential
		revokedRaw sql.NullString
		createdRaw string
		lastRaw    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, q, bearerHash).Scan(&c.ID, &c.ConnectionID, &revokedRaw, &createdRaw, &lastRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credential.Credential{}, fmt.Errorf("unknown credential")
		}
		return credential.Credential{}, fmt.Errorf("resolve credential: %w", err)
	}
	c.Revoked = revokedRaw.Valid
	c.CreatedAt = parseTime(createdRaw)
	if lastRaw.Valid {
		t := parseTime(lastRaw.String)
		c.LastUsedAt = &t
	}
	return c, nil
}

func (s *Store) GetConnection(ctx context.Context, connectionID string) (credential.Connection, error) {
	const q = `SELECT provider_type, credentials_json FROM connections WHERE id = ?;`
	var (
		providerType string
		blob         string
	)
	if err := s.db.QueryRowContext(ctx, q, connectionID).Scan(&providerType, &blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credential.Connection{}, fmt.Errorf("unknown connection")
		}
		return credential.Connection{}, fmt.Errorf("get connection: %w", err)
	}
	creds := map[string]string{}
	if err := json.Unmarshal([]byte(blob), &creds); err != nil {
		return credential.Connection{}, fmt.Errorf("decode connection credentials: %w", err)
	}
	return credential.Connection{ID: connectionID, ProviderType: providerType, Credentials: creds}, nil
}

func (s *Store) GetFilterConfig(ctx context.Context, connectionID string) (*types.FilterConfig, error) {
	const q = `SELECT config_json FROM filter_configs WHERE connection_id = ?;`
	var blob string
	err := s.db.QueryRowContext(ctx, q, connectionID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get filter config: %w", err)
	}
	var cfg types.FilterConfig
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return nil, fmt.Errorf("decode filter config: %w", err)
	}
	return &cfg, nil
}

func (s *Store) TouchCredentialLastUsed(ctx context.Context, credentialID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `UPDATE credentials SET last_used_at = ? WHERE id = ?;`, now, credentialID)
	if err != nil {
		return fmt.Errorf("touch credential: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate credential secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

var _ credential.Store = (*Store)(nil)
