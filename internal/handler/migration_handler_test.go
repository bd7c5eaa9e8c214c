package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassandra-migration/config"
	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/engine"
)

// mockService はテスト用のモックサービス。
type mockService struct {
	result *engine.Result
	err    error
}

func (m *mockService) Info(ctx context.Context) (*engine.Result, error) {
	return m.result, m.err
}

func (m *mockService) Validate(ctx context.Context) (*engine.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, m.result.Validate()
}

func resolved(version string) domain.ResolvedMigration {
	return domain.ResolvedMigration{
		Version:     domain.MustParseVersion(version),
		Description: "create table " + version,
		Script:      "V" + version + "__create.cql",
		Checksum:    domain.Checksum(42),
		Type:        domain.MigrationTypeCQL,
	}
}

func applied(version string, rank int) domain.AppliedMigration {
	return domain.AppliedMigration{
		Version:       domain.MustParseVersion(version),
		Description:   "create table " + version,
		Type:          domain.MigrationTypeCQL,
		Script:        "V" + version + "__create.cql",
		Checksum:      domain.Checksum(42),
		InstalledRank: rank,
		InstalledOn:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		InstalledBy:   "deployer",
		ExecutionTime: 15,
		Success:       true,
	}
}

func reconcile(t *testing.T, res []domain.ResolvedMigration, app []domain.AppliedMigration) *engine.Result {
	t.Helper()
	result, err := engine.Reconcile(res, app, engine.Options{})
	require.NoError(t, err)
	return result
}

func serve(t *testing.T, service MigrationQuerier, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewMigrationHandler(service), &config.Config{})
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestMigrationHandler_Healthz(t *testing.T) {
	rec := serve(t, &mockService{}, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMigrationHandler_ListMigrations(t *testing.T) {
	result := reconcile(t,
		[]domain.ResolvedMigration{resolved("1"), resolved("2")},
		[]domain.AppliedMigration{applied("1", 1)},
	)

	rec := serve(t, &mockService{result: result}, http.MethodGet, "/v1/migrations")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MigrationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.Current)
	require.Len(t, resp.Migrations, 2)

	first := resp.Migrations[0]
	assert.Equal(t, "SUCCESS", first.State)
	assert.Equal(t, "deployer", first.InstalledBy)
	assert.Equal(t, "2024-03-01T09:00:00Z", first.InstalledOn)
	assert.Equal(t, 15, first.ExecutionTime)
	require.NotNil(t, first.Checksum)
	assert.Equal(t, int32(42), *first.Checksum)

	second := resp.Migrations[1]
	assert.Equal(t, "PENDING", second.State)
	assert.Empty(t, second.InstalledOn)
}

func TestMigrationHandler_ListPendingMigrations(t *testing.T) {
	result := reconcile(t,
		[]domain.ResolvedMigration{resolved("1"), resolved("2"), resolved("3")},
		[]domain.AppliedMigration{applied("1", 1)},
	)

	rec := serve(t, &mockService{result: result}, http.MethodGet, "/v1/migrations/pending")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp MigrationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Migrations, 2)
	assert.Equal(t, "2", resp.Migrations[0].Version)
	assert.Equal(t, "3", resp.Migrations[1].Version)
}

func TestMigrationHandler_ValidateMigrations(t *testing.T) {
	valid := reconcile(t, []domain.ResolvedMigration{resolved("1")}, []domain.AppliedMigration{applied("1", 1)})
	rec := serve(t, &mockService{result: valid}, http.MethodPost, "/v1/migrations/validate")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true,"findings":[]}`, rec.Body.String())

	// 台帳にあってローカルにないバージョン
	invalid := reconcile(t,
		[]domain.ResolvedMigration{resolved("2")},
		[]domain.AppliedMigration{applied("1", 1), applied("2", 2)},
	)
	rec = serve(t, &mockService{result: invalid}, http.MethodPost, "/v1/migrations/validate")
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, "1", resp.Findings[0].Version)
	assert.Equal(t, "MISSING_SUCCESS", resp.Findings[0].State)
}

func TestMigrationHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name: "checksum mismatch",
			err: &domain.ChecksumMismatchError{
				Version:  domain.MustParseVersion("2"),
				Resolved: domain.Checksum(1),
				Applied:  domain.Checksum(2),
			},
			status: http.StatusInternalServerError,
			code:   "CHECKSUM_MISMATCH",
		},
		{
			name:   "version conflict",
			err:    &domain.VersionConflictError{Version: domain.MustParseVersion("1"), First: "a", Second: "b"},
			status: http.StatusInternalServerError,
			code:   "VERSION_CONFLICT",
		},
		{
			name:   "discovery failure",
			err:    &domain.DiscoveryError{Location: "filesystem:/x", Err: errors.New("permission denied")},
			status: http.StatusInternalServerError,
			code:   "DISCOVERY_FAILURE",
		},
		{
			name:   "ledger unavailable",
			err:    fmt.Errorf("failed to fetch applied migrations: %w", domain.ErrLedgerUnavailable),
			status: http.StatusServiceUnavailable,
			code:   "LEDGER_UNAVAILABLE",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/v1/migrations", "/v1/migrations/pending"} {
				rec := serve(t, &mockService{err: tt.err}, http.MethodGet, path)
				assert.Equal(t, tt.status, rec.Code)

				var resp struct {
					Code string `json:"code"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.code, resp.Code)
			}

			rec := serve(t, &mockService{err: tt.err}, http.MethodPost, "/v1/migrations/validate")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
