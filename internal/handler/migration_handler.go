// Package handler はHTTPハンドラを提供する。
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cassandra-migration/internal/domain"
	"cassandra-migration/internal/engine"
	"cassandra-migration/internal/middleware"
	"cassandra-migration/pkg/httputil"
)

// MigrationQuerier は照合結果を取得するインターフェース。
type MigrationQuerier interface {
	Info(ctx context.Context) (*engine.Result, error)
	Validate(ctx context.Context) (*engine.Result, error)
}

// MigrationHandler はマイグレーション状態を返すHTTPハンドラを提供する。
type MigrationHandler struct {
	service MigrationQuerier
}

// NewMigrationHandler は新しいMigrationHandlerを生成する。
func NewMigrationHandler(service MigrationQuerier) *MigrationHandler {
	return &MigrationHandler{service: service}
}

// MigrationResponse はマイグレーション1件のレスポンス形式。
type MigrationResponse struct {
	Version       string `json:"version"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	Script        string `json:"script"`
	Checksum      *int32 `json:"checksum"`
	State         string `json:"state"`
	InstalledOn   string `json:"installed_on,omitempty"`
	InstalledBy   string `json:"installed_by,omitempty"`
	ExecutionTime int    `json:"execution_time_ms"`
}

// MigrationListResponse はマイグレーション一覧のレスポンス形式。
type MigrationListResponse struct {
	Current    string              `json:"current,omitempty"`
	Migrations []MigrationResponse `json:"migrations"`
}

// FindingResponse は検証で見つかった問題のレスポンス形式。
type FindingResponse struct {
	Version string `json:"version"`
	State   string `json:"state"`
	Message string `json:"message"`
}

// ValidateResponse は検証結果のレスポンス形式。
type ValidateResponse struct {
	Valid    bool              `json:"valid"`
	Findings []FindingResponse `json:"findings"`
}

func toResponse(info domain.MigrationInfo) MigrationResponse {
	resp := MigrationResponse{
		Version:       info.Version().String(),
		Description:   info.Description(),
		Type:          string(info.Type()),
		Script:        info.Script(),
		Checksum:      info.Checksum(),
		State:         info.State.String(),
		ExecutionTime: info.ExecutionTime(),
	}
	if info.Applied != nil {
		resp.InstalledOn = info.InstalledOn().Format(time.RFC3339)
		resp.InstalledBy = info.Applied.InstalledBy
	}
	return resp
}

func toListResponse(result *engine.Result, infos []domain.MigrationInfo) MigrationListResponse {
	resp := MigrationListResponse{Migrations: make([]MigrationResponse, 0, len(infos))}
	if current := result.Current(); current != nil {
		resp.Current = current.Version().String()
	}
	for _, info := range infos {
		resp.Migrations = append(resp.Migrations, toResponse(info))
	}
	return resp
}

// Healthz は死活監視用のレスポンスを返す。
func (h *MigrationHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMigrations は全マイグレーションの状態を返す。
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Info(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toListResponse(result, result.All()))
}

// ListPendingMigrations は適用待ちのマイグレーションを返す。
func (h *MigrationHandler) ListPendingMigrations(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Info(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toListResponse(result, result.Pending()))
}

// ValidateMigrations はローカルと台帳の整合性を検証する。
func (h *MigrationHandler) ValidateMigrations(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Validate(r.Context())

	var validation *domain.ValidationError
	switch {
	case err == nil:
		middleware.WriteAuditLog(r.Context(), "VALIDATE", "", middleware.ResultSuccess)
		httputil.JSON(w, http.StatusOK, ValidateResponse{Valid: true, Findings: []FindingResponse{}})
	case errors.As(err, &validation):
		middleware.WriteAuditLog(r.Context(), "VALIDATE", "", middleware.ResultFailed)
		resp := ValidateResponse{Findings: make([]FindingResponse, 0, len(validation.Findings))}
		for _, f := range validation.Findings {
			resp.Findings = append(resp.Findings, FindingResponse{
				Version: f.Version.String(),
				State:   f.State.String(),
				Message: f.Message,
			})
		}
		httputil.JSON(w, http.StatusConflict, resp)
	default:
		middleware.WriteAuditLog(r.Context(), "VALIDATE", "", middleware.ResultFailed)
		writeServiceError(w, err)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChecksumMismatch):
		httputil.Error(w, http.StatusInternalServerError, "CHECKSUM_MISMATCH", err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		httputil.Error(w, http.StatusInternalServerError, "VERSION_CONFLICT", err.Error())
	case errors.Is(err, domain.ErrDiscoveryFailure):
		httputil.Error(w, http.StatusInternalServerError, "DISCOVERY_FAILURE", err.Error())
	case errors.Is(err, domain.ErrLedgerUnavailable):
		httputil.Error(w, http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE", "ledger is unavailable")
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
