package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/innointernhub/backend/api/middleware"
	"github.com/innointernhub/backend/api/responses"
	"github.com/innointernhub/backend/api/validators"
	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/logger"
)

type auditLister interface {
	List(ctx context.Context, actor auth.Principal, params audit.ListParams) (*audit.ListResult, error)
}

// RevokeCertificateRequest is the admin revoke body. The reason is optional.
type RevokeCertificateRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// AdminListCertificates lists every certificate with an optional status filter.
func AdminListCertificates(svc certificates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := certificates.AdminListParams{Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseCertificateStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			params.Status = &status
		}

		result, err := svc.AdminList(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminRevokeCertificate moves an issued certificate to revoked.
func AdminRevokeCertificate(svc certificates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "certificateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body RevokeCertificateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Revoke(r.Context(), middleware.PrincipalFromContext(r.Context()), id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// AdminListAuditLogs lists audit rows filtered by entity type and action.
func AdminListAuditLogs(svc auditLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := audit.ListParams{Params: page}
		if raw := strings.TrimSpace(r.URL.Query().Get("entity")); raw != "" {
			entity, err := enums.ParseAuditEntity(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity filter"))
				return
			}
			params.Entity = &entity
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action, err := enums.ParseAuditAction(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action filter"))
				return
			}
			params.Action = &action
		}

		result, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
