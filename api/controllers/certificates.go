package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/innointernhub/backend/api/middleware"
	"github.com/innointernhub/backend/api/responses"
	"github.com/innointernhub/backend/api/validators"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/logger"
)

type certificateVerifier interface {
	Verify(ctx context.Context, certificateNo string) certificates.VerificationResult
}

// ListMyCertificates returns the caller's certificates, newest first.
func ListMyCertificates(svc certificates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListMine(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DownloadCertificate streams the rendered PDF to its subject or an admin.
func DownloadCertificate(svc certificates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathUUID(r, "certificateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		doc, err := svc.Download(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, doc.ContentType, doc.Filename, doc.Content)
	}
}

// VerifyCertificate is the public lookup. It always answers with the
// success envelope; only the status code tells found from not found.
func VerifyCertificate(verifier certificateVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification unavailable"))
			return
		}
		result := verifier.Verify(r.Context(), chi.URLParam(r, "certificateNo"))
		status := http.StatusOK
		if result.Status == enums.VerificationNotFound {
			status = http.StatusNotFound
		}
		w.Header().Set("Cache-Control", "no-store")
		responses.WriteSuccessStatus(w, status, result)
	}
}
