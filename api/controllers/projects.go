package controllers

import (
	"net/http"

	"github.com/innointernhub/backend/api/middleware"
	"github.com/innointernhub/backend/api/responses"
	"github.com/innointernhub/backend/api/validators"
	"github.com/innointernhub/backend/internal/projects"
	"github.com/innointernhub/backend/pkg/logger"
)

// CompleteProject marks the project completed and reports per-student issuance.
func CompleteProject(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := validators.ParsePathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Complete(r.Context(), middleware.PrincipalFromContext(r.Context()), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
