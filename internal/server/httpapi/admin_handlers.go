package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fundkeeper/internal/server/access"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/services"
)

func (a *API) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Admin.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) adminListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Users.ListUsers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (a *API) adminGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	u, err := a.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		a.fail(w, r, notFound("user", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) adminUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req userUpdateRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	u, err := a.svc.Users.UpdateUser(r.Context(), id, services.UserUpdate{Name: req.Name, Email: req.Email, Role: req.Role})
	if err != nil {
		a.fail(w, r, notFound("user", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (a *API) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "user")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	claims, err := access.RequireAuthenticated(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.svc.Users.DeleteUser(r.Context(), claims.UserID, id); err != nil {
		a.fail(w, r, notFound("user", err))
		return
	}
	a.logger.Info(r.Context(), "user deleted", "user_id", id, "by", claims.UserID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User deleted successfully"})
}

func (a *API) adminListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Projects.List(r.Context(), models.ProjectFilter{Status: models.ProjectStatus(r.URL.Query().Get("status"))})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (a *API) adminGetProject(w http.ResponseWriter, r *http.Request) {
	a.getProject(w, r)
}

func (a *API) adminUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req adminProjectRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.svc.Projects.AdminUpdate(r.Context(), id, req.input(), req.Status)
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (a *API) adminDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Projects.Delete(r.Context(), id); err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Project deleted successfully"})
}

func (a *API) adminSetProjectStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.svc.Projects.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (a *API) adminListContributions(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Funding.ListAll(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.ContributionDetail{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contributions": list})
}

func (a *API) adminReconciliation(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Funding.Reconcile(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []*models.ReconciliationRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"consistent": len(rows) == 0, "mismatches": rows})
}

func (a *API) adminGetSettings(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Settings.All(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make(map[string]string, len(list))
	for _, s := range list {
		out[s.Key] = s.Value
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) adminPutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	s, err := a.svc.Settings.Set(r.Context(), req.Key, *req.Value)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info(r.Context(), "setting updated", "key", s.Key, "value", s.Value)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "setting": s})
}
