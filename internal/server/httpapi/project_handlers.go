package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
)

const contributionThanks = "Thank you for your contribution!"

func (a *API) listProjects(w http.ResponseWriter, r *http.Request) {
	filter := models.ProjectFilter{Status: models.ProjectStatus(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			a.fail(w, r, &clientError{msg: "Invalid user ID", err: common.ErrorValidation})
			return
		}
		filter.UserID = id
	}

	list, err := a.svc.Projects.List(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": list})
}

func (a *API) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.svc.Projects.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (a *API) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.svc.Projects.Create(r.Context(), caller(r), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project": p, "message": "Project created successfully"})
}

func (a *API) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req projectRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.svc.Projects.Update(r.Context(), id, req.input())
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p})
}

func (a *API) startProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}

	p, err := a.svc.Projects.Start(r.Context(), id)
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"project": p, "message": "Project started successfully"})
}

func (a *API) contribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req contributeRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, &clientError{msg: common.ErrInvalidAmount.Error(), err: common.ErrInvalidAmount})
		return
	}

	receipt, err := a.svc.Funding.Contribute(r.Context(), caller(r), id, req.Amount)
	if err != nil {
		recordContribution("rejected", req.Amount)
		a.fail(w, r, notFound("project", err))
		return
	}
	recordContribution("committed", req.Amount)

	a.logger.Info(r.Context(), "contribution committed",
		"project_id", receipt.Project.ID,
		"contribution_id", receipt.Contribution.ID,
		"amount", receipt.Contribution.Amount.String(),
	)
	writeJSON(w, http.StatusCreated, receiptResponse{Success: true, Message: contributionThanks, ContributionReceipt: receipt})
}

func (a *API) uploadProjectImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if _, err := a.svc.Projects.Authorize(r.Context(), id); err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}

	upload, err := a.svc.Images.PresignUpload(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.Projects.SetImage(r.Context(), id, upload.Key); err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (a *API) projectImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "project")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.svc.Projects.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, notFound("project", err))
		return
	}
	if p.ImageURL == "" {
		a.fail(w, r, &clientError{msg: "project has no image", err: common.ErrorNotFound})
		return
	}

	url, err := a.svc.Images.ResolveURL(r.Context(), p.ImageURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *API) myContributions(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.Funding.ListForUser(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if list == nil {
		list = []*models.UserContribution{}
	}
	writeJSON(w, http.StatusOK, list)
}
