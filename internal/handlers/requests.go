package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"changemgmt/db"
	"changemgmt/internal/auth"
	"changemgmt/internal/metrics"
	"changemgmt/models"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

const (
	msgCreated      = "Request Created Successfully"
	msgUpdated      = "Request Updated Successfully"
	msgDeleted      = "Request Deleted Successfully"
	msgLoadListErr  = "An error occurred while loading requests."
	msgLoadOneErr   = "An error occurred while loading the request."
	msgDetailsErr   = "An error occurred while loading request details."
	msgCreateErr    = "An error occurred while creating the request."
	msgUpdateErr    = "An error occurred while updating the request."
	msgDeleteErr    = "An error occurred while deleting the request."
	msgGetAllErr    = "An error occurred while retrieving requests."
	requestBasePath = "/Request"
)

// requestID reads the {id} path parameter. Missing, malformed and
// non-positive ids all report false.
func requestID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func statusFilter(r *http.Request) models.Status {
	return models.Status(r.URL.Query().Get("status"))
}

// loadRequest fetches the request named by the path. It writes the 404 or
// error response itself and returns nil in that case.
func (h *Handler) loadRequest(w http.ResponseWriter, r *http.Request, op string, f db.RequestFilter) *models.Request {
	id, ok := requestID(r)
	if !ok {
		h.log.WithField("operation", op).Warn("called with missing or invalid id")
		h.metrics.IncOperation(op, metrics.OutcomeNotFound)
		h.NotFoundHandler(w, r)
		return nil
	}
	f.ID = id
	req, err := h.Store.GetRequest(r.Context(), f)
	if errors.Is(err, db.ErrNotFound) {
		h.log.WithFields(logrus.Fields{"operation": op, "id": id}).Warn("request not found")
		h.metrics.IncOperation(op, metrics.OutcomeNotFound)
		h.NotFoundHandler(w, r)
		return nil
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"operation": op, "id": id}).Error("load request")
		h.metrics.IncOperation(op, metrics.OutcomeError)
		h.setFlash(w, "error", msgLoadOneErr)
		http.Redirect(w, r, requestBasePath, http.StatusSeeOther)
		return nil
	}
	return req
}

// ListRequestsHandler renders every request, newest first.
func (h *Handler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	status := statusFilter(r)
	data := &pageData{
		Title:        "Change Requests",
		StatusFilter: string(status),
		Statuses:     models.Statuses,
	}
	requests, err := h.Store.GetRequests(r.Context(), db.RequestFilter{Status: status, Order: db.OrderByDateDesc})
	if err != nil {
		h.log.WithError(err).Error("list requests")
		h.metrics.IncOperation("list", metrics.OutcomeError)
		data.Flash = &flash{Kind: "error", Message: msgLoadListErr}
		h.render(w, r, http.StatusInternalServerError, "request_index", data)
		return
	}
	h.metrics.IncOperation("list", metrics.OutcomeSuccess)
	data.Requests = requests
	h.render(w, r, http.StatusOK, "request_index", data)
}

// GetAllRequestsHandler is the JSON listing behind the request table.
func (h *Handler) GetAllRequestsHandler(w http.ResponseWriter, r *http.Request) {
	requests, err := h.Store.GetRequests(r.Context(), db.RequestFilter{Status: statusFilter(r), Order: db.OrderByDateDesc})
	if err != nil {
		h.log.WithError(err).Error("get all requests")
		h.metrics.IncOperation("get_all", metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgGetAllErr})
		return
	}
	h.metrics.IncOperation("get_all", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, listEnvelope{Data: requests})
}

func (h *Handler) formPage(title, action string, form *RequestForm, errs fieldErrors, canDecide bool) *pageData {
	return &pageData{
		Title:      title,
		Form:       form,
		FormAction: action,
		Errors:     errs,
		CanDecide:  canDecide,
		Priorities: models.Priorities,
		Statuses:   models.Statuses,
	}
}

// CreateRequestFormHandler renders an empty request form.
func (h *Handler) CreateRequestFormHandler(w http.ResponseWriter, r *http.Request) {
	form := &RequestForm{Priority: string(models.PriorityMedium)}
	h.render(w, r, http.StatusOK, "request_form", h.formPage("Create Request", "/Request/Create", form, nil, false))
}

// CreateRequestHandler validates and stores a new request. Status, dates,
// decision fields and submitter are set by the server.
func (h *Handler) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	const op = "create"
	p, _ := auth.PrincipalFrom(r.Context())

	var form RequestForm
	if err := h.decodeForm(w, r, &form); err != nil {
		h.metrics.IncOperation(op, metrics.OutcomeInvalid)
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	if form.Priority == "" {
		form.Priority = string(models.PriorityMedium)
	}

	req := models.Request{
		Status:      models.StatusPending,
		Date:        h.now(),
		SubmittedBy: p.Username,
	}
	form.applyContent(&req)

	if errs := h.validateRequest(&req); len(errs) > 0 {
		h.log.WithField("user", p.Username).Warn("invalid create request submission")
		h.metrics.IncOperation(op, metrics.OutcomeInvalid)
		h.render(w, r, http.StatusUnprocessableEntity, "request_form",
			h.formPage("Create Request", "/Request/Create", &form, errs, false))
		return
	}

	uow := h.Store.NewUnitOfWork()
	uow.Add(&req)
	if err := uow.Save(r.Context()); err != nil {
		h.log.WithError(err).WithField("user", p.Username).Error("create request")
		h.metrics.IncOperation(op, metrics.OutcomeError)
		data := h.formPage("Create Request", "/Request/Create", &form, nil, false)
		data.Flash = &flash{Kind: "error", Message: msgCreateErr}
		h.render(w, r, http.StatusInternalServerError, "request_form", data)
		return
	}

	h.log.WithFields(logrus.Fields{"user": p.Username, "id": req.ID, "title": req.Title}).Info("request created")
	h.metrics.IncOperation(op, metrics.OutcomeSuccess)
	h.setFlash(w, "success", msgCreated)
	http.Redirect(w, r, requestBasePath, http.StatusSeeOther)
}

// canEdit applies the edit policy: admins edit anything, employees only
// their own requests while still Pending.
func canEdit(p *auth.Principal, req *models.Request) bool {
	if p.IsAdmin() {
		return true
	}
	return p.HasRole(models.RoleEmployee) &&
		req.SubmittedBy == p.Username &&
		req.Status == models.StatusPending
}

// EditRequestFormHandler renders the edit form for an existing request.
func (h *Handler) EditRequestFormHandler(w http.ResponseWriter, r *http.Request) {
	req := h.loadRequest(w, r, "edit", db.RequestFilter{})
	if req == nil {
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	if !canEdit(p, req) {
		h.metrics.IncOperation("edit", metrics.OutcomeForbidden)
		h.AccessDeniedHandler(w, r)
		return
	}
	action := "/Request/Edit/" + strconv.Itoa(req.ID)
	h.render(w, r, http.StatusOK, "request_form", h.formPage("Edit Request", action, formFromRequest(req), nil, p.IsAdmin()))
}

// EditRequestHandler replaces the stored request with the submitted one.
// Id, Date and SubmittedBy always keep their stored values; decision fields
// are only taken from admins.
func (h *Handler) EditRequestHandler(w http.ResponseWriter, r *http.Request) {
	const op = "edit"
	stored := h.loadRequest(w, r, op, db.RequestFilter{})
	if stored == nil {
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	if !canEdit(p, stored) {
		h.log.WithFields(logrus.Fields{"user": p.Username, "id": stored.ID}).Info("edit denied")
		h.metrics.IncOperation(op, metrics.OutcomeForbidden)
		h.AccessDeniedHandler(w, r)
		return
	}

	var form RequestForm
	if err := h.decodeForm(w, r, &form); err != nil {
		h.metrics.IncOperation(op, metrics.OutcomeInvalid)
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}

	updated := *stored
	form.applyContent(&updated)

	var errs fieldErrors
	if p.IsAdmin() {
		errs = form.applyDecision(&updated, stored.AdminApprovalDate)
		newDecision := updated.Status != stored.Status &&
			sameInstant(updated.AdminApprovalDate, stored.AdminApprovalDate)
		switch {
		case updated.Status == models.StatusPending:
			updated.AdminApprovalDate = nil
		case updated.Status.Decided() && (updated.AdminApprovalDate == nil || newDecision):
			now := h.now()
			updated.AdminApprovalDate = &now
		}
	}

	action := "/Request/Edit/" + strconv.Itoa(stored.ID)
	if errs = mergeErrors(h.validateRequest(&updated), errs); len(errs) > 0 {
		h.metrics.IncOperation(op, metrics.OutcomeInvalid)
		h.render(w, r, http.StatusUnprocessableEntity, "request_form", h.formPage("Edit Request", action, &form, errs, p.IsAdmin()))
		return
	}

	uow := h.Store.NewUnitOfWork()
	uow.Update(&updated)
	if err := uow.Save(r.Context()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.metrics.IncOperation(op, metrics.OutcomeNotFound)
			h.NotFoundHandler(w, r)
			return
		}
		h.log.WithError(err).WithField("id", stored.ID).Error("update request")
		h.metrics.IncOperation(op, metrics.OutcomeError)
		data := h.formPage("Edit Request", action, &form, nil, p.IsAdmin())
		data.Flash = &flash{Kind: "error", Message: msgUpdateErr}
		h.render(w, r, http.StatusInternalServerError, "request_form", data)
		return
	}

	h.log.WithFields(logrus.Fields{"user": p.Username, "id": updated.ID, "status": updated.Status}).Info("request updated")
	h.metrics.IncOperation(op, metrics.OutcomeSuccess)

	if updated.Status.Decided() && updated.Status != stored.Status {
		h.notifySubmitter(r, &updated)
	}

	h.setFlash(w, "success", msgUpdated)
	http.Redirect(w, r, requestBasePath, http.StatusSeeOther)
}

// notifySubmitter emails the submitter about a new decision. Lookup and
// delivery failures are logged only.
func (h *Handler) notifySubmitter(r *http.Request, req *models.Request) {
	if h.notifier == nil {
		return
	}
	u, err := h.Store.GetUserByUsername(r.Context(), req.SubmittedBy)
	if err != nil {
		h.log.WithError(err).WithField("user", req.SubmittedBy).Warn("cannot notify submitter")
		return
	}
	h.notifier.NotifyDecision(r.Context(), u.Email, req)
}

// RequestDetailsHandler renders a read-only view of one request.
func (h *Handler) RequestDetailsHandler(w http.ResponseWriter, r *http.Request) {
	req := h.loadRequest(w, r, "details", db.RequestFilter{})
	if req == nil {
		return
	}
	h.metrics.IncOperation("details", metrics.OutcomeSuccess)
	h.render(w, r, http.StatusOK, "request_details", &pageData{Title: req.Title, Request: req, BasePath: requestBasePath})
}

// DeleteRequestFormHandler renders the delete confirmation page.
func (h *Handler) DeleteRequestFormHandler(w http.ResponseWriter, r *http.Request) {
	req := h.loadRequest(w, r, "delete", db.RequestFilter{})
	if req == nil {
		return
	}
	h.render(w, r, http.StatusOK, "request_delete", &pageData{Title: "Delete Request", Request: req})
}

// DeleteRequestHandler permanently removes a request.
func (h *Handler) DeleteRequestHandler(w http.ResponseWriter, r *http.Request) {
	const op = "delete"
	req := h.loadRequest(w, r, op, db.RequestFilter{})
	if req == nil {
		return
	}

	uow := h.Store.NewUnitOfWork()
	uow.Remove(req)
	if err := uow.Save(r.Context()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.metrics.IncOperation(op, metrics.OutcomeNotFound)
			h.NotFoundHandler(w, r)
			return
		}
		h.log.WithError(err).WithField("id", req.ID).Error("delete request")
		h.metrics.IncOperation(op, metrics.OutcomeError)
		h.setFlash(w, "error", msgDeleteErr)
		http.Redirect(w, r, requestBasePath, http.StatusSeeOther)
		return
	}

	p, _ := auth.PrincipalFrom(r.Context())
	h.log.WithFields(logrus.Fields{"user": p.Username, "id": req.ID}).Info("request deleted")
	h.metrics.IncOperation(op, metrics.OutcomeSuccess)
	h.setFlash(w, "success", msgDeleted)
	http.Redirect(w, r, requestBasePath, http.StatusSeeOther)
}
