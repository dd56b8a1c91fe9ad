package handlers

import (
	"errors"
	"net/http"

	"changemgmt/db"
	"changemgmt/internal/metrics"
	"changemgmt/models"

	"github.com/sirupsen/logrus"
)

// statusView is a read-only listing restricted to one status.
type statusView struct {
	status   models.Status
	basePath string
	heading  string
	noun     string
	op       string
}

var (
	approvedView = statusView{
		status:   models.StatusApproved,
		basePath: "/Approve",
		heading:  "Approved Requests",
		noun:     "approved requests",
		op:       "approved",
	}
	notApprovedView = statusView{
		status:   models.StatusNotApproved,
		basePath: "/NotApproved",
		heading:  "Not Approved Requests",
		noun:     "not approved requests",
		op:       "not_approved",
	}
)

func (v statusView) filter() db.RequestFilter {
	return db.RequestFilter{Status: v.status, Order: db.OrderByApprovalDateDesc}
}

func (h *Handler) listView(v statusView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := &pageData{Title: v.heading, Heading: v.heading, BasePath: v.basePath}
		requests, err := h.Store.GetRequests(r.Context(), v.filter())
		if err != nil {
			h.log.WithError(err).WithField("view", v.op).Error("list requests")
			h.metrics.IncOperation(v.op+"_list", metrics.OutcomeError)
			data.Flash = &flash{Kind: "error", Message: "An error occurred while loading " + v.noun + "."}
			h.render(w, r, http.StatusInternalServerError, "listing_index", data)
			return
		}
		h.metrics.IncOperation(v.op+"_list", metrics.OutcomeSuccess)
		data.Requests = requests
		h.render(w, r, http.StatusOK, "listing_index", data)
	}
}

func (h *Handler) getAllView(v statusView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := h.Store.GetRequests(r.Context(), v.filter())
		if err != nil {
			h.log.WithError(err).WithField("view", v.op).Error("get all requests")
			h.metrics.IncOperation(v.op+"_get_all", metrics.OutcomeError)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "An error occurred while retrieving " + v.noun + ".",
			})
			return
		}
		h.metrics.IncOperation(v.op+"_get_all", metrics.OutcomeSuccess)
		writeJSON(w, http.StatusOK, listEnvelope{Data: requests})
	}
}

// detailsView shows a request only while it belongs to the view.
func (h *Handler) detailsView(v statusView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op := v.op + "_details"
		id, ok := requestID(r)
		if !ok {
			h.metrics.IncOperation(op, metrics.OutcomeNotFound)
			h.NotFoundHandler(w, r)
			return
		}
		req, err := h.Store.GetRequest(r.Context(), db.RequestFilter{ID: id, Status: v.status})
		if errors.Is(err, db.ErrNotFound) {
			h.log.WithFields(logrus.Fields{"view": v.op, "id": id}).Warn("request not found")
			h.metrics.IncOperation(op, metrics.OutcomeNotFound)
			h.NotFoundHandler(w, r)
			return
		}
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{"view": v.op, "id": id}).Error("load request")
			h.metrics.IncOperation(op, metrics.OutcomeError)
			h.setFlash(w, "error", msgDetailsErr)
			http.Redirect(w, r, v.basePath, http.StatusSeeOther)
			return
		}
		h.metrics.IncOperation(op, metrics.OutcomeSuccess)
		h.render(w, r, http.StatusOK, "request_details", &pageData{Title: req.Title, Request: req, BasePath: v.basePath})
	}
}
