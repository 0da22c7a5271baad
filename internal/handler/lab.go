package handler

import (
	"context"
	"net/http"
	"time"

	"lab-manager/internal/model"
	"lab-manager/internal/service"
	"lab-manager/internal/view"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Constants for timeouts
const (
	DefaultTimeout = 10 * time.Second
	HealthTimeout  = 2 * time.Second
)

// LabHandler handles the HTTP requests for the lab pages.
type LabHandler struct {
	Service  LabService
	Health   HealthChecker
	Notifier NotifierChecker
	Logger   logrus.FieldLogger

	// Helper components for cleaner code organization
	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewLabHandler creates a new LabHandler with dependencies and helpers.
// notifier may be nil when no webhook is configured.
func NewLabHandler(svc LabService, health HealthChecker, notifier NotifierChecker, renderer *view.Renderer, logger logrus.FieldLogger) *LabHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "handler")

	return &LabHandler{
		Service:        svc,
		Health:         health,
		Notifier:       notifier,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger, renderer),
		ResponseHelper: NewResponseHelper(),
	}
}

// DashboardHandler renders the computer grid. ?form=new and ?edit={id} open
// the computer form over it.
func (h *LabHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	page := h.dashboardPage(ctx)

	query := r.URL.Query()
	switch {
	case query.Get("form") == "new":
		page.Form = view.NewComputerForm()
	case query.Get("edit") != "":
		if id, ok := h.ErrorHandler.ParseUUID(query.Get("edit")); ok {
			computer, err := h.Service.GetComputer(ctx, id)
			if err != nil {
				h.ErrorHandler.LogSilently(err, "load computer for editing", logrus.Fields{"computer_id": id})
			} else {
				page.Form = view.EditComputerForm(*computer)
			}
		}
	}

	h.ErrorHandler.RenderPage(w, http.StatusOK, view.PageDashboard, page)
}

// CreateComputerHandler handles the creation of a new computer.
func (h *LabHandler) CreateComputerHandler(w http.ResponseWriter, r *http.Request) {
	h.saveComputer(w, r, nil)
}

// UpdateComputerHandler handles the update of a computer.
func (h *LabHandler) UpdateComputerHandler(w http.ResponseWriter, r *http.Request) {
	id, valid := h.ErrorHandler.ParseUUID(mux.Vars(r)["id"])
	if !valid {
		h.ErrorHandler.RenderNotFound(w)
		return
	}
	h.saveComputer(w, r, &id)
}

func (h *LabHandler) saveComputer(w http.ResponseWriter, r *http.Request, id *uuid.UUID) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	idStr := ""
	if id != nil {
		idStr = id.String()
	}

	if err := r.ParseForm(); err != nil {
		form := view.ComputerFormFromValues(idStr, nil)
		form.Error = err.Error()
		h.renderDashboardForm(ctx, w, http.StatusBadRequest, form)
		return
	}
	form := view.ComputerFormFromValues(idStr, r.PostForm)

	_, err := h.Service.SaveComputer(ctx, service.ComputerInput{
		ID:     id,
		Name:   form.Name,
		Status: form.Status,
	})
	if err != nil {
		status, message := h.ErrorHandler.FormError(err)
		h.Logger.WithError(err).WithField("computer_id", idStr).Info("Computer form rejected")
		form.Error = message
		h.renderDashboardForm(ctx, w, status, form)
		return
	}

	h.ResponseHelper.RedirectSeeOther(w, r, "/")
}

func (h *LabHandler) renderDashboardForm(ctx context.Context, w http.ResponseWriter, status int, form *view.ComputerForm) {
	if form.Status == "" {
		form.Status = model.StatusOperational
	}
	page := h.dashboardPage(ctx)
	page.Form = form
	h.ErrorHandler.RenderPage(w, status, view.PageDashboard, page)
}

// ConfirmDeleteHandler asks for confirmation before deleting a computer.
func (h *LabHandler) ConfirmDeleteHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseUUID(mux.Vars(r)["id"])
	if !valid {
		h.ResponseHelper.RedirectSeeOther(w, r, "/")
		return
	}

	computer, err := h.Service.GetComputer(ctx, id)
	if err != nil {
		h.ErrorHandler.LogSilently(err, "load computer for deletion", logrus.Fields{"computer_id": id})
		h.ResponseHelper.RedirectSeeOther(w, r, "/")
		return
	}

	h.ErrorHandler.RenderPage(w, http.StatusOK, view.PageConfirmDelete, view.ConfirmDeletePage{Computer: *computer})
}

// DeleteComputerHandler handles the deletion of a computer. Failures are
// logged and the dashboard is shown unchanged.
func (h *LabHandler) DeleteComputerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	if id, valid := h.ErrorHandler.ParseUUID(mux.Vars(r)["id"]); valid {
		if err := h.Service.DeleteComputer(ctx, id); err != nil {
			h.ErrorHandler.LogSilently(err, "delete computer", logrus.Fields{"computer_id": id})
		}
	}

	h.ResponseHelper.RedirectSeeOther(w, r, "/")
}

// ComputerDetailsHandler renders one computer with its components and incidents.
func (h *LabHandler) ComputerDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseUUID(mux.Vars(r)["id"])
	if !valid {
		h.ErrorHandler.RenderNotFound(w)
		return
	}

	h.renderDetails(ctx, w, http.StatusOK, id, view.IncidentForm{})
}

// CreateIncidentHandler files an incident. On success the browser is sent
// back to the detail view, which shows an empty form. On failure the form is
// rendered again with what was submitted and no message.
func (h *LabHandler) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	id, valid := h.ErrorHandler.ParseUUID(mux.Vars(r)["id"])
	if !valid {
		h.ErrorHandler.RenderNotFound(w)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.ErrorHandler.LogSilently(err, "parse incident form", logrus.Fields{"computer_id": id})
		h.renderDetails(ctx, w, http.StatusBadRequest, id, view.IncidentFormFromValues(r.PostForm))
		return
	}
	form := view.IncidentFormFromValues(r.PostForm)

	if _, err := h.Service.FileIncident(ctx, id, form.Input()); err != nil {
		h.ErrorHandler.LogSilently(err, "create incident", logrus.Fields{"computer_id": id})
		status, _ := h.ErrorHandler.FormError(err)
		h.renderDetails(ctx, w, status, id, form)
		return
	}

	h.ResponseHelper.RedirectSeeOther(w, r, "/computer/"+id.String())
}

func (h *LabHandler) renderDetails(ctx context.Context, w http.ResponseWriter, status int, id uuid.UUID, form view.IncidentForm) {
	details := h.Service.LoadDetails(ctx, id)
	if !details.Found() {
		h.ErrorHandler.RenderNotFound(w)
		return
	}

	h.ErrorHandler.RenderPage(w, status, view.PageDetails, view.DetailsPage{
		Computer:   *details.Computer,
		Components: details.Components,
		Incidents:  details.Incidents,
		Form:       form,
	})
}

// dashboardPage loads the grid. A failed fetch is logged and marks the page
// so it shows neither cards nor the empty inventory state.
func (h *LabHandler) dashboardPage(ctx context.Context) view.DashboardPage {
	computers, err := h.Service.ListComputers(ctx)
	if err != nil {
		h.ErrorHandler.LogSilently(err, "list computers", nil)
		return view.DashboardPage{LoadFailed: true}
	}
	return view.DashboardPage{Computers: computers}
}

// HealthHandler provides a health check endpoint
func (h *LabHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, HealthTimeout)
	defer cancel()

	var err error
	if h.Health != nil {
		err = h.Health.Ping(ctx)
	}

	notifier := "disabled"
	if h.Notifier != nil {
		notifier = "ok"
		if !h.Notifier.IsHealthy(ctx) {
			h.Logger.Warn("Notification webhook unreachable")
			notifier = "unreachable"
		}
	}

	status := http.StatusOK
	if err != nil {
		h.Logger.WithError(err).Warn("Health check failed")
		status = http.StatusServiceUnavailable
	}
	h.ErrorHandler.SendJSONResponse(w, status, h.ResponseHelper.CreateHealthCheckData(err, notifier))
}
