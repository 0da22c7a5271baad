package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"lab-manager/internal/backend"
	"lab-manager/internal/model"
	"lab-manager/internal/repository"
	apperrors "lab-manager/pkg/errors"
	"lab-manager/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NotificationTimeout bounds one asynchronous notification delivery.
const NotificationTimeout = 15 * time.Second

// NotificationService interface for sending notifications
type NotificationService interface {
	SendLabNotification(ctx context.Context, notification LabNotification) error
}

// LabNotification describes something an operator may want to hear about.
type LabNotification struct {
	Type         NotificationType
	ComputerID   uuid.UUID
	ComputerName string
	Message      string
	Metadata     map[string]string
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeIncidentReported NotificationType = "incident_reported"
	NotificationTypeComputerDown     NotificationType = "computer_down"
)

// ComputerInput is the computer form as submitted. A nil ID creates.
type ComputerInput struct {
	ID     *uuid.UUID
	Name   string
	Status model.Status
}

// Details is the outcome of loading the detail view. Each fetch keeps its own
// error so one failure does not hide the other results.
type Details struct {
	Computer   *model.Computer
	Components []model.Component
	Incidents  []model.Incident

	ComputerErr   error
	ComponentsErr error
	IncidentsErr  error
}

// Found reports whether the computer itself was loaded.
func (d *Details) Found() bool {
	return d.Computer != nil
}

// LabService holds the lab inventory and incident logic
type LabService struct {
	computers  repository.ComputerRepository
	components repository.ComponentRepository
	incidents  repository.IncidentRepository
	notifier   NotificationService
	logger     logrus.FieldLogger

	pending sync.WaitGroup
}

// NewLabService creates a new lab service. notifier may be nil.
func NewLabService(
	computers repository.ComputerRepository,
	components repository.ComponentRepository,
	incidents repository.IncidentRepository,
	notifier NotificationService,
	logger logrus.FieldLogger,
) *LabService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LabService{
		computers:  computers,
		components: components,
		incidents:  incidents,
		notifier:   notifier,
		logger:     logger.WithField("component", "lab_service"),
	}
}

// ListComputers returns every computer ordered by name.
func (s *LabService) ListComputers(ctx context.Context) ([]model.Computer, error) {
	computers, err := s.computers.ListComputers(ctx)
	if err != nil {
		return nil, backendError("list computers", err)
	}
	return computers, nil
}

// GetComputer returns one computer.
func (s *LabService) GetComputer(ctx context.Context, id uuid.UUID) (*model.Computer, error) {
	computer, err := s.computers.GetComputerByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrComputerNotFound):
			return nil, apperrors.NotFoundError("computer")
		case errors.Is(err, repository.ErrAmbiguousComputer):
			return nil, apperrors.AmbiguousError("computer")
		}
		return nil, backendError("get computer", err)
	}
	return computer, nil
}

// SaveComputer creates the computer or, when in.ID is set, updates its name
// and status. A computer saved as non_operational triggers a notification.
func (s *LabService) SaveComputer(ctx context.Context, in ComputerInput) (*model.Computer, error) {
	name := strings.TrimSpace(in.Name)
	if errs := validation.ValidateComputerInput(name, in.Status); errs != nil {
		return nil, apperrors.ValidationErrorWithFields(errs)
	}

	computer := model.Computer{Name: name, Status: in.Status}

	if in.ID == nil {
		computer.ID = uuid.New()
		if err := s.computers.CreateComputer(ctx, computer); err != nil {
			return nil, backendError("create computer", err)
		}
		s.logger.WithFields(logrus.Fields{"computer_id": computer.ID, "name": name}).Info("Computer created")
	} else {
		computer.ID = *in.ID
		if err := s.computers.UpdateComputer(ctx, computer.ID, name, in.Status); err != nil {
			if errors.Is(err, repository.ErrComputerNotFound) {
				return nil, apperrors.NotFoundError("computer")
			}
			return nil, backendError("update computer", err)
		}
		s.logger.WithFields(logrus.Fields{"computer_id": computer.ID, "status": in.Status}).Info("Computer updated")
	}

	if !computer.Status.Operational() {
		s.notify(LabNotification{
			Type:         NotificationTypeComputerDown,
			ComputerID:   computer.ID,
			ComputerName: computer.Name,
			Message:      fmt.Sprintf("Computer %s marked as non operational", computer.Name),
		})
	}

	return &computer, nil
}

// DeleteComputer removes a computer and everything filed against it:
// incidents first, then components, then the computer row.
func (s *LabService) DeleteComputer(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithField("computer_id", id)

	incidents, err := s.incidents.DeleteByComputer(ctx, id)
	if err != nil {
		return backendError("delete incidents", err)
	}
	components, err := s.components.DeleteByComputer(ctx, id)
	if err != nil {
		return backendError("delete components", err)
	}
	if err := s.computers.DeleteComputer(ctx, id); err != nil {
		if errors.Is(err, repository.ErrComputerNotFound) {
			return apperrors.NotFoundError("computer")
		}
		return backendError("delete computer", err)
	}

	log.WithFields(logrus.Fields{
		"incidents":  incidents,
		"components": components,
	}).Info("Computer deleted")
	return nil
}

// LoadDetails fetches the computer, its components and its incidents
// concurrently and waits for all three.
func (s *LabService) LoadDetails(ctx context.Context, id uuid.UUID) *Details {
	d := &Details{}

	var g errgroup.Group
	g.Go(func() error {
		d.Computer, d.ComputerErr = s.GetComputer(ctx, id)
		return d.ComputerErr
	})
	g.Go(func() error {
		components, err := s.components.ListByComputer(ctx, id)
		if err != nil {
			d.ComponentsErr = backendError("list components", err)
			return d.ComponentsErr
		}
		d.Components = components
		return nil
	})
	g.Go(func() error {
		incidents, err := s.incidents.ListByComputer(ctx, id)
		if err != nil {
			d.IncidentsErr = backendError("list incidents", err)
			return d.IncidentsErr
		}
		d.Incidents = incidents
		return nil
	})
	_ = g.Wait()

	log := s.logger.WithField("computer_id", id)
	if d.ComputerErr != nil {
		log.WithError(d.ComputerErr).WithField("table", backend.TableComputers).Warn("Failed to load computer")
	}
	if d.ComponentsErr != nil {
		log.WithError(d.ComponentsErr).WithField("table", backend.TableComponents).Warn("Failed to load components")
	}
	if d.IncidentsErr != nil {
		log.WithError(d.IncidentsErr).WithField("table", backend.TableIncidents).Warn("Failed to load incidents")
	}
	return d
}

// FileIncident validates the incident form and appends one incident to the
// computer. The operator webhook is notified in the background.
func (s *LabService) FileIncident(ctx context.Context, computerID uuid.UUID, in validation.IncidentInput) (*model.Incident, error) {
	componentID, errs := validation.ValidateIncidentInput(in)
	if errs != nil {
		return nil, apperrors.ValidationErrorWithFields(errs)
	}

	incident := model.Incident{
		ID:          uuid.New(),
		ComputerID:  computerID,
		ComponentID: componentID,
		StudentName: strings.TrimSpace(in.StudentName),
		GroupName:   strings.TrimSpace(in.GroupName),
		Description: strings.TrimSpace(in.Description),
		ReportedBy:  strings.TrimSpace(in.ReportedBy),
	}
	if err := s.incidents.CreateIncident(ctx, incident); err != nil {
		return nil, backendError("create incident", err)
	}

	s.logger.WithFields(logrus.Fields{
		"computer_id":  computerID,
		"component_id": componentID,
		"incident_id":  incident.ID,
	}).Info("Incident filed")

	s.notify(LabNotification{
		Type:       NotificationTypeIncidentReported,
		ComputerID: computerID,
		Message:    fmt.Sprintf("%s (%s) reported: %s", incident.StudentName, incident.GroupName, incident.Description),
		Metadata: map[string]string{
			"incident_id":  incident.ID.String(),
			"component_id": componentID.String(),
			"reported_by":  incident.ReportedBy,
		},
	})

	return &incident, nil
}

// Wait blocks until notifications started so far have been delivered or
// given up on.
func (s *LabService) Wait() {
	s.pending.Wait()
}

func (s *LabService) notify(n LabNotification) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		ctx, cancel := context.WithTimeout(context.Background(), NotificationTimeout)
		defer cancel()

		log := s.logger.WithFields(logrus.Fields{"computer_id": n.ComputerID, "event": n.Type})
		if err := s.notifier.SendLabNotification(ctx, n); err != nil {
			log.WithError(err).Warn("Failed to send notification")
			return
		}
		log.Debug("Notification sent")
	}()
}

// backendError turns a repository failure into an AppError carrying the raw
// backend message.
func backendError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.TimeoutError(operation, err)
	}

	var be *backend.Error
	if errors.As(err, &be) {
		return apperrors.BackendError(be.Error(), err)
	}
	return apperrors.BackendError(rootMessage(err), err)
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
