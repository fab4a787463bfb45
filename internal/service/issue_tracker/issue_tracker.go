package issue_tracker

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/supportbot/internal/model"
)

var (
	// ErrNotFound means a lookup step returned no matching entry.
	ErrNotFound = errors.New("not found")
	// ErrUnexpectedStatus means the tracker answered with a status the step does not accept.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Ticket creation steps, in call order.
const (
	StepLookupAccount     = "lookup_account"
	StepLookupServiceDesk = "lookup_service_desk"
	StepLookupRequestType = "lookup_request_type"
	StepCreateRequest     = "create_request"
)

// StepError names the creation step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("ticket step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TicketService opens a ticket on behalf of a reporter. It returns either a
// complete result or an error, never a partial result.
type TicketService interface {
	CreateTicket(ctx context.Context, req model.TicketRequest) (*model.TicketResult, error)
}

// ErrNotConfigured is returned by the ticket service used when no Jira
// credentials are set; every negative feedback then takes the manual-link path.
var ErrNotConfigured = errors.New("issue tracker not configured")

type unconfiguredTicketService struct{}

func NewUnconfiguredTicketService() TicketService {
	return unconfiguredTicketService{}
}

func (unconfiguredTicketService) CreateTicket(context.Context, model.TicketRequest) (*model.TicketResult, error) {
	return nil, &StepError{Step: StepLookupAccount, Err: ErrNotConfigured}
}
