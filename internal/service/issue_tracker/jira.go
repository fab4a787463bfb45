package issue_tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"basegraph.app/supportbot/core/config"
	"basegraph.app/supportbot/internal/model"
)

const defaultCreateTimeout = 10 * time.Second

type jiraTicketService struct {
	client        *jira.Client
	baseURL       string
	portalURL     string
	createTimeout time.Duration
}

// NewJiraTicketService builds a Jira Service Management client using basic auth
// (account email + API token). transport may be nil.
func NewJiraTicketService(cfg config.JiraConfig, transport http.RoundTripper) (TicketService, error) {
	auth := jira.BasicAuthTransport{
		Username:  cfg.Email,
		Password:  cfg.APIToken,
		Transport: transport,
	}

	client, err := jira.NewClient(auth.Client(), cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}

	timeout := cfg.CreateTimeout
	if timeout <= 0 {
		timeout = defaultCreateTimeout
	}

	return &jiraTicketService{
		client:        client,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		portalURL:     strings.TrimSuffix(cfg.PortalURL, "/"),
		createTimeout: timeout,
	}, nil
}

type serviceDeskPage struct {
	Values []struct {
		ID         string `json:"id"`
		ProjectKey string `json:"projectKey"`
	} `json:"values"`
}

type requestTypePage struct {
	Values []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"values"`
}

type createRequestBody struct {
	ServiceDeskID      string             `json:"serviceDeskId"`
	RequestTypeID      string             `json:"requestTypeId"`
	RequestFieldValues requestFieldValues `json:"requestFieldValues"`
	RaiseOnBehalfOf    string             `json:"raiseOnBehalfOf"`
}

type requestFieldValues struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type createRequestResponse struct {
	IssueKey string `json:"issueKey"`
	Key      string `json:"key"`
}

func (s *jiraTicketService) CreateTicket(ctx context.Context, req model.TicketRequest) (*model.TicketResult, error) {
	accountID, err := s.lookupAccountID(ctx, req.ReporterEmail)
	if err != nil {
		return nil, s.fail(ctx, StepLookupAccount, err, "reporter_email", req.ReporterEmail)
	}

	serviceDeskID, err := s.lookupServiceDeskID(ctx, req.ProjectKey)
	if err != nil {
		return nil, s.fail(ctx, StepLookupServiceDesk, err, "project_key", req.ProjectKey)
	}

	requestTypeID, err := s.lookupRequestTypeID(ctx, serviceDeskID, req.RequestTypeName)
	if err != nil {
		return nil, s.fail(ctx, StepLookupRequestType, err,
			"service_desk_id", serviceDeskID,
			"request_type", req.RequestTypeName)
	}

	issueKey, err := s.createRequest(ctx, createRequestBody{
		ServiceDeskID: serviceDeskID,
		RequestTypeID: requestTypeID,
		RequestFieldValues: requestFieldValues{
			Summary:     req.Summary,
			Description: req.Description,
		},
		RaiseOnBehalfOf: accountID,
	})
	if err != nil {
		return nil, s.fail(ctx, StepCreateRequest, err, "service_desk_id", serviceDeskID)
	}

	result := &model.TicketResult{
		IssueKey:  issueKey,
		TicketURL: s.ticketURL(serviceDeskID, issueKey),
	}

	slog.InfoContext(ctx, "jira customer request created",
		"issue_key", result.IssueKey,
		"ticket_url", result.TicketURL)

	return result, nil
}

// ticketURL links into the customer portal. Without a configured portal the
// default portal of the service desk the request was raised in is used.
func (s *jiraTicketService) ticketURL(serviceDeskID, issueKey string) string {
	portal := s.portalURL
	if portal == "" {
		portal = s.baseURL + "/servicedesk/customer/portal/" + serviceDeskID
	}
	return portal + "/" + issueKey
}

func (s *jiraTicketService) lookupAccountID(ctx context.Context, email string) (string, error) {
	var users []jira.User
	if err := s.get(ctx, "rest/api/3/user/search?"+url.Values{"query": {email}}.Encode(), &users); err != nil {
		return "", err
	}

	for _, u := range users {
		if u.EmailAddress == email && u.AccountID != "" {
			return u.AccountID, nil
		}
	}
	return "", fmt.Errorf("no account with email %s: %w", email, ErrNotFound)
}

func (s *jiraTicketService) lookupServiceDeskID(ctx context.Context, projectKey string) (string, error) {
	var page serviceDeskPage
	if err := s.get(ctx, "rest/servicedeskapi/servicedesk", &page); err != nil {
		return "", err
	}

	for _, sd := range page.Values {
		if sd.ProjectKey == projectKey && sd.ID != "" {
			return sd.ID, nil
		}
	}
	return "", fmt.Errorf("no service desk for project %s: %w", projectKey, ErrNotFound)
}

func (s *jiraTicketService) lookupRequestTypeID(ctx context.Context, serviceDeskID, name string) (string, error) {
	var page requestTypePage
	path := fmt.Sprintf("rest/servicedeskapi/servicedesk/%s/requesttype", url.PathEscape(serviceDeskID))
	if err := s.get(ctx, path, &page); err != nil {
		return "", err
	}

	for _, rt := range page.Values {
		if rt.Name == name && rt.ID != "" {
			return rt.ID, nil
		}
	}
	return "", fmt.Errorf("no request type named %q: %w", name, ErrNotFound)
}

func (s *jiraTicketService) createRequest(ctx context.Context, body createRequestBody) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.createTimeout)
	defer cancel()

	httpReq, err := s.client.NewRequestWithContext(ctx, http.MethodPost, "rest/servicedeskapi/request", body)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	var created createRequestResponse
	resp, err := s.client.Do(httpReq, &created)
	if err != nil {
		return "", statusError(resp, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}

	issueKey := created.IssueKey
	if issueKey == "" {
		issueKey = created.Key
	}
	if issueKey == "" {
		return "", fmt.Errorf("issue key missing from response: %w", ErrNotFound)
	}
	return issueKey, nil
}

func (s *jiraTicketService) get(ctx context.Context, path string, v any) error {
	httpReq, err := s.client.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq, v)
	if err != nil {
		return statusError(resp, err)
	}
	return nil
}

// statusError maps go-jira's non-2xx error onto ErrUnexpectedStatus and keeps
// transport and decode errors as they are.
func statusError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnexpectedStatus)
	}
	return fmt.Errorf("decoding response: %w", err)
}

func (s *jiraTicketService) fail(ctx context.Context, step string, err error, attrs ...any) error {
	args := append([]any{"step", step, "error", err}, attrs...)
	slog.ErrorContext(ctx, "jira ticket creation failed", args...)
	return &StepError{Step: step, Err: err}
}
