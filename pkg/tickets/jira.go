// Package tickets pkg/tickets/jira.go implements the ticketing client
// against the Jira REST API.
package tickets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/oceanops/fleetwatch/pkg/config"
	"github.com/oceanops/fleetwatch/pkg/models"
)

const defaultIssueType = "Incident"

// JiraClient implements TicketingClient over the Jira v2 REST API.
type JiraClient struct {
	baseURL   string
	project   string
	username  string
	apiToken  string
	issueType string
	http      *http.Client
}

// NewJiraClient builds a client from the ticketing configuration.
func NewJiraClient(cfg *config.JiraConfig) *JiraClient {
	issueType := cfg.IssueType
	if issueType == "" {
		issueType = defaultIssueType
	}

	return &JiraClient{
		baseURL:   cfg.BaseURL,
		project:   cfg.Project,
		username:  cfg.Username,
		apiToken:  cfg.APIToken,
		issueType: issueType,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// ticketLabel ties an issue back to its (unit, component) pair so later
// sweeps find it again.
func ticketLabel(unitID string, component models.Component) string {
	return fmt.Sprintf("fleetwatch-%s-%s", unitID, component)
}

// FindOpen searches for an issue that is still being worked. Closed and
// resolved issues never match, so a new episode opens a new ticket.
func (c *JiraClient) FindOpen(ctx context.Context, unitID string, component models.Component) (string, error) {
	searchReq := map[string]interface{}{
		"jql": fmt.Sprintf(
			`project = %s AND labels = %q AND status in ("Open", "In Progress", "Reopened")`,
			c.project, ticketLabel(unitID, component)),
		"fields":     []string{"key", "status"},
		"maxResults": 1,
	}

	var body string

	err := requests.URL(c.baseURL).
		Path("/rest/api/2/search").
		BasicAuth(c.username, c.apiToken).
		Client(c.http).
		BodyJSON(&searchReq).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("ticket search failed: %w", err)
	}

	return gjson.Get(body, "issues.0.key").String(), nil
}

// Create opens a new issue for an approved escalation.
func (c *JiraClient) Create(ctx context.Context, req *models.ApprovalRequest) (string, error) {
	createReq := map[string]interface{}{
		"fields": map[string]interface{}{
			"project":     map[string]string{"key": c.project},
			"summary":     fmt.Sprintf("[%s] %s %s below SLA", req.Severity, req.UnitID, req.Component),
			"description": req.Summary,
			"issuetype":   map[string]string{"name": c.issueType},
			"labels":      []string{ticketLabel(req.UnitID, req.Component)},
		},
	}

	var body string

	err := requests.URL(c.baseURL).
		Path("/rest/api/2/issue").
		BasicAuth(c.username, c.apiToken).
		Client(c.http).
		BodyJSON(&createReq).
		ToString(&body).
		Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("ticket creation failed: %w", err)
	}

	ref := gjson.Get(body, "key").String()
	if ref == "" {
		return "", fmt.Errorf("ticket creation returned no key")
	}

	log.WithFields(log.Fields{
		"ref":       ref,
		"unit":      req.UnitID,
		"component": req.Component,
	}).Info("Ticket created")

	return ref, nil
}

// Update appends a comment to the issue.
func (c *JiraClient) Update(ctx context.Context, ref, comment string) error {
	commentReq := map[string]string{"body": comment}

	err := requests.URL(c.baseURL).
		Pathf("/rest/api/2/issue/%s/comment", ref).
		BasicAuth(c.username, c.apiToken).
		Client(c.http).
		BodyJSON(&commentReq).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("ticket update failed: %w", err)
	}

	return nil
}

func describeTicket(summary *Summary) string {
	return fmt.Sprintf(
		"Unit: %s\nComponent: %s\nSeverity: %s\nUptime: %.2f%%\nDown for: %s\n\nRecent history:\n%s",
		summary.UnitID,
		summary.Component,
		summary.Severity,
		summary.Uptime,
		summary.DowntimeAging,
		summary.History,
	)
}
