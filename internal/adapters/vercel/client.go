package vercel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/lo"

	"persodash/internal/domain"
	"persodash/internal/observability"
)

const DefaultBaseURL = "https://api.vercel.com"

// ErrNotConfigured is returned when no API token is set.
var ErrNotConfigured = errors.New("vercel token not configured")

// Client summarizes Vercel projects into website statuses: the latest
// production deployment decides online/offline/building, domains are
// attached for display.
type Client struct {
	baseURL    string
	token      string
	teamID     string
	httpClient *http.Client
	logger     *log.Logger
}

func NewClient(token, teamID string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		teamID:     teamID,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	return c.token != ""
}

type projectPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type projectsResponse struct {
	Projects []projectPayload `json:"projects"`
}

type deploymentPayload struct {
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
	CreatedAt  int64  `json:"createdAt"`
}

type deploymentsResponse struct {
	Deployments []deploymentPayload `json:"deployments"`
}

type domainPayload struct {
	Name string `json:"name"`
}

type domainsResponse struct {
	Domains []domainPayload `json:"domains"`
}

func (c *Client) Websites(ctx context.Context) ([]domain.Website, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var projects projectsResponse
	if err := c.get(ctx, "/v10/projects", url.Values{"limit": {"100"}}, &projects); err != nil {
		return nil, fmt.Errorf("vercel projects: %w", err)
	}

	websites := make([]domain.Website, 0, len(projects.Projects))
	for _, project := range projects.Projects {
		websites = append(websites, c.summarize(ctx, project))
	}
	return websites, nil
}

// summarize degrades gracefully: a failed deployment or domain lookup
// leaves the project listed with status unknown rather than failing
// the whole listing.
func (c *Client) summarize(ctx context.Context, project projectPayload) domain.Website {
	website := domain.Website{
		ID:        project.ID,
		Name:      project.Name,
		ProjectID: project.ID,
		Status:    domain.WebsiteUnknown,
		Domains:   []string{},
	}

	var deployments deploymentsResponse
	query := url.Values{
		"projectId": {project.ID},
		"limit":     {"1"},
		"target":    {"production"},
	}
	if err := c.get(ctx, "/v6/deployments", query, &deployments); err != nil {
		c.logger.Printf("vercel deployments for %s: %v", project.ID, err)
	} else if len(deployments.Deployments) > 0 {
		deployment := deployments.Deployments[0]
		if deployment.URL != "" {
			website.URL = "https://" + deployment.URL
		}
		if deployment.CreatedAt > 0 {
			created := time.UnixMilli(deployment.CreatedAt)
			website.LastDeploy = &created
		}
		website.Status = mapReadyState(deployment.ReadyState)
	}

	var domains domainsResponse
	if err := c.get(ctx, fmt.Sprintf("/v9/projects/%s/domains", project.ID), nil, &domains); err != nil {
		c.logger.Printf("vercel domains for %s: %v", project.ID, err)
	} else {
		website.Domains = lo.Map(domains.Domains, func(d domainPayload, _ int) string {
			return d.Name
		})
	}

	return website
}

func mapReadyState(readyState string) domain.WebsiteStatus {
	switch readyState {
	case "READY":
		return domain.WebsiteOnline
	case "ERROR", "CANCELED":
		return domain.WebsiteOffline
	case "BUILDING", "QUEUED":
		return domain.WebsiteBuilding
	default:
		return domain.WebsiteUnknown
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	if c.teamID != "" {
		query.Set("teamId", c.teamID)
	}
	endpoint := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+c.token)

	response, err := c.httpClient.Do(request)
	if err != nil {
		observability.CaptureError(err, map[string]string{
			"component": "vercel",
			"operation": "get",
		}, map[string]interface{}{"path": path})
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return fmt.Errorf("status %d", response.StatusCode)
	}
	return json.NewDecoder(response.Body).Decode(out)
}
