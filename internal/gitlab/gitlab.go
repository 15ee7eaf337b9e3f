package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides read access to the GitLab REST API.
type Client struct {
	baseURL string
	token   string
	project string
	httpCli *http.Client
}

// NewClient builds a client for one project. host may be a bare
// hostname ("gitlab.example.com") or a full URL; project is the
// numeric project id.
func NewClient(host, token string, project int, timeout time.Duration) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("gitlab host is not configured")
	}
	if token == "" {
		return nil, fmt.Errorf("gitlab token is not configured")
	}
	if project <= 0 {
		return nil, fmt.Errorf("gitlab project id is not configured")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		baseURL: host + "/api/v4",
		token:   token,
		project: strconv.Itoa(project),
		httpCli: &http.Client{Timeout: timeout},
	}, nil
}

// MergeRequest is the slice of tracker metadata quorum cares about.
type MergeRequest struct {
	IID          int       `json:"iid"`
	Title        string    `json:"title"`
	State        string    `json:"state"`
	Draft        bool      `json:"draft"`
	UpdatedAt    time.Time `json:"updated_at"`
	SourceBranch string    `json:"source_branch"`
	TargetBranch string    `json:"target_branch"`
	Author       struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"author"`
}

// Version is one push of an MR: the (base, head) pair the reviewer
// actually needs.
type Version struct {
	Base string `json:"base_commit_sha"`
	Head string `json:"head_commit_sha"`
}

// ListOpenMergeRequests returns the project's open MRs, following
// pagination.
func (c *Client) ListOpenMergeRequests(ctx context.Context) ([]MergeRequest, error) {
	var all []MergeRequest
	page := "1"
	for page != "" {
		u := fmt.Sprintf("%s/projects/%s/merge_requests?state=opened&per_page=100&page=%s",
			c.baseURL, c.project, url.QueryEscape(page))
		var batch []MergeRequest
		next, err := c.getJSON(ctx, u, &batch)
		if err != nil {
			return nil, fmt.Errorf("listing merge requests: %w", err)
		}
		all = append(all, batch...)
		page = next
	}
	return all, nil
}

// Versions returns an MR's versions, oldest first. GitLab reports the
// 20 most recent.
func (c *Client) Versions(ctx context.Context, iid int) ([]Version, error) {
	u := fmt.Sprintf("%s/projects/%s/merge_requests/%d/versions", c.baseURL, c.project, iid)
	var versions []Version
	if _, err := c.getJSON(ctx, u, &versions); err != nil {
		return nil, fmt.Errorf("listing versions of !%d: %w", iid, err)
	}
	// The API reports newest first.
	for i, j := 0, len(versions)-1; i < j; i, j = i+1, j-1 {
		versions[i], versions[j] = versions[j], versions[i]
	}
	return versions, nil
}

// getJSON performs an authenticated GET, decodes into out, and returns
// the next page number from the X-Next-Page header ("" when done).
func (c *Client) getJSON(ctx context.Context, url string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("authentication failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	case http.StatusNotFound:
		return "", fmt.Errorf("not found: %s", url)
	default:
		return "", fmt.Errorf("gitlab API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return resp.Header.Get("X-Next-Page"), nil
}
