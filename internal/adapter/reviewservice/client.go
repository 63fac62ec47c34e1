// Package reviewservice is a hand-rolled HTTP/JSON client implementing
// review.Service against a GitLab-shaped code-review API, grounded on the
// teacher's internal/adapter/github.Client (net/http + encoding/json +
// context-aware retry-with-backoff), retargeted from the GitHub Pull
// Request Reviews API to the merge-request/commit-status endpoints this
// agent polls.
package reviewservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gifnksm/jaba-go/internal/domain"
	"github.com/gifnksm/jaba-go/internal/jabaerr"
	"github.com/gifnksm/jaba-go/internal/review"
)

const (
	defaultTimeout = 30 * time.Second
	apiVersion     = "v4"
)

// Client talks to a single review-service host.
type Client struct {
	baseURL    string
	token      string
	insecure   bool
	httpClient *http.Client
	retryConf  jabaerr.RetryConfig
}

// NewClient builds a client for host, e.g. "gitlab.example.com". Scheme
// defaults to https unless insecure is set.
func NewClient(host, token string, insecure bool) *Client {
	scheme := "https"
	if insecure {
		scheme = "http"
	}
	return &Client{
		baseURL:  fmt.Sprintf("%s://%s/api/%s", scheme, host, apiVersion),
		token:    token,
		insecure: insecure,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retryConf: jabaerr.DefaultRetryConfig(),
	}
}

// SetHTTPClient overrides the transport, for tests pointed at an
// httptest.Server.
func (c *Client) SetHTTPClient(hc *http.Client) { c.httpClient = hc }

// SetBaseURL overrides the API root, for tests pointed at an
// httptest.Server.
func (c *Client) SetBaseURL(baseURL string) { c.baseURL = strings.TrimRight(baseURL, "/") }

var _ review.Service = (*Client)(nil)

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return jabaerr.New(jabaerr.KindContract, path, 0, fmt.Errorf("encode request: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	return jabaerr.WithBackoff(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return jabaerr.New(jabaerr.KindContract, path, 0, err)
		}
		req.Header.Set("PRIVATE-TOKEN", c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return jabaerr.New(jabaerr.KindTransientNetwork, path, 0, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			respBody, _ := io.ReadAll(resp.Body)
			return jabaerr.New(jabaerr.ClassifyStatusCode(resp.StatusCode), path, resp.StatusCode,
				fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return jabaerr.New(jabaerr.KindDecode, path, resp.StatusCode, err)
		}
		return nil
	}, c.retryConf)
}

type wireMergeRequest struct {
	IID             int64  `json:"iid"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	SourceProjectID int64  `json:"source_project_id"`
	TargetProjectID int64  `json:"target_project_id"`
	SourceBranch    string `json:"source_branch"`
	TargetBranch    string `json:"target_branch"`
	SHA             string `json:"sha"`
	MergeStatus     string `json:"merge_status"`
	DetailedStatus  string `json:"detailed_merge_status"`
}

func (w wireMergeRequest) mergeability() domain.Mergeability {
	status := w.DetailedStatus
	if status == "" {
		status = w.MergeStatus
	}
	switch status {
	case "can_be_merged", "mergeable":
		return domain.MergeabilityCanBeMerged
	case "cannot_be_merged", "broken_status", "conflict", "ci_must_pass":
		return domain.MergeabilityCannotBeMerged
	default:
		return domain.MergeabilityUnknown
	}
}

func (c *Client) ListOpenMergeRequests(ctx context.Context, projectID int64) ([]review.MergeRequest, error) {
	var wire []wireMergeRequest
	q := url.Values{"state": {"opened"}, "per_page": {"100"}}
	path := fmt.Sprintf("/projects/%d/merge_requests", projectID)
	if err := c.do(ctx, http.MethodGet, path, q, nil, &wire); err != nil {
		return nil, fmt.Errorf("list open merge requests: %w", err)
	}

	sourceProjects := make(map[int64]review.Project)
	out := make([]review.MergeRequest, 0, len(wire))
	for _, w := range wire {
		sha, err := domain.NewObjectId(w.SHA)
		if err != nil {
			continue // a merge request with no commits yet; next tick will see it once it does
		}
		source, ok := sourceProjects[w.SourceProjectID]
		if !ok {
			source, err = c.projectByID(ctx, w.SourceProjectID)
			if err != nil {
				return nil, fmt.Errorf("resolve source project %d: %w", w.SourceProjectID, err)
			}
			sourceProjects[w.SourceProjectID] = source
		}
		out = append(out, review.MergeRequest{
			IID:             w.IID,
			Title:           w.Title,
			Description:     w.Description,
			SourceProjectID: w.SourceProjectID,
			SourceNamespace: source.PathWithNamespace,
			SourceCloneURL:  source.SSHCloneURL,
			SourceBranch:    w.SourceBranch,
			SHA:             sha,
			TargetProjectID: w.TargetProjectID,
			TargetBranch:    w.TargetBranch,
			Mergeable:       w.mergeability(),
		})
	}
	return out, nil
}

func (c *Client) projectByID(ctx context.Context, projectID int64) (review.Project, error) {
	var wire wireProject
	path := fmt.Sprintf("/projects/%d", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return review.Project{}, err
	}
	return wire.toProject(), nil
}

type wireComment struct {
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
	Author    struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"author"`
}

func (c *Client) ListCommitComments(ctx context.Context, projectID int64, sha domain.ObjectId) ([]review.Comment, error) {
	var wire []wireComment
	path := fmt.Sprintf("/projects/%d/repository/commits/%s/comments", projectID, sha)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, fmt.Errorf("list commit comments: %w", err)
	}
	out := make([]review.Comment, 0, len(wire))
	for _, w := range wire {
		out = append(out, review.Comment{
			Author:    review.UserAuthor{ID: w.Author.ID, Login: w.Author.Username},
			CreatedAt: w.CreatedAt,
			Note:      w.Note,
		})
	}
	return out, nil
}

type wireStatus struct {
	ID          int64  `json:"id"`
	SHA         string `json:"sha"`
	Ref         string `json:"ref"`
	Status      string `json:"status"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TargetURL   string `json:"target_url"`
}

func (c *Client) ListCommitStatuses(ctx context.Context, projectID int64, sha domain.ObjectId) ([]domain.CommitStatusRecord, error) {
	var wire []wireStatus
	path := fmt.Sprintf("/projects/%d/repository/commits/%s/statuses", projectID, sha)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, fmt.Errorf("list commit statuses: %w", err)
	}
	out := make([]domain.CommitStatusRecord, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.CommitStatusRecord{
			ID:          w.ID,
			Name:        w.Name,
			Ref:         w.Ref,
			Status:      domain.CommitStatus(w.Status),
			Description: w.Description,
			TargetURL:   w.TargetURL,
			SHA:         sha,
		})
	}
	return out, nil
}

type wireBuild struct {
	ID         int64  `json:"id"`
	PipelineID int64  `json:"pipeline_id"`
	Status     string `json:"status"`
}

func (c *Client) ListBuilds(ctx context.Context, projectID int64, sha domain.ObjectId) ([]domain.Build, error) {
	var wire []wireBuild
	path := fmt.Sprintf("/projects/%d/repository/commits/%s/statuses", projectID, sha)
	q := url.Values{"all": {"true"}}
	if err := c.do(ctx, http.MethodGet, path, q, nil, &wire); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	out := make([]domain.Build, 0, len(wire))
	for _, w := range wire {
		out = append(out, domain.Build{ID: w.ID, PipelineID: w.PipelineID, Status: domain.CommitStatus(w.Status)})
	}
	return out, nil
}

type wireCreateStatus struct {
	State       string `json:"state"`
	Ref         string `json:"ref,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
}

// statusState maps our internal CommitStatus vocabulary to the
// review-service's wire vocabulary, where "running" is spelled "running"
// but failures distinguish "failed" from "canceled" exactly as we do.
func statusState(s domain.CommitStatus) string { return string(s) }

func (c *Client) CreateCommitStatus(ctx context.Context, projectID int64, in review.CommitStatusInput) error {
	path := fmt.Sprintf("/projects/%d/statuses/%s", projectID, in.SHA)
	body := wireCreateStatus{
		State:       statusState(in.Status),
		Ref:         in.Ref,
		Name:        in.Name,
		Description: in.Description,
		TargetURL:   in.TargetURL,
	}
	if err := c.do(ctx, http.MethodPost, path, nil, body, nil); err != nil {
		return fmt.Errorf("create commit status %s on %s: %w", in.Name, in.SHA, err)
	}
	return nil
}

type wireMember struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Name        string `json:"name"`
	AccessLevel int    `json:"access_level"`
}

func membersFromWire(wire []wireMember) []review.Member {
	out := make([]review.Member, 0, len(wire))
	for _, w := range wire {
		out = append(out, review.Member{
			User:        domain.UserRef{ID: w.ID, Name: w.Name, Login: w.Username},
			AccessLevel: review.AccessLevel(w.AccessLevel),
		})
	}
	return out
}

func (c *Client) ListProjectMembers(ctx context.Context, projectID int64) ([]review.Member, error) {
	var wire []wireMember
	path := fmt.Sprintf("/projects/%d/members/all", projectID)
	if err := c.do(ctx, http.MethodGet, path, url.Values{"per_page": {"100"}}, nil, &wire); err != nil {
		return nil, fmt.Errorf("list project members: %w", err)
	}
	return membersFromWire(wire), nil
}

func (c *Client) ListGroupMembers(ctx context.Context, groupID int64) ([]review.Member, error) {
	var wire []wireMember
	path := fmt.Sprintf("/groups/%d/members/all", groupID)
	if err := c.do(ctx, http.MethodGet, path, url.Values{"per_page": {"100"}}, nil, &wire); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return membersFromWire(wire), nil
}

type wireProject struct {
	ID                int64  `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
	Namespace         struct {
		Kind string `json:"kind"`
		ID   int64  `json:"id"`
	} `json:"namespace"`
	SSHURLToRepo string `json:"ssh_url_to_repo"`
	WebURL       string `json:"web_url"`
}

func (w wireProject) toProject() review.Project {
	return review.Project{
		ID:                w.ID,
		PathWithNamespace: w.PathWithNamespace,
		NamespaceIsGroup:  w.Namespace.Kind == "group",
		GroupID:           w.Namespace.ID,
		SSHCloneURL:       w.SSHURLToRepo,
		WebURL:            w.WebURL,
	}
}

func (c *Client) GetProject(ctx context.Context, namespacePath string) (review.Project, error) {
	var wire wireProject
	path := fmt.Sprintf("/projects/%s", url.PathEscape(namespacePath))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return review.Project{}, fmt.Errorf("get project %s: %w", namespacePath, err)
	}
	return wire.toProject(), nil
}

type wireUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (c *Client) CurrentUser(ctx context.Context) (domain.UserRef, error) {
	var wire wireUser
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &wire); err != nil {
		return domain.UserRef{}, fmt.Errorf("get current user: %w", err)
	}
	return domain.UserRef{ID: wire.ID, Name: wire.Name, Login: wire.Username}, nil
}
