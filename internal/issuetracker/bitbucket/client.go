package bitbucket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/issuetracker/internal/issuetracker"
	"github.com/nhle/issuetracker/internal/model"
)

const (
	// DefaultAPIBaseURL is the root of the Bitbucket Cloud REST API.
	DefaultAPIBaseURL = "https://api.bitbucket.org"

	apiVersion     = "2.0"
	requestTimeout = 30 * time.Second
)

// Client is a thin HTTP client for the Bitbucket Cloud v2 issues API of a
// single repository. It handles Basic authentication with an app password
// and JSON (de)serialization. It does not retry or paginate.
type Client struct {
	endpointURL string
	username    string
	password    string
	httpClient  *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	apiBaseURL string
	httpClient *http.Client
}

// WithAPIBaseURL points the client at a different API host. The
// repository path is still derived from the repository URL.
func WithAPIBaseURL(apiBaseURL string) ClientOption {
	return func(o *clientOptions) {
		o.apiBaseURL = strings.TrimRight(apiBaseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client, which uses a 30 second
// timeout.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a client for the repository at repoURL, which must
// look like https://bitbucket.org/{workspace}/{repository}.
func NewClient(repoURL, username, password string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{
		apiBaseURL: DefaultAPIBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	endpoint, err := EndpointURL(o.apiBaseURL, repoURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		endpointURL: endpoint,
		username:    username,
		password:    password,
		httpClient:  o.httpClient,
	}, nil
}

// EndpointURL derives the repository API endpoint from the human-facing
// repository URL: https://bitbucket.org/ws/repo maps to
// {apiBaseURL}/2.0/repositories/ws/repo. Anything after the repository
// segment is ignored.
func EndpointURL(apiBaseURL, repoURL string) (string, error) {
	segments := strings.Split(strings.TrimPrefix(repoURL, "https://"), "/")
	if len(segments) < 3 || segments[1] == "" || segments[2] == "" {
		return "", &issuetracker.ConfigError{
			Field:   "base_url",
			Value:   repoURL,
			Message: "expected https://bitbucket.org/{workspace}/{repository}",
		}
	}

	workspace, repository := segments[1], segments[2]
	return fmt.Sprintf(
		"%s/%s/repositories/%s/%s",
		apiBaseURL, apiVersion, workspace, repository,
	), nil
}

// EndpointURL returns the repository API endpoint this client talks to.
func (c *Client) EndpointURL() string {
	return c.endpointURL
}

// CreateIssue files a new issue.
func (c *Client) CreateIssue(ctx context.Context, data IssueRequest) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodPost, "/issues", data, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetIssue retrieves a single issue.
func (c *Client) GetIssue(ctx context.Context, issueID int) (*Issue, error) {
	var issue Issue
	path := fmt.Sprintf("/issues/%d", issueID)
	if err := c.do(ctx, http.MethodGet, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue records a change (state transition, reassignment, message)
// on an issue.
func (c *Client) UpdateIssue(ctx context.Context, issueID int, data IssueChangeRequest) (*IssueChange, error) {
	var change IssueChange
	path := fmt.Sprintf("/issues/%d/changes", issueID)
	if err := c.do(ctx, http.MethodPost, path, data, &change); err != nil {
		return nil, err
	}
	return &change, nil
}

// AddComment posts a comment on an issue.
func (c *Client) AddComment(ctx context.Context, issueID int, comment CommentRequest) (*Comment, error) {
	var created Comment
	path := fmt.Sprintf("/issues/%d/comments/", issueID)
	if err := c.do(ctx, http.MethodPost, path, comment, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetComments returns the first page of an issue's comments, most
// recently updated first.
func (c *Client) GetComments(ctx context.Context, issueID int) (*CommentPage, error) {
	var page CommentPage
	path := fmt.Sprintf("/issues/%d/comments?sort=-updated_on", issueID)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteComment removes a comment. The response body carries nothing
// useful, so the raw response is returned unparsed. Its body has already
// been read and may be read again without closing.
func (c *Client) DeleteComment(ctx context.Context, issueID, commentID int) (*http.Response, error) {
	path := fmt.Sprintf("/issues/%d/comments/%d", issueID, commentID)
	resp, _, err := c.send(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// do sends a request and unmarshals a 2xx JSON response into result.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	resp, respBody, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return &issuetracker.ParseError{Method: method, URL: c.endpointURL + path, Err: err}
	}

	return nil
}

// send builds and executes the request and maps transport failures and
// non-2xx statuses to typed errors. The returned response's body is
// replaced with an in-memory copy of what was read.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	body interface{},
) (*http.Response, []byte, error) {
	url := c.endpointURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, &issuetracker.RequestError{Method: method, URL: url, Err: err}
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, nil, &issuetracker.RequestError{Method: method, URL: url, Err: readErr}
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil, &issuetracker.AuthError{
			TrackerType: string(model.TrackerTypeBitbucket),
			StatusCode:  resp.StatusCode,
			Message: fmt.Sprintf(
				"check the username and app password for %s", c.endpointURL,
			),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var bbErr ErrorResponse
		if json.Unmarshal(respBody, &bbErr) == nil && bbErr.Error.Message != "" {
			msg = bbErr.Error.Message
		}
		return nil, nil, &issuetracker.RequestError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       msg,
		}
	}

	return resp, respBody, nil
}
