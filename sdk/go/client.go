// Package rewariosdk is a Go client for the Rewario HTTP API.
package rewariosdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"rewario/internal/catalog"
	"rewario/internal/domain"
)

// Client is a minimal Rewario HTTP API client. It satisfies fetch.Source.
type Client struct {
	r *resty.Client
}

// New creates a client for baseURL, which includes the API base path (e.g. http://localhost:8080/v0).
func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	return &Client{r: r}
}

// WithToken sets the bearer token returned by Login or Register.
func (c *Client) WithToken(token string) *Client {
	c.r.SetAuthToken(token)
	return c
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Unwrap maps well-known error codes back to domain errors so errors.Is works across the wire.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "not_found":
		return domain.ErrNotFound
	case "invalid_transition":
		return domain.ErrInvalidTransition
	case "missing_credentials":
		return domain.ErrMissingCredentials
	case "missing_fields":
		return domain.ErrMissingFields
	case "invalid_amount":
		return domain.ErrInvalidAmount
	case "level_locked":
		return domain.ErrLevelLocked
	case "below_minimum":
		return domain.ErrBelowMinimum
	case "insufficient_coins":
		return domain.ErrInsufficientCoins
	case "unauthorized", "session_ended", "invalid_credentials":
		return domain.ErrNotAuthenticated
	}
	return nil
}

// Session is returned by Login and Register.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Completion is the result of CompleteTask.
type Completion struct {
	Task      domain.Task `json:"task"`
	User      domain.User `json:"user"`
	Awarded   int         `json:"awarded"`
	LevelUp   bool        `json:"levelUp"`
	Duplicate bool        `json:"duplicate"`
}

type taskList struct {
	Items []domain.Task `json:"items"`
}

type providerList struct {
	Items []domain.OfferwallProvider `json:"items"`
}

func (c *Client) ListTasks(ctx context.Context, f catalog.Filter) ([]domain.Task, error) {
	q := map[string]string{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		q["search"] = f.Search
	}
	var resp taskList
	err := c.do(ctx, http.MethodGet, "/tasks", q, nil, &resp)
	return resp.Items, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+id, nil, nil, &resp)
	return resp, err
}

func (c *Client) StartTask(ctx context.Context, id string) (domain.Task, error) {
	var resp domain.Task
	err := c.do(ctx, http.MethodPost, "/tasks/"+id+"/start", nil, nil, &resp)
	return resp, err
}

func (c *Client) CompleteTask(ctx context.Context, id string) (Completion, error) {
	var resp Completion
	err := c.do(ctx, http.MethodPost, "/tasks/"+id+"/complete", nil, nil, &resp)
	return resp, err
}

func (c *Client) Providers(ctx context.Context) ([]domain.OfferwallProvider, error) {
	var resp providerList
	err := c.do(ctx, http.MethodGet, "/offerwalls", nil, nil, &resp)
	return resp.Items, err
}

// OfferwallTasks lists a provider's tasks. count <= 0 uses the server default.
func (c *Client) OfferwallTasks(ctx context.Context, providerID string, count int, refresh bool) ([]domain.Task, error) {
	q := map[string]string{}
	if count > 0 {
		q["count"] = strconv.Itoa(count)
	}
	if refresh {
		q["refresh"] = "true"
	}
	var resp taskList
	err := c.do(ctx, http.MethodGet, "/offerwalls/"+providerID+"/tasks", q, nil, &resp)
	return resp.Items, err
}

// Login starts a session and configures the client with its token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "/session/login", nil, map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err == nil {
		c.WithToken(resp.Token)
	}
	return resp, err
}

// Register creates a user and configures the client with its token.
func (c *Client) Register(ctx context.Context, email, password, name string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodPost, "/session/register", nil, map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err == nil {
		c.WithToken(resp.Token)
	}
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/session/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var resp domain.User
	err := c.do(ctx, http.MethodGet, "/me", nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, out any) error {
	req := c.r.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	res, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if res.IsError() {
		apiErr := &APIError{StatusCode: res.StatusCode(), Body: string(res.Body())}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(res.Body(), &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	return nil
}
