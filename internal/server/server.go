package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"rewario/internal/domain"
	"rewario/internal/engine"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Log      zerolog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"level_locked"`
	Message string         `json:"message" example:"task requires a higher level"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"task_id\":\"task-4\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Rewario API.
func New(cfg Config) (http.Handler, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("jwt secret required")
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// schema validation is a client error, not a business rule failure
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	if cfg.Engine.Metrics != nil {
		router.Use(cfg.Engine.Metrics.Middleware)
	}
	router.Use(requestLogger(cfg.Log))
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	if cfg.Engine.Metrics != nil {
		router.Handle("/metrics", cfg.Engine.Metrics.Handler())
	}
	hcfg := huma.DefaultConfig("Rewario API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTasks(group, cfg.Engine)
	registerOfferwalls(group, cfg.Engine)
	registerSession(group, cfg.Engine, cfg.Auth)
	registerMe(group, cfg.Engine)
	registerLevels(group, cfg.Engine)
	registerWallet(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("request")
		})
	}
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrMissingCredentials, http.StatusBadRequest, "missing_credentials"},
	{domain.ErrMissingFields, http.StatusBadRequest, "missing_fields"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrLevelLocked, http.StatusUnprocessableEntity, "level_locked"},
	{domain.ErrBelowMinimum, http.StatusUnprocessableEntity, "below_minimum"},
	{domain.ErrInsufficientCoins, http.StatusUnprocessableEntity, "insufficient_coins"},
	{domain.ErrNotAuthenticated, http.StatusUnauthorized, "unauthorized"},
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return newAPIError(m.status, m.code, err.Error(), nil)
		}
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	document := sync.OnceValue(func() []byte {
		oas := api.OpenAPI()
		ensureDefaultErrorResponses(oas)
		applyAuthSecurity(oas, basePath)
		b, _ := json.Marshal(oas)
		return b
	})
	r.Get(path.Join(basePath, "openapi.json"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(document())
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

// applyAuthSecurity marks the operations that need a bearer token.
func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if requiresUser(strings.TrimPrefix(route, basePath)) {
				op.Security = security
			} else {
				op.Security = []map[string][]string{}
			}
		}
	}
}

func requiresUser(route string) bool {
	for _, prefix := range []string{"/me", "/wallet", "/events", "/session/logout"} {
		if strings.HasPrefix(route, prefix) {
			return true
		}
	}
	return strings.HasSuffix(route, "/start") || strings.HasSuffix(route, "/complete")
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Rewario API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Log in with POST /session/login, then send Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		Category string `query:"category" doc:"Category tag, or all"`
		Search   string `query:"search" doc:"Case-insensitive match on title or description"`
	}) (*struct {
		Body taskList `json:"body"`
	}, error) {
		items := e.ListTasks(taskFilter(input.Category, input.Search))
		return &struct {
			Body taskList `json:"body"`
		}{Body: taskList{Items: items, Categories: nonNilSlice(e.Catalog.Categories())}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		t, err := e.GetTask(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/start",
		Summary:     "Start task",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		t, err := e.StartTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: t}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-task",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/complete",
		Summary:     "Complete task and credit its coins",
		Description: "Completing an already completed task succeeds without crediting coins again.",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body engine.Completion `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		res, err := e.CompleteTask(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Completion `json:"body"`
		}{Body: res}, nil
	})
}

func registerOfferwalls(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-offerwalls",
		Method:      http.MethodGet,
		Path:        "/offerwalls",
		Summary:     "List offerwall providers",
	}, func(ctx context.Context, input *struct {
		Active bool `query:"active" doc:"Only active providers"`
	}) (*struct {
		Body providerList `json:"body"`
	}, error) {
		items := e.Providers()
		if input.Active {
			items = e.Offerwalls.ActiveProviders()
		}
		return &struct {
			Body providerList `json:"body"`
		}{Body: providerList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-offerwall",
		Method:      http.MethodGet,
		Path:        "/offerwalls/{id}",
		Summary:     "Get offerwall provider",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body domain.OfferwallProvider `json:"body"`
	}, error) {
		p, err := e.Provider(input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.OfferwallProvider `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-offerwall-tasks",
		Method:      http.MethodGet,
		Path:        "/offerwalls/{id}/tasks",
		Summary:     "List a provider's tasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID      string `path:"id"`
		Count   int    `query:"count" minimum:"0" maximum:"50" doc:"Number of tasks, 0 for the configured default"`
		Refresh bool   `query:"refresh" doc:"Regenerate instead of returning cached tasks"`
	}) (*struct {
		Body taskList `json:"body"`
	}, error) {
		items, err := e.OfferwallTasks(ctx, input.ID, input.Count, input.Refresh)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body taskList `json:"body"`
		}{Body: taskList{Items: items, Categories: []string{}}}, nil
	})
}

func registerSession(api huma.API, e engine.Engine, authCfg AuthConfig) {
	issue := func(u domain.User) (*struct {
		Body sessionResponse `json:"body"`
	}, error) {
		token, expires, err := signToken(authCfg, u.ID)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body sessionResponse `json:"body"`
		}{Body: sessionResponse{Token: token, ExpiresAt: expires, User: u}}, nil
	}

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/session/login",
		Summary:     "Log in and receive a bearer token",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body loginRequest `json:"body"`
	}) (*struct {
		Body sessionResponse `json:"body"`
	}, error) {
		u, err := e.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		return issue(u)
	})

	huma.Register(api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/session/register",
		Summary:     "Register a new user",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body registerRequest `json:"body"`
	}) (*struct {
		Body sessionResponse `json:"body"`
	}, error) {
		u, err := e.Register(ctx, input.Body.Email, input.Body.Password, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return issue(u)
	})

	huma.Register(api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/session/logout",
		Summary:     "End the active session",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body sessionStatus `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		if err := e.Logout(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body sessionStatus `json:"body"`
		}{Body: sessionStatus{Authenticated: false}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "session-status",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Whether a user is logged in",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body sessionStatus `json:"body"`
	}, error) {
		status := sessionStatus{}
		if u, ok := e.Session.Current(); ok {
			status.Authenticated = true
			status.User = &u
		}
		return &struct {
			Body sessionStatus `json:"body"`
		}{Body: status}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, authErr := requireUser(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-me",
		Method:      http.MethodPatch,
		Path:        "/me",
		Summary:     "Update fields of the current user",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.UserPatch `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, authErr := requireUser(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.IsEmpty() {
			return &struct {
				Body domain.User `json:"body"`
			}{Body: u}, nil
		}
		updated, ok, err := e.UpdateUser(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		if !ok {
			return nil, handleError(domain.ErrNotAuthenticated)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-progress",
		Method:      http.MethodGet,
		Path:        "/me/progress",
		Summary:     "Level progress of the current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Progress `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		p, err := e.Progress()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Progress `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "my-referral",
		Method:      http.MethodGet,
		Path:        "/me/referral",
		Summary:     "Invite link of the current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Referral `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		ref, err := e.Referral()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Referral `json:"body"`
		}{Body: ref}, nil
	})
}

func registerLevels(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-levels",
		Method:      http.MethodGet,
		Path:        "/levels",
		Summary:     "Level tiers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body levelList `json:"body"`
	}, error) {
		return &struct {
			Body levelList `json:"body"`
		}{Body: levelList{Items: nonNilSlice(e.Levels())}}, nil
	})
}

func registerWallet(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "wallet",
		Method:      http.MethodGet,
		Path:        "/wallet",
		Summary:     "Balance and ledger totals",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body walletResponse `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		w, err := e.Wallet(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body walletResponse `json:"body"`
		}{Body: walletFromEngine(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-transactions",
		Method:      http.MethodGet,
		Path:        "/wallet/transactions",
		Summary:     "Ledger entries, newest first",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body transactionList `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		items, err := e.Transactions(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body transactionList `json:"body"`
		}{Body: transactionList{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw",
		Method:      http.MethodPost,
		Path:        "/wallet/withdrawals",
		Summary:     "Withdraw coins",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body withdrawRequest `json:"body"`
	}) (*struct {
		Body withdrawalResponse `json:"body"`
	}, error) {
		if _, authErr := requireUser(ctx, e); authErr != nil {
			return nil, authErr
		}
		w, err := e.Withdraw(ctx, input.Body.Coins)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body withdrawalResponse `json:"body"`
		}{Body: withdrawalResponse{
			Transaction: w.Transaction,
			User:        w.User,
			ValueINR:    w.ValueINR.StringFixed(2),
		}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent activity of the current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"task,user"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*struct {
		Body eventList `json:"body"`
	}, error) {
		u, authErr := requireUser(ctx, e)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListEvents(ctx, eventFilters(u.ID, input.Type, input.EntityKind, input.EntityID, normalizeLimit(input.Limit)))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body eventList `json:"body"`
		}{Body: eventList{Items: items}}, nil
	})
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}
