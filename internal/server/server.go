package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	eventbus "github.com/michael-watson/federation/internal/eventbus"
	events "github.com/michael-watson/federation/internal/events"
	executor "github.com/michael-watson/federation/internal/executor"
	ftv1 "github.com/michael-watson/federation/internal/ftv1"
	language "github.com/michael-watson/federation/internal/language"
	plan "github.com/michael-watson/federation/internal/plan"
	reqid "github.com/michael-watson/federation/internal/reqid"
)

// Handler is an http.Handler serving the gateway's GraphQL endpoint. It
// parses requests, resolves the pre-compiled query plan for the operation,
// runs the executor, and formats responses per the GraphQL spec.
type Handler struct {
	exec  *executor.Executor
	plans plan.Source
	opt   Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Logger receives request-scoped diagnostics.
	Logger *slog.Logger

	// Metrics is handed to the executor through each request context.
	Metrics executor.MetricsSink
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(l *slog.Logger) Option          { return func(o *Options) { o.Logger = l } }
func WithMetrics(m executor.MetricsSink) Option { return func(o *Options) { o.Metrics = m } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates the gateway HTTP handler over an executor and a plan source.
func New(exec *executor.Executor, plans plan.Source, opts ...Option) (*Handler, error) {
	if exec == nil {
		return nil, errors.New("server: executor is required")
	}
	if plans == nil {
		return nil, errors.New("server: plan source is required")
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: exec, plans: plans, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, _ = reqid.NewContext(ctx)
	}
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if r.Method == http.MethodOptions {
		if len(h.opt.CORS.AllowedOrigins) > 0 {
			setCORSHeaders(w, r, h.opt.CORS)
		}
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResult("method not allowed"), h.opt.Pretty)
		return
	}

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}

	req, batch, perr := parseRequest(r, h.opt.MaxBodyBytes)
	if perr != nil {
		status = http.StatusBadRequest
		if perr.Error() == errBodyTooLargeMessage {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorResult(perr.Error()), h.opt.Pretty)
		return
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeOne(ctx, r, batch[i])
		}
		writeJSON(w, status, out, h.opt.Pretty)
		return
	}

	writeJSON(w, status, h.executeOne(ctx, r, req), h.opt.Pretty)
}

func (h *Handler) executeOne(ctx context.Context, r *http.Request, req GraphQLRequest) any {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return errorResult(err.Error())
	}
	opCtx := executor.NewOperationContext(doc, req.OperationName)
	if opCtx.Operation == nil {
		return errorResult("operation not found")
	}

	queryPlan, err := h.plans.Plan(ctx, plan.Operation{
		Query:         req.Query,
		OperationName: req.OperationName,
	})
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return errorResult("no pre-compiled query plan for this operation")
		}
		return errorResult(err.Error())
	}

	captureTraces := r.Header.Get("apollo-federation-include-trace") == "ftv1"
	reqCtx := &executor.RequestContext{
		Variables:     req.Variables,
		Headers:       r.Header,
		Logger:        h.opt.Logger,
		Metrics:       h.opt.Metrics,
		CaptureTraces: captureTraces,
	}

	opStart := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opCtx.OperationKind(),
	})
	result := h.exec.Execute(ctx, queryPlan, opCtx, reqCtx)
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opCtx.OperationKind(),
		Errors:        errs,
		Duration:      time.Since(opStart),
	})

	return toSpecResult(result, captureTraces)
}

// ------------------ Request parsing ------------------

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

const errBodyTooLargeMessage = "body too large"

func parseRequest(r *http.Request, maxBody int64) (GraphQLRequest, []GraphQLRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query().Get("query")
		if q == "" {
			return GraphQLRequest{}, nil, errors.New("missing 'query'")
		}
		vars := map[string]any{}
		if v := r.URL.Query().Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &vars); err != nil {
				return GraphQLRequest{}, nil, errors.New("invalid 'variables' JSON")
			}
		}
		op := r.URL.Query().Get("operationName")
		return GraphQLRequest{Query: q, Variables: vars, OperationName: op}, nil, nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && ct != "application/json" && !strings.HasPrefix(ct, "application/json;") {
		return GraphQLRequest{}, nil, errors.New("unsupported Content-Type")
	}
	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return GraphQLRequest{}, nil, errors.New("failed to read body")
	}
	defer r.Body.Close()
	if maxBody > 0 && int64(len(body)) > maxBody {
		return GraphQLRequest{}, nil, errors.New(errBodyTooLargeMessage)
	}

	// An array body is a batch of requests.
	if len(body) > 0 && body[0] == '[' {
		var arr []GraphQLRequest
		if err := json.Unmarshal(body, &arr); err != nil {
			return GraphQLRequest{}, nil, errors.New("invalid JSON")
		}
		if len(arr) == 0 {
			return GraphQLRequest{}, nil, errors.New("empty batch")
		}
		return GraphQLRequest{}, arr, nil
	}

	var req GraphQLRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return GraphQLRequest{}, nil, errors.New("invalid JSON")
	}
	if req.Query == "" {
		return GraphQLRequest{}, nil, errors.New("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return req, nil, nil
}

// ------------------ Response formatting ------------------

type specResult struct {
	Data       any                     `json:"data,omitempty"`
	Errors     []executor.GraphQLError `json:"errors,omitempty"`
	Extensions map[string]any          `json:"extensions,omitempty"`
}

func errorResult(message string) specResult {
	return specResult{Errors: []executor.GraphQLError{{Message: message}}}
}

func toSpecResult(res *executor.ExecutionResult, captureTraces bool) specResult {
	out := specResult{Errors: res.Errors}
	if res.Data != nil {
		out.Data = res.Data
	}
	if captureTraces && res.Trace != nil {
		if encoded, err := ftv1.EncodeQueryPlan(res.Trace); err == nil {
			out.Extensions = map[string]any{"ftv1": encoded}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	wildcard := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			allowed = true
			wildcard = true
		}
		if o == origin {
			allowed = true
		}
	}
	if !allowed {
		return
	}
	if wildcard {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}
