package executor

import (
	"errors"
	"fmt"

	datasource "github.com/michael-watson/federation/internal/datasource"
	plan "github.com/michael-watson/federation/internal/plan"
)

// Path locates a value in the response tree; elements are field names
// (string) or array indices (int).
type Path = plan.ResponsePath

// Location is a position in the client operation source.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is an error surfaced in the response envelope.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string { return e.Message }

// Error codes carried in extensions.code.
const (
	// CodeDownstreamServiceError marks errors relayed from a subgraph whose
	// own code was absent or unrecognizable.
	CodeDownstreamServiceError = "DOWNSTREAM_SERVICE_ERROR"
	// CodeInternalError marks unexpected executor failures.
	CodeInternalError = "INTERNAL_SERVER_ERROR"
	// CodeUnsupportedPlanNode marks plans containing Defer or Condition
	// nodes, which this executor does not interpret.
	CodeUnsupportedPlanNode = "UNSUPPORTED_PLAN_NODE"
)

var (
	errExpectedEntitiesArray = errors.New(`expected "data._entities" in response to be an array`)
	errRepresentationsVar    = errors.New(`variables cannot contain key "representations"`)
)

func missingServiceError(name string) error {
	return fmt.Errorf("couldn't find service with name %q", name)
}

func entityCountMismatchError(want, got int) error {
	return fmt.Errorf(`expected "data._entities" to contain %d elements, got %d`, want, got)
}

// unsupportedPlanNodeError is fatal to the request: the plan was produced for
// a more capable executor.
type unsupportedPlanNodeError struct {
	kind string
}

func (e *unsupportedPlanNodeError) Error() string {
	return fmt.Sprintf("query plan contains an unsupported %s node", e.kind)
}

// downstreamServiceError relays one subgraph error, stamping the originating
// service and the hydrated response path. The subgraph's own code is kept
// when it sent one; otherwise the generic downstream code applies.
func downstreamServiceError(src *datasource.Error, serviceName string, path Path) GraphQLError {
	extensions := make(map[string]any, len(src.Extensions)+2)
	for k, v := range src.Extensions {
		extensions[k] = v
	}
	if code, ok := extensions["code"].(string); !ok || code == "" {
		extensions["code"] = CodeDownstreamServiceError
	}
	extensions["serviceName"] = serviceName

	ge := GraphQLError{
		Message:    src.Message,
		Path:       path,
		Extensions: extensions,
	}
	for _, loc := range src.Locations {
		ge.Locations = append(ge.Locations, Location{Line: loc.Line, Column: loc.Column})
	}
	return ge
}

// fetchFailureError wraps a fetch-layer failure (missing service, malformed
// entities payload, transport error) as a GraphQL error stamped with the
// service name; it carries no path or locations.
func fetchFailureError(err error, serviceName string) GraphQLError {
	return GraphQLError{
		Message: err.Error(),
		Extensions: map[string]any{
			"code":        CodeDownstreamServiceError,
			"serviceName": serviceName,
		},
	}
}

// ErrorCode reads extensions.code from an error entry, if any.
func (e GraphQLError) ErrorCode() string {
	if e.Extensions == nil {
		return ""
	}
	code, _ := e.Extensions["code"].(string)
	return code
}

// ServiceName reads extensions.serviceName from an error entry, if any.
func (e GraphQLError) ServiceName() string {
	if e.Extensions == nil {
		return ""
	}
	name, _ := e.Extensions["serviceName"].(string)
	return name
}
