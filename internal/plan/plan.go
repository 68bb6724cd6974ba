package plan

import (
	"encoding/json"
	"fmt"

	language "github.com/michael-watson/federation/internal/language"
)

// QueryPlan is the planner-produced tree the executor interprets. Root may be
// nil for operations that resolve without any subgraph fetch.
type QueryPlan struct {
	Root Node
}

// Node is one node of the plan tree. The executor dispatches on the concrete
// type: SequenceNode, ParallelNode, FlattenNode, FetchNode. DeferNode and
// ConditionNode are recognized by the decoder but rejected by the executor.
type Node interface {
	isPlanNode()
}

// SequenceNode executes its children left to right over the same cursor.
type SequenceNode struct {
	Nodes []Node
}

// ParallelNode executes its children concurrently over the same cursor.
type ParallelNode struct {
	Nodes []Node
}

// FlattenNode moves the cursor down Path (which may contain FlattenElement)
// before executing its child.
type FlattenNode struct {
	Path ResponsePath
	Node Node
}

// FetchNode issues one operation against a named subgraph service.
type FetchNode struct {
	ServiceName    string
	Operation      string
	OperationName  string
	VariableUsages []string
	// Requires, when present, lists the key fields needed to build entity
	// representations; the fetch then goes through the _entities protocol.
	Requires       []Selection
	InputRewrites  []InputRewrite
	OutputRewrites []OutputRewrite
	// Document is the parsed form of Operation, populated at decode time.
	Document *language.QueryDocument
}

// DeferNode and ConditionNode exist in newer plan formats; this executor does
// not support them and fails the request when one is reached.
type DeferNode struct{}

type ConditionNode struct{}

func (*SequenceNode) isPlanNode()  {}
func (*ParallelNode) isPlanNode()  {}
func (*FlattenNode) isPlanNode()   {}
func (*FetchNode) isPlanNode()     {}
func (*DeferNode) isPlanNode()     {}
func (*ConditionNode) isPlanNode() {}

type nodeJSON struct {
	Kind           string            `json:"kind"`
	Nodes          []json.RawMessage `json:"nodes"`
	Node           json.RawMessage   `json:"node"`
	Path           ResponsePath      `json:"path"`
	ServiceName    string            `json:"serviceName"`
	Operation      string            `json:"operation"`
	OperationName  string            `json:"operationName"`
	VariableUsages []string          `json:"variableUsages"`
	Requires       []json.RawMessage `json:"requires"`
	InputRewrites  []json.RawMessage `json:"inputRewrites"`
	OutputRewrites []json.RawMessage `json:"outputRewrites"`
}

// Decode parses a serialized query plan. The top-level document is either a
// node or {"kind": "QueryPlan", "node": ...}.
func Decode(data []byte) (*QueryPlan, error) {
	var top nodeJSON
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode query plan: %w", err)
	}
	if top.Kind == "QueryPlan" {
		if len(top.Node) == 0 {
			return &QueryPlan{}, nil
		}
		root, err := decodeNode(top.Node)
		if err != nil {
			return nil, err
		}
		return &QueryPlan{Root: root}, nil
	}
	root, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Root: root}, nil
}

func decodeNode(data []byte) (Node, error) {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode plan node: %w", err)
	}
	switch raw.Kind {
	case "Sequence":
		nodes, err := decodeNodes(raw.Nodes)
		if err != nil {
			return nil, err
		}
		return &SequenceNode{Nodes: nodes}, nil
	case "Parallel":
		nodes, err := decodeNodes(raw.Nodes)
		if err != nil {
			return nil, err
		}
		return &ParallelNode{Nodes: nodes}, nil
	case "Flatten":
		if len(raw.Node) == 0 {
			return nil, fmt.Errorf("flatten node without child")
		}
		child, err := decodeNode(raw.Node)
		if err != nil {
			return nil, err
		}
		return &FlattenNode{Path: raw.Path, Node: child}, nil
	case "Fetch":
		return decodeFetch(&raw)
	case "Defer":
		return &DeferNode{}, nil
	case "Condition":
		return &ConditionNode{}, nil
	default:
		return nil, fmt.Errorf("unsupported plan node kind %q", raw.Kind)
	}
}

func decodeNodes(raw []json.RawMessage) ([]Node, error) {
	nodes := make([]Node, 0, len(raw))
	for _, r := range raw {
		n, err := decodeNode(r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeFetch(raw *nodeJSON) (*FetchNode, error) {
	if raw.ServiceName == "" {
		return nil, fmt.Errorf("fetch node without serviceName")
	}
	if raw.Operation == "" {
		return nil, fmt.Errorf("fetch node for service %q without operation", raw.ServiceName)
	}
	requires, err := decodeSelections(raw.Requires)
	if err != nil {
		return nil, fmt.Errorf("fetch node for service %q: %w", raw.ServiceName, err)
	}
	inputRewrites, err := decodeInputRewrites(raw.InputRewrites)
	if err != nil {
		return nil, fmt.Errorf("fetch node for service %q: %w", raw.ServiceName, err)
	}
	outputRewrites, err := decodeOutputRewrites(raw.OutputRewrites)
	if err != nil {
		return nil, fmt.Errorf("fetch node for service %q: %w", raw.ServiceName, err)
	}
	doc, err := language.ParseQuery(raw.Operation)
	if err != nil {
		return nil, fmt.Errorf("fetch node for service %q: parse operation: %w", raw.ServiceName, err)
	}
	return &FetchNode{
		ServiceName:    raw.ServiceName,
		Operation:      raw.Operation,
		OperationName:  raw.OperationName,
		VariableUsages: raw.VariableUsages,
		Requires:       requires,
		InputRewrites:  inputRewrites,
		OutputRewrites: outputRewrites,
		Document:       doc,
	}, nil
}
