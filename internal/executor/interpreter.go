package executor

import (
	"context"
	"fmt"
	"sync"

	ftv1 "github.com/michael-watson/federation/internal/ftv1"
	plan "github.com/michael-watson/federation/internal/plan"
)

// executeNode interprets one plan node against a cursor and returns a trace
// node mirroring the plan's structure. The returned error is non-nil only
// for unsupported plan nodes, which are fatal to the whole request; fetch
// failures are recorded on the execution context and interpretation
// continues.
func (ec *executionContext) executeNode(ctx context.Context, node plan.Node, cur cursor) (*ftv1.QueryPlanNode, error) {
	switch n := node.(type) {
	case *plan.SequenceNode:
		children := make([]*ftv1.QueryPlanNode, len(n.Nodes))
		for i, child := range n.Nodes {
			if ctx.Err() != nil {
				children[i] = skeletonTraceNode(child)
				continue
			}
			traced, err := ec.executeNode(ctx, child, cur)
			if err != nil {
				return nil, err
			}
			children[i] = traced
		}
		return &ftv1.QueryPlanNode{Sequence: &ftv1.SequenceNode{Nodes: children}}, nil

	case *plan.ParallelNode:
		children := make([]*ftv1.QueryPlanNode, len(n.Nodes))
		errs := make([]error, len(n.Nodes))
		var wg sync.WaitGroup
		for i, child := range n.Nodes {
			wg.Add(1)
			go func(i int, child plan.Node) {
				defer wg.Done()
				children[i], errs[i] = ec.executeNode(ctx, child, cur)
			}(i, child)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return &ftv1.QueryPlanNode{Parallel: &ftv1.ParallelNode{Nodes: children}}, nil

	case *plan.FlattenNode:
		flatten := &ftv1.FlattenNode{ResponsePath: tracePath(n.Path)}
		var next cursor
		var ok bool
		ec.withTreeLock(func() {
			next, ok = cur.move(n.Path)
		})
		if !ok {
			// Dead path: nothing to fetch below, but the trace stays
			// structurally complete.
			flatten.Node = skeletonTraceNode(n.Node)
			return &ftv1.QueryPlanNode{Flatten: flatten}, nil
		}
		child, err := ec.executeNode(ctx, n.Node, next)
		if err != nil {
			return nil, err
		}
		flatten.Node = child
		return &ftv1.QueryPlanNode{Flatten: flatten}, nil

	case *plan.FetchNode:
		traceNode := &ftv1.FetchNode{ServiceName: n.ServiceName}
		if ctx.Err() == nil {
			if err := ec.executeFetch(ctx, n, cur, traceNode); err != nil {
				ec.pushErrors(fetchFailureError(err, n.ServiceName))
				ec.requestContext.logger().Error("fetch failed",
					"service", n.ServiceName, "error", err)
			}
		}
		return &ftv1.QueryPlanNode{Fetch: traceNode}, nil

	case *plan.DeferNode:
		return nil, &unsupportedPlanNodeError{kind: "Defer"}
	case *plan.ConditionNode:
		return nil, &unsupportedPlanNodeError{kind: "Condition"}
	default:
		return nil, &unsupportedPlanNodeError{kind: fmt.Sprintf("%T", node)}
	}
}

// skeletonTraceNode mirrors a plan subtree without executing it, for
// branches skipped by dead cursors or cancellation.
func skeletonTraceNode(node plan.Node) *ftv1.QueryPlanNode {
	switch n := node.(type) {
	case *plan.SequenceNode:
		children := make([]*ftv1.QueryPlanNode, len(n.Nodes))
		for i, child := range n.Nodes {
			children[i] = skeletonTraceNode(child)
		}
		return &ftv1.QueryPlanNode{Sequence: &ftv1.SequenceNode{Nodes: children}}
	case *plan.ParallelNode:
		children := make([]*ftv1.QueryPlanNode, len(n.Nodes))
		for i, child := range n.Nodes {
			children[i] = skeletonTraceNode(child)
		}
		return &ftv1.QueryPlanNode{Parallel: &ftv1.ParallelNode{Nodes: children}}
	case *plan.FlattenNode:
		return &ftv1.QueryPlanNode{Flatten: &ftv1.FlattenNode{
			ResponsePath: tracePath(n.Path),
			Node:         skeletonTraceNode(n.Node),
		}}
	case *plan.FetchNode:
		return &ftv1.QueryPlanNode{Fetch: &ftv1.FetchNode{ServiceName: n.ServiceName}}
	default:
		return &ftv1.QueryPlanNode{}
	}
}

func tracePath(p plan.ResponsePath) []ftv1.ResponsePathElement {
	out := make([]ftv1.ResponsePathElement, 0, len(p))
	for _, elem := range p {
		switch v := elem.(type) {
		case string:
			out = append(out, ftv1.FieldNameElement(v))
		case int:
			out = append(out, ftv1.IndexElement(uint32(v)))
		}
	}
	return out
}
