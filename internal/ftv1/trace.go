// Package ftv1 implements the federated trace protocol: the query-plan trace
// tree the gateway builds while interpreting a plan, and the per-fetch trace
// payload a subgraph returns base64-encoded under extensions.ftv1.
package ftv1

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// QueryPlanNode mirrors one plan node in the trace tree. Exactly one of the
// variant fields is set.
type QueryPlanNode struct {
	Sequence *SequenceNode
	Parallel *ParallelNode
	Fetch    *FetchNode
	Flatten  *FlattenNode
}

type SequenceNode struct {
	Nodes []*QueryPlanNode
}

type ParallelNode struct {
	Nodes []*QueryPlanNode
}

// FetchNode records the timing of one subgraph fetch plus the subgraph's own
// trace when it returned one.
type FetchNode struct {
	ServiceName        string
	TraceParsingFailed bool
	Trace              *Trace
	// SentTimeOffset is the monotonic delta from request start, in
	// nanoseconds.
	SentTimeOffset uint64
	SentTime       *timestamppb.Timestamp
	ReceivedTime   *timestamppb.Timestamp
}

type FlattenNode struct {
	ResponsePath []ResponsePathElement
	Node         *QueryPlanNode
}

// ResponsePathElement is one-of a field name or an array index.
type ResponsePathElement struct {
	FieldName *string
	Index     *uint32
}

func FieldNameElement(name string) ResponsePathElement {
	return ResponsePathElement{FieldName: &name}
}

func IndexElement(i uint32) ResponsePathElement {
	return ResponsePathElement{Index: &i}
}

// Trace wraps a decoded subgraph trace message.
type Trace struct {
	msg *dynamicpb.Message
}

// DecodeTrace decodes a base64 FTv1 payload into a Trace.
func DecodeTrace(encoded string) (*Trace, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("ftv1: decode base64: %w", err)
	}
	msg := dynamicpb.NewMessage(traceDesc)
	if err := proto.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("ftv1: unmarshal trace: %w", err)
	}
	return &Trace{msg: msg}, nil
}

// Message exposes the underlying proto message.
func (t *Trace) Message() proto.Message { return t.msg }

// RootChildParentTypes returns the parent_type of every child under the trace
// root, in order.
func (t *Trace) RootChildParentTypes() []string {
	rootField := traceDesc.Fields().ByName("root")
	if !t.msg.Has(rootField) {
		return nil
	}
	root := t.msg.Get(rootField).Message()
	children := root.Get(nodeDesc.Fields().ByName("child")).List()
	out := make([]string, children.Len())
	for i := 0; i < children.Len(); i++ {
		out[i] = children.Get(i).Message().Get(nodeDesc.Fields().ByName("parent_type")).String()
	}
	return out
}

// OverrideRootParentType sets parent_type on every direct child of the trace
// root to the canonical root operation type name.
func (t *Trace) OverrideRootParentType(rootTypeName string) {
	rootField := traceDesc.Fields().ByName("root")
	if !t.msg.Has(rootField) {
		return
	}
	root := t.msg.Mutable(rootField).Message()
	children := root.Mutable(nodeDesc.Fields().ByName("child")).List()
	parentType := nodeDesc.Fields().ByName("parent_type")
	for i := 0; i < children.Len(); i++ {
		children.Get(i).Message().Set(parentType, protoreflect.ValueOfString(rootTypeName))
	}
}

// MarshalQueryPlan serializes a query-plan trace tree to proto bytes, wrapped
// in a Trace envelope.
func MarshalQueryPlan(node *QueryPlanNode) ([]byte, error) {
	env := dynamicpb.NewMessage(traceDesc)
	if node != nil {
		env.Set(traceDesc.Fields().ByName("query_plan"), protoreflect.ValueOfMessage(node.message()))
	}
	return proto.Marshal(env)
}

// EncodeQueryPlan serializes a query-plan trace tree and base64-encodes it
// for transport in response extensions.
func EncodeQueryPlan(node *QueryPlanNode) (string, error) {
	raw, err := MarshalQueryPlan(node)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeQueryPlan is the inverse of EncodeQueryPlan; it returns the dynamic
// Trace envelope for inspection.
func DecodeQueryPlan(encoded string) (proto.Message, error) {
	trace, err := DecodeTrace(encoded)
	if err != nil {
		return nil, err
	}
	return trace.msg, nil
}

func (n *QueryPlanNode) message() *dynamicpb.Message {
	msg := dynamicpb.NewMessage(queryPlanDesc)
	fields := queryPlanDesc.Fields()
	switch {
	case n.Sequence != nil:
		msg.Set(fields.ByName("sequence"), protoreflect.ValueOfMessage(nodeListMessage(sequenceDesc, n.Sequence.Nodes)))
	case n.Parallel != nil:
		msg.Set(fields.ByName("parallel"), protoreflect.ValueOfMessage(nodeListMessage(parallelDesc, n.Parallel.Nodes)))
	case n.Fetch != nil:
		msg.Set(fields.ByName("fetch"), protoreflect.ValueOfMessage(n.Fetch.message()))
	case n.Flatten != nil:
		msg.Set(fields.ByName("flatten"), protoreflect.ValueOfMessage(n.Flatten.message()))
	}
	return msg
}

func nodeListMessage(desc protoreflect.MessageDescriptor, nodes []*QueryPlanNode) *dynamicpb.Message {
	msg := dynamicpb.NewMessage(desc)
	list := msg.Mutable(desc.Fields().ByName("nodes")).List()
	for _, n := range nodes {
		if n == nil {
			continue
		}
		list.Append(protoreflect.ValueOfMessage(n.message()))
	}
	return msg
}

func (f *FetchNode) message() *dynamicpb.Message {
	msg := dynamicpb.NewMessage(fetchDesc)
	fields := fetchDesc.Fields()
	msg.Set(fields.ByName("service_name"), protoreflect.ValueOfString(f.ServiceName))
	if f.TraceParsingFailed {
		msg.Set(fields.ByName("trace_parsing_failed"), protoreflect.ValueOfBool(true))
	}
	if f.Trace != nil {
		msg.Set(fields.ByName("trace"), protoreflect.ValueOfMessage(f.Trace.msg))
	}
	if f.SentTimeOffset != 0 {
		msg.Set(fields.ByName("sent_time_offset"), protoreflect.ValueOfUint64(f.SentTimeOffset))
	}
	if f.SentTime != nil {
		msg.Set(fields.ByName("sent_time"), protoreflect.ValueOfMessage(f.SentTime.ProtoReflect()))
	}
	if f.ReceivedTime != nil {
		msg.Set(fields.ByName("received_time"), protoreflect.ValueOfMessage(f.ReceivedTime.ProtoReflect()))
	}
	return msg
}

func (f *FlattenNode) message() *dynamicpb.Message {
	msg := dynamicpb.NewMessage(flattenDesc)
	fields := flattenDesc.Fields()
	if len(f.ResponsePath) > 0 {
		list := msg.Mutable(fields.ByName("response_path")).List()
		for _, elem := range f.ResponsePath {
			pe := dynamicpb.NewMessage(pathElementDesc)
			switch {
			case elem.FieldName != nil:
				pe.Set(pathElementDesc.Fields().ByName("field_name"), protoreflect.ValueOfString(*elem.FieldName))
			case elem.Index != nil:
				pe.Set(pathElementDesc.Fields().ByName("index"), protoreflect.ValueOfUint32(*elem.Index))
			}
			list.Append(protoreflect.ValueOfMessage(pe))
		}
	}
	if f.Node != nil {
		msg.Set(fields.ByName("node"), protoreflect.ValueOfMessage(f.Node.message()))
	}
	return msg
}
