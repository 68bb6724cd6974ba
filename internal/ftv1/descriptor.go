package ftv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/timestamppb"
)

// The federated trace schema is constructed programmatically rather than
// generated from a .proto file on disk. The descriptors below define the
// wire format for both directions: the query-plan trace the gateway emits
// and the per-fetch trace a subgraph returns under extensions.ftv1.

var (
	traceDesc       protoreflect.MessageDescriptor
	nodeDesc        protoreflect.MessageDescriptor
	errorDesc       protoreflect.MessageDescriptor
	locationDesc    protoreflect.MessageDescriptor
	queryPlanDesc   protoreflect.MessageDescriptor
	sequenceDesc    protoreflect.MessageDescriptor
	parallelDesc    protoreflect.MessageDescriptor
	fetchDesc       protoreflect.MessageDescriptor
	flattenDesc     protoreflect.MessageDescriptor
	pathElementDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(traceFileProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("ftv1: build trace descriptors: %v", err))
	}
	traceDesc = fd.Messages().ByName("Trace")
	nodeDesc = traceDesc.Messages().ByName("Node")
	errorDesc = traceDesc.Messages().ByName("Error")
	locationDesc = traceDesc.Messages().ByName("Location")
	queryPlanDesc = traceDesc.Messages().ByName("QueryPlanNode")
	sequenceDesc = queryPlanDesc.Messages().ByName("SequenceNode")
	parallelDesc = queryPlanDesc.Messages().ByName("ParallelNode")
	fetchDesc = queryPlanDesc.Messages().ByName("FetchNode")
	flattenDesc = queryPlanDesc.Messages().ByName("FlattenNode")
	pathElementDesc = queryPlanDesc.Messages().ByName("ResponsePathElement")
}

func traceFileProto() *descriptorpb.FileDescriptorProto {
	str := func(s string) *string { return &s }
	label := func(l descriptorpb.FieldDescriptorProto_Label) *descriptorpb.FieldDescriptorProto_Label { return &l }
	ftype := func(t descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto_Type { return &t }

	field := func(name string, number int32, t descriptorpb.FieldDescriptorProto_Type, typeName string, repeated bool) *descriptorpb.FieldDescriptorProto {
		f := &descriptorpb.FieldDescriptorProto{
			Name:   str(name),
			Number: proto.Int32(number),
			Type:   ftype(t),
			Label:  label(descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL),
		}
		if repeated {
			f.Label = label(descriptorpb.FieldDescriptorProto_LABEL_REPEATED)
		}
		if typeName != "" {
			f.TypeName = str(typeName)
		}
		return f
	}
	oneof := func(f *descriptorpb.FieldDescriptorProto, index int32) *descriptorpb.FieldDescriptorProto {
		f.OneofIndex = proto.Int32(index)
		return f
	}

	locationMsg := &descriptorpb.DescriptorProto{
		Name: str("Location"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("line", 1, descriptorpb.FieldDescriptorProto_TYPE_UINT32, "", false),
			field("column", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT32, "", false),
		},
	}
	errorMsg := &descriptorpb.DescriptorProto{
		Name: str("Error"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("message", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
			field("location", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.Location", true),
			field("time_ns", 3, descriptorpb.FieldDescriptorProto_TYPE_UINT64, "", false),
			field("json", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
		},
	}
	nodeMsg := &descriptorpb.DescriptorProto{
		Name: str("Node"),
		Field: []*descriptorpb.FieldDescriptorProto{
			oneof(field("response_name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false), 0),
			oneof(field("index", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT32, "", false), 0),
			field("original_field_name", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
			field("type", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
			field("parent_type", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
			field("start_time", 6, descriptorpb.FieldDescriptorProto_TYPE_UINT64, "", false),
			field("end_time", 7, descriptorpb.FieldDescriptorProto_TYPE_UINT64, "", false),
			field("error", 8, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.Error", true),
			field("child", 9, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.Node", true),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: str("id")}},
	}
	pathElementMsg := &descriptorpb.DescriptorProto{
		Name: str("ResponsePathElement"),
		Field: []*descriptorpb.FieldDescriptorProto{
			oneof(field("field_name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false), 0),
			oneof(field("index", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT32, "", false), 0),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: str("id")}},
	}
	sequenceMsg := &descriptorpb.DescriptorProto{
		Name: str("SequenceNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("nodes", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode", true),
		},
	}
	parallelMsg := &descriptorpb.DescriptorProto{
		Name: str("ParallelNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("nodes", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode", true),
		},
	}
	fetchMsg := &descriptorpb.DescriptorProto{
		Name: str("FetchNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("service_name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, "", false),
			field("trace_parsing_failed", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL, "", false),
			field("trace", 3, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace", false),
			field("sent_time_offset", 4, descriptorpb.FieldDescriptorProto_TYPE_UINT64, "", false),
			field("sent_time", 5, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".google.protobuf.Timestamp", false),
			field("received_time", 6, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".google.protobuf.Timestamp", false),
		},
	}
	flattenMsg := &descriptorpb.DescriptorProto{
		Name: str("FlattenNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("response_path", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode.ResponsePathElement", true),
			field("node", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode", false),
		},
	}
	queryPlanMsg := &descriptorpb.DescriptorProto{
		Name: str("QueryPlanNode"),
		Field: []*descriptorpb.FieldDescriptorProto{
			oneof(field("sequence", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode.SequenceNode", false), 0),
			oneof(field("parallel", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode.ParallelNode", false), 0),
			oneof(field("fetch", 3, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode.FetchNode", false), 0),
			oneof(field("flatten", 4, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode.FlattenNode", false), 0),
		},
		OneofDecl:  []*descriptorpb.OneofDescriptorProto{{Name: str("node")}},
		NestedType: []*descriptorpb.DescriptorProto{sequenceMsg, parallelMsg, fetchMsg, flattenMsg, pathElementMsg},
	}
	traceMsg := &descriptorpb.DescriptorProto{
		Name: str("Trace"),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("start_time", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".google.protobuf.Timestamp", false),
			field("end_time", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".google.protobuf.Timestamp", false),
			field("duration_ns", 3, descriptorpb.FieldDescriptorProto_TYPE_UINT64, "", false),
			field("root", 4, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.Node", false),
			field("query_plan", 5, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".federation.trace.Trace.QueryPlanNode", false),
		},
		NestedType: []*descriptorpb.DescriptorProto{nodeMsg, locationMsg, errorMsg, queryPlanMsg},
	}

	return &descriptorpb.FileDescriptorProto{
		Name:       str("federation/trace.proto"),
		Package:    str("federation.trace"),
		Syntax:     str("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			traceMsg,
		},
	}
}
