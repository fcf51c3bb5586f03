package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/export"
	"github.com/joseph-ayodele/syllabus-review/internal/services/session"
)

// ReviewService exposes review sessions over gRPC.
type ReviewService struct {
	sessions *session.Service
	logger   *slog.Logger
}

func NewReviewService(sessions *session.Service, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewService{sessions: sessions, logger: logger}
}

func (s *ReviewService) ListSessions(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	list, err := s.sessions.List(ctx)
	if err != nil {
		s.logger.Error("grpc.list_sessions.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(list))}
	for _, sess := range list {
		st, err := toStruct(sess)
		if err != nil {
			return nil, common.InternalErrorf("encode session: %v", err)
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *ReviewService) GetTable(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id, err := session.ParseID(req.GetValue())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	tbl, err := s.sessions.Table(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	st, err := toStruct(tbl)
	if err != nil {
		return nil, common.InternalErrorf("encode table: %v", err)
	}
	return st, nil
}

func (s *ReviewService) UpdateCell(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	id, err := session.ParseID(fields["session_id"].GetStringValue())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	rowVal, hasRow := fields["row"]
	valueVal, hasValue := fields["value"]
	v := common.NewValidator()
	if !hasRow {
		v.Field("row", nil, common.Required)
	} else {
		v.Field("row", rowVal.GetNumberValue(), common.NonNegative)
	}
	if !hasValue {
		v.Field("value", nil, common.Required)
	}
	if err := v.Error(); err != nil {
		return nil, common.ToStatus(err)
	}

	row, err := s.sessions.UpdateCell(ctx, id, int(rowVal.GetNumberValue()), fields["column"].GetStringValue(), valueVal.GetStringValue())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	st, err := toStruct(row)
	if err != nil {
		return nil, common.InternalErrorf("encode row: %v", err)
	}
	return st, nil
}

func (s *ReviewService) ExportTable(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	fields := req.GetFields()
	id, err := session.ParseID(fields["session_id"].GetStringValue())
	if err != nil {
		return nil, common.ToStatus(err)
	}
	opts := export.Options{
		IncludeWarnings: fields["include_warnings"].GetBoolValue(),
		IncludeOrigins:  fields["include_origins"].GetBoolValue(),
	}
	data, err := s.sessions.Export(ctx, id, opts)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "session_id", id, "error", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(data), nil
}

// toStruct converts v through its JSON form so gRPC and HTTP clients see the same keys.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}
