package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/JoeShih716/go-star-ledger/internal/app/core/domain"
)

// stringField 讀取字串欄位，缺少時回傳空字串
func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// intField 讀取整數欄位，缺少時回傳 0，非整數回傳 InvalidArgument
func intField(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > 1<<53 {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
	}
	return int64(n.NumberValue), nil
}

// timeField 讀取 RFC3339 時間欄位，缺少時回傳零值
func timeField(req *structpb.Struct, key string) (time.Time, error) {
	s := stringField(req, key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	return t.UTC(), nil
}

// reply 把回應欄位轉成 Struct，domain 型別透過 JSON tag 轉換
func reply(fields map[string]any) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(fields))}
	for k, v := range fields {
		val, err := toValue(v)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "encode %s: %v", k, err)
		}
		out.Fields[k] = val
	}
	return out, nil
}

func toValue(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case string, bool, float64, int, int64, nil:
		return structpb.NewValue(x)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}

// declined 軟性失敗 (Soft Failure)：請求合法但被帳本規則拒絕
func declined(message string) (*structpb.Struct, error) {
	return reply(map[string]any{"success": false, "message": message})
}

// toStatus 把 domain 錯誤轉成 gRPC status
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrSubmissionNotPending), errors.Is(err, domain.ErrRedemptionFulfilled):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrBackendUnavailable):
		code = codes.Unavailable
	case errors.Is(err, domain.ErrRetriesExhausted), errors.Is(err, domain.ErrConflict):
		code = codes.Aborted
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
