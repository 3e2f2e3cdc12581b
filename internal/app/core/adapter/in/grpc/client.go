package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client 帳本服務的 gRPC 客戶端
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call 呼叫任一 unary 方法
//
// 參數:
//
//	ctx: 上下文
//	method: 方法名稱 (如 MethodPurchase)
//	req: 請求欄位，數字一律以 float64 傳送
//
// 回傳:
//
//	map[string]any: 回應欄位
//	error: gRPC status 錯誤
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Credit 入帳
func (c *Client) Credit(ctx context.Context, childID string, amount int64, description string) error {
	_, err := c.Call(ctx, MethodCredit, map[string]any{
		"child_id":    childID,
		"amount":      amount,
		"description": description,
	})
	return err
}

// Purchase 購買，回傳是否成功與拒絕原因
func (c *Client) Purchase(ctx context.Context, childID, itemID string) (bool, string, error) {
	resp, err := c.Call(ctx, MethodPurchase, map[string]any{"child_id": childID, "item_id": itemID})
	if err != nil {
		return false, "", err
	}
	ok, _ := resp["success"].(bool)
	msg, _ := resp["message"].(string)
	return ok, msg, nil
}

// TotalStars 讀取目前可用星星
func (c *Client) TotalStars(ctx context.Context, childID string) (int64, error) {
	resp, err := c.Call(ctx, MethodGetBalance, map[string]any{"child_id": childID})
	if err != nil {
		return 0, err
	}
	bal, _ := resp["balance"].(map[string]any)
	total, _ := bal["total_stars"].(float64)
	return int64(total), nil
}

// Watcher WatchChild 的串流
type Watcher struct {
	stream grpc.ClientStream
}

// Watch 訂閱小孩的帳本畫面
func (c *Client) Watch(ctx context.Context, childID string) (*Watcher, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], FullMethod(MethodWatchChild))
	if err != nil {
		return nil, err
	}
	in, err := structpb.NewStruct(map[string]any{"child_id": childID})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Recv 等待下一張畫面，串流結束時回傳 io.EOF
func (w *Watcher) Recv() (map[string]any, error) {
	out := new(structpb.Struct)
	if err := w.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	snap, _ := out.AsMap()["snapshot"].(map[string]any)
	return snap, nil
}
