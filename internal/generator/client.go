package generator

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/quest-forensics/internal/fingerprint"
)

// #region service
const (
	serviceName    = "questgen.v1.ContentGenerator"
	generateMethod = "/" + serviceName + "/Generate"
)

// #endregion service

// #region client-struct
// Client calls a remote content generator over gRPC. Messages are
// google.protobuf.Struct on both sides.
type Client struct {
	conn *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to the generator service at addr. Without options the
// connection is plaintext and traced.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = DefaultDialOptions()
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// DefaultDialOptions returns the plaintext, traced dial options.
func DefaultDialOptions() []grpc.DialOption {
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// #endregion constructor

// #region generate
// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return Result{}, err
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, generateMethod, in, out); err != nil {
		if status.Code(err) == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("generate rpc: %w", ErrTimeout)
		}
		return Result{}, fmt.Errorf("generate rpc: %w", err)
	}
	return decodeResult(out), nil
}

// #endregion generate

// #region wire
func encodeRequest(req Request) (*structpb.Struct, error) {
	inputs, err := genericMap(req.Inputs)
	if err != nil {
		return nil, fmt.Errorf("encode inputs: %w", err)
	}
	params, err := genericMap(req.ModelParams)
	if err != nil {
		return nil, fmt.Errorf("encode model params: %w", err)
	}
	s, err := structpb.NewStruct(map[string]any{
		"content_id":   req.ContentID,
		"seed":         req.Seed,
		"inputs":       inputs,
		"model_params": params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

func decodeRequest(s *structpb.Struct) Request {
	m := s.AsMap()
	req := Request{}
	req.ContentID, _ = m["content_id"].(string)
	req.Seed, _ = m["seed"].(string)
	req.Inputs, _ = m["inputs"].(map[string]any)
	req.ModelParams, _ = m["model_params"].(map[string]any)
	return req
}

func encodeResult(r Result) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"text":   r.Text,
		"prompt": r.Prompt,
	})
}

func decodeResult(s *structpb.Struct) Result {
	return Result{
		Text:   s.GetFields()["text"].GetStringValue(),
		Prompt: s.GetFields()["prompt"].GetStringValue(),
	}
}

func genericMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	g, err := fingerprint.Generic(m)
	if err != nil {
		return nil, err
	}
	out, _ := g.(map[string]any)
	return out, nil
}

// #endregion wire
