package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/internal/services/hybrid"
)

// Classifier service. Requests and replies are google.protobuf.Struct
// documents with the same fields as the JSON/HTTP model server.
const (
	ServiceName = "agrisoil.classifier.v1.Classifier"

	methodClassifySoil  = "/" + ServiceName + "/ClassifySoil"
	methodRecommendCrop = "/" + ServiceName + "/RecommendCrop"
)

// GRPCClient implements hybrid.SoilClassifier and hybrid.CropClassifier
// against a remote Classifier service.
type GRPCClient struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

var (
	_ hybrid.SoilClassifier = (*GRPCClient)(nil)
	_ hybrid.CropClassifier = (*GRPCClient)(nil)
	_ hybrid.SoilClassifier = (*HTTPClient)(nil)
	_ hybrid.CropClassifier = (*HTTPClient)(nil)
)

// DialGRPC opens a lazy connection to addr; the first call connects.
func DialGRPC(addr string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("classifier: empty grpc address")
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial classifier (%s): %w", addr, err)
	}
	c := NewGRPCClient(conn, timeout)
	c.closer = conn.Close
	return c, nil
}

// NewGRPCClient wraps an existing connection. timeout <= 0 leaves the
// caller's deadline alone.
func NewGRPCClient(conn grpc.ClientConnInterface, timeout time.Duration) *GRPCClient {
	return &GRPCClient{conn: conn, timeout: timeout}
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *GRPCClient) Classify(ctx context.Context, in entities.EnvironmentalInput) (entities.SoilPrediction, error) {
	var out soilPayload
	if err := c.invoke(ctx, methodClassifySoil, hybrid.PortSoil, in, &out); err != nil {
		return entities.SoilPrediction{}, err
	}
	if out.Label == "" {
		return entities.SoilPrediction{}, fmt.Errorf("ClassifySoil: missing soil label: %w", ErrBadResponse)
	}
	return out.SoilPrediction, nil
}

func (c *GRPCClient) Recommend(ctx context.Context, in entities.EnvironmentalInput) (entities.CropPrediction, error) {
	var out cropPayload
	if err := c.invoke(ctx, methodRecommendCrop, hybrid.PortCrop, in, &out); err != nil {
		return entities.CropPrediction{}, err
	}
	return out.CropPrediction, nil
}

func (c *GRPCClient) invoke(ctx context.Context, method, port string, in entities.EnvironmentalInput, out any) (err error) {
	start := time.Now()
	defer func() {
		callsTotal.WithLabelValues("grpc", port, outcome(err)).Inc()
		callDuration.WithLabelValues("grpc", port).Observe(time.Since(start).Seconds())
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := structpb.NewStruct(inputFields(in))
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, reply); err != nil {
		return fmt.Errorf("%s rpc: %w", port, err)
	}
	return decodeStruct(reply, out)
}

// ---------- Server side ----------

// Server exposes Go-side classifiers as the Classifier service.
type Server struct {
	soil hybrid.SoilClassifier
	crop hybrid.CropClassifier
}

type classifierServer interface {
	ClassifySoil(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecommendCrop(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var classifierServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*classifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ClassifySoil", Handler: classifySoilHandler},
		{MethodName: "RecommendCrop", Handler: recommendCropHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agrisoil/classifier/v1/classifier.proto",
}

// RegisterClassifierServer registers soil and crop on s.
func RegisterClassifierServer(s grpc.ServiceRegistrar, soil hybrid.SoilClassifier, crop hybrid.CropClassifier) *Server {
	srv := &Server{soil: soil, crop: crop}
	s.RegisterService(&classifierServiceDesc, srv)
	return srv
}

func (s *Server) ClassifySoil(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := inputFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "input: %v", err)
	}
	p, err := s.soil.Classify(ctx, in)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "soil classifier: %v", err)
	}
	dist := make(map[string]any, len(p.Distribution))
	for k, v := range p.Distribution {
		dist[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"predicted_type":    p.Label,
		"confidence":        p.Confidence,
		"all_probabilities": dist,
	})
}

func (s *Server) RecommendCrop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := inputFromStruct(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "input: %v", err)
	}
	p, err := s.crop.Recommend(ctx, in)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "crop classifier: %v", err)
	}
	alts := make([]any, 0, len(p.Alternatives))
	for _, a := range p.Alternatives {
		alts = append(alts, map[string]any{"crop": a.Label, "confidence": a.Confidence})
	}
	return structpb.NewStruct(map[string]any{
		"recommended_crop": p.Label,
		"confidence":       p.Confidence,
		"alternatives":     alts,
	})
}

func classifySoilHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(classifierServer).ClassifySoil(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClassifySoil}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(classifierServer).ClassifySoil(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func recommendCropHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(classifierServer).RecommendCrop(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRecommendCrop}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(classifierServer).RecommendCrop(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ---------- helpers ----------

func inputFields(in entities.EnvironmentalInput) map[string]any {
	return map[string]any{
		"nitrogen":    in.Nitrogen,
		"phosphorus":  in.Phosphorus,
		"potassium":   in.Potassium,
		"temperature": in.Temperature,
		"humidity":    in.Humidity,
		"ph":          in.PH,
		"rainfall":    in.Rainfall,
	}
}

func inputFromStruct(s *structpb.Struct) (entities.EnvironmentalInput, error) {
	var in entities.EnvironmentalInput
	if s == nil || len(s.GetFields()) == 0 {
		return in, fmt.Errorf("empty input")
	}
	if err := decodeStruct(s, &in); err != nil {
		return entities.EnvironmentalInput{}, err
	}
	return in, nil
}

// decodeStruct routes a Struct through JSON so the tolerant payload
// decoders apply to both transports.
func decodeStruct(s *structpb.Struct, out any) error {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}
