package classifier

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

type stubSoil struct {
	pred entities.SoilPrediction
	err  error
	seen entities.EnvironmentalInput
}

func (s *stubSoil) Classify(_ context.Context, in entities.EnvironmentalInput) (entities.SoilPrediction, error) {
	s.seen = in
	return s.pred, s.err
}

type stubCrop struct {
	pred entities.CropPrediction
	err  error
}

func (s *stubCrop) Recommend(context.Context, entities.EnvironmentalInput) (entities.CropPrediction, error) {
	return s.pred, s.err
}

func startBufServer(t *testing.T, soil *stubSoil, crop *stubCrop) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterClassifierServer(s, soil, crop)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCRoundTrip(t *testing.T) {
	soil := &stubSoil{pred: entities.SoilPrediction{Label: "Loamy", Confidence: 46, Distribution: map[string]float64{"Loamy": 46, "Sandy": 12}}}
	crop := &stubCrop{pred: entities.CropPrediction{Label: "Jute", Confidence: 42, Alternatives: []entities.Candidate{{Label: "Mango", Confidence: 30}}}}
	c := NewGRPCClient(startBufServer(t, soil, crop), 2*time.Second)

	sp, err := c.Classify(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, soil.pred, sp)
	assert.Equal(t, sampleInput(), soil.seen)

	cp, err := c.Recommend(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, crop.pred, cp)
}

func TestGRPCClassifierFailure(t *testing.T) {
	soil := &stubSoil{err: errors.New("model not loaded")}
	c := NewGRPCClient(startBufServer(t, soil, &stubCrop{}), time.Second)

	_, err := c.Classify(context.Background(), sampleInput())
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestGRPCEmptyInputRejected(t *testing.T) {
	conn := startBufServer(t, &stubSoil{}, &stubCrop{})
	err := conn.Invoke(context.Background(), methodClassifySoil, &structpb.Struct{}, new(structpb.Struct))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCMissingLabel(t *testing.T) {
	c := NewGRPCClient(startBufServer(t, &stubSoil{}, &stubCrop{}), time.Second)
	_, err := c.Classify(context.Background(), sampleInput())
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestDialGRPCEmptyAddress(t *testing.T) {
	_, err := DialGRPC("  ", time.Second)
	assert.Error(t, err)
}
