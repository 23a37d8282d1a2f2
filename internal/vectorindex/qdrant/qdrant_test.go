package qdrant

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"restaurantbot/internal/vectorindex"
)

type fakePoints struct {
	calls  int
	req    *pb.SearchPoints
	apiKey []string
	resp   *pb.SearchResponse
	err    error
}

func (f *fakePoints) Search(ctx context.Context, in *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	f.calls++
	f.req = in
	md, _ := metadata.FromOutgoingContext(ctx)
	f.apiKey = md.Get("api-key")
	return f.resp, f.err
}

type fakeCollections struct {
	points uint64
	size   uint64
	err    error
}

func (f *fakeCollections) Get(context.Context, *pb.GetCollectionInfoRequest, ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pb.GetCollectionInfoResponse{Result: &pb.CollectionInfo{
		PointsCount: &f.points,
		Config: &pb.CollectionConfig{Params: &pb.CollectionParams{
			VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: f.size, Distance: pb.Distance_Cosine},
			}},
		}},
	}}, nil
}

func TestDescribe(t *testing.T) {
	ix := NewWithClients(&fakePoints{}, &fakeCollections{points: 42, size: 384}, Config{Collection: "restaurants"})
	require.NoError(t, ix.Describe(context.Background()))
	assert.Equal(t, 42, ix.Size())
	assert.Equal(t, 384, ix.Dimension())

	ix = NewWithClients(&fakePoints{}, &fakeCollections{points: 1, size: 384}, Config{Collection: "restaurants", Dimension: 768})
	require.Error(t, ix.Describe(context.Background()))

	ix = NewWithClients(&fakePoints{}, &fakeCollections{err: errors.New("unavailable")}, Config{Collection: "restaurants"})
	require.Error(t, ix.Describe(context.Background()))
}

func TestSearchMapsPointIDs(t *testing.T) {
	points := &fakePoints{resp: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 7}}, Score: 0.91},
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "5c56c793-69f3-4fbf-87e6-c4bf54c28c26"}}, Score: 0.80},
		{Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 2}}, Score: 0.75},
	}}}
	ix := NewWithClients(points, &fakeCollections{}, Config{Collection: "restaurants", APIKey: "secret"})

	scores, ids, err := ix.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{7, vectorindex.NoNeighbor, 2}, ids)
	assert.Equal(t, []float32{0.91, 0.80, 0.75}, scores)
	assert.Equal(t, "restaurants", points.req.GetCollectionName())
	assert.Equal(t, uint64(3), points.req.GetLimit())
	assert.Equal(t, []string{"secret"}, points.apiKey)
}

func TestSearchErrors(t *testing.T) {
	ix := NewWithClients(&fakePoints{err: errors.New("deadline")}, &fakeCollections{}, Config{Collection: "c"})
	_, _, err := ix.Search(context.Background(), []float32{1}, 1)
	require.Error(t, err)

	scores, ids, err := ix.Search(context.Background(), []float32{1}, 0)
	require.NoError(t, err)
	assert.Nil(t, scores)
	assert.Nil(t, ids)
	assert.NoError(t, ix.Close())
}

func TestDialRequiresCollection(t *testing.T) {
	_, err := Dial(context.Background(), Config{Addr: "localhost:6334"})
	require.Error(t, err)
}

func TestSearchBreakerOpensAfterRepeatedFailures(t *testing.T) {
	points := &fakePoints{err: errors.New("unavailable")}
	ix := NewWithClients(points, &fakeCollections{}, Config{Collection: "c"})
	for i := 0; i < 5; i++ {
		_, _, err := ix.Search(context.Background(), []float32{1}, 1)
		require.Error(t, err)
	}
	_, _, err := ix.Search(context.Background(), []float32{1}, 1)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, points.calls)
}

func TestSearchBreakerIgnoresCancellation(t *testing.T) {
	points := &fakePoints{err: context.Canceled}
	ix := NewWithClients(points, &fakeCollections{}, Config{Collection: "c"})
	for i := 0; i < 6; i++ {
		_, _, err := ix.Search(context.Background(), []float32{1}, 1)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 6, points.calls)
}
