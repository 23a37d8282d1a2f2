package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"restaurantbot/internal/vectorindex"
)

// Index searches a Qdrant collection over gRPC. Point ids must be the
// numeric row positions of the metadata array, so results map straight back
// to records without reading payloads.
type Index struct {
	conn        *grpc.ClientConn
	points      pointSearcher
	collections collectionReader
	collection  string
	apiKey      string
	dimension   int
	size        int
	breaker     *gobreaker.CircuitBreaker
}

// Config contains connection details for a Qdrant collection.
type Config struct {
	Addr       string
	APIKey     string
	Collection string
	Dimension  int
}

type pointSearcher interface {
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

type collectionReader interface {
	Get(ctx context.Context, in *pb.GetCollectionInfoRequest, opts ...grpc.CallOption) (*pb.GetCollectionInfoResponse, error)
}

// Dial connects to Qdrant and reads the collection's size and vector width.
func Dial(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection name is required")
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", cfg.Addr, err)
	}
	ix := NewWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), cfg)
	ix.conn = conn
	if err := ix.Describe(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ix, nil
}

// NewWithClients builds an Index on top of existing gRPC clients.
func NewWithClients(points pointSearcher, collections collectionReader, cfg Config) *Index {
	return &Index{
		points:      points,
		collections: collections,
		collection:  cfg.Collection,
		apiKey:      cfg.APIKey,
		dimension:   cfg.Dimension,
		breaker:     newBreaker(cfg.Collection),
	}
}

// newBreaker opens after five consecutive failed searches and probes again
// after 30s. Cancelled calls do not count as failures.
func newBreaker(collection string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "qdrant:" + collection,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// Close closes the underlying gRPC connection, if any.
func (ix *Index) Close() error {
	if ix.conn == nil {
		return nil
	}
	return ix.conn.Close()
}

// Describe refreshes the point count and vector size from the server.
func (ix *Index) Describe(ctx context.Context) error {
	resp, err := ix.collections.Get(ix.withKey(ctx), &pb.GetCollectionInfoRequest{CollectionName: ix.collection})
	if err != nil {
		return fmt.Errorf("qdrant: describe collection %s: %w", ix.collection, err)
	}
	info := resp.GetResult()
	ix.size = int(info.GetPointsCount())
	if size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize(); size > 0 {
		if ix.dimension > 0 && int(size) != ix.dimension {
			return fmt.Errorf("qdrant: collection %s has %d dimensions, want %d", ix.collection, size, ix.dimension)
		}
		ix.dimension = int(size)
	}
	return nil
}

// Size returns the point count seen by the last Describe.
func (ix *Index) Size() int { return ix.size }

// Dimension returns the collection's vector width.
func (ix *Index) Dimension() int { return ix.dimension }

// Search performs k-NN similarity search. Points with non-numeric ids are
// reported as vectorindex.NoNeighbor.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int) ([]float32, []int, error) {
	if topK <= 0 {
		return nil, nil, nil
	}
	out, err := ix.breaker.Execute(func() (interface{}, error) {
		return ix.points.Search(ix.withKey(ctx), &pb.SearchPoints{
			CollectionName: ix.collection,
			Vector:         vector,
			Limit:          uint64(topK),
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant: search %s: %w", ix.collection, err)
	}
	hits := out.(*pb.SearchResponse).GetResult()
	scores := make([]float32, len(hits))
	ids := make([]int, len(hits))
	for i, h := range hits {
		scores[i] = h.GetScore()
		ids[i] = vectorindex.NoNeighbor
		if num, ok := h.GetId().GetPointIdOptions().(*pb.PointId_Num); ok {
			ids[i] = int(num.Num)
		}
	}
	return scores, ids, nil
}

func (ix *Index) withKey(ctx context.Context) context.Context {
	if ix.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", ix.apiKey)
}
