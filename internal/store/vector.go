package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/simili-bot/issuebot/internal/core/errs"
)

// vectorIndex is the narrow contract Postgres-backed Store needs from the
// vector half: upsert a point, search by cosine k-NN, delete a point.
// Kept as an interface so tests can fake it without a live Qdrant.
type vectorIndex interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, pointID string, vector []float32) error
	Search(ctx context.Context, vector []float32, limit int) ([]vectorHit, error)
	Delete(ctx context.Context, pointID string) error
	Close() error
}

type vectorHit struct {
	PointID string
	Score   float32
}

// qdrantIndex implements vectorIndex against Qdrant, adapted directly from
// this codebase's original Qdrant client (same gRPC dial/TLS-detection
// shape), generalized to carry only the point id + vector (thread fields
// live in Postgres now, not the Qdrant payload).
type qdrantIndex struct {
	conn           *grpc.ClientConn
	collections    pb.CollectionsClient
	points         pb.PointsClient
	collectionName string
	apiKey         string
	timeout        time.Duration
}

func newQdrantIndex(url, apiKey, collectionName string) (*qdrantIndex, error) {
	target := url
	useTLS := false

	switch {
	case strings.HasPrefix(url, "https://"):
		target = strings.TrimPrefix(url, "https://")
		useTLS = true
	case strings.HasPrefix(url, "http://"):
		target = strings.TrimPrefix(url, "http://")
	default:
		useTLS = strings.Contains(strings.ToLower(url), "cloud") || strings.Contains(strings.ToLower(url), ".qdrant.io")
	}

	var opts []grpc.DialOption
	if useTLS {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(nil))}
	} else {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &qdrantIndex{
		conn:           conn,
		collections:    pb.NewCollectionsClient(conn),
		points:         pb.NewPointsClient(conn),
		collectionName: collectionName,
		apiKey:         apiKey,
		timeout:        10 * time.Second,
	}, nil
}

func (q *qdrantIndex) ctxWithAuth(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, q.timeout)
	if q.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", q.apiKey)
	}
	return ctx, cancel
}

// EnsureCollection creates the collection if it does not already exist,
// and otherwise checks that its vector size still matches dimension --
// an operator changing model.embeddings_size against an existing
// collection is a fatal configuration error, not a silent dimension
// mismatch on the next upsert.
func (q *qdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	authCtx, cancel := q.ctxWithAuth(ctx)
	defer cancel()

	resp, err := q.collections.List(authCtx, &pb.ListCollectionsRequest{})
	if err != nil {
		return &errs.Retryable{Op: "EnsureCollection", Err: err}
	}
	for _, c := range resp.Collections {
		if c.Name == q.collectionName {
			return q.checkDimension(authCtx, dimension)
		}
	}

	_, err = q.collections.Create(authCtx, &pb.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return &errs.Retryable{Op: "EnsureCollection", Err: err}
	}
	return nil
}

// checkDimension compares an existing collection's configured vector size
// against the dimension the running config expects.
func (q *qdrantIndex) checkDimension(authCtx context.Context, dimension int) error {
	info, err := q.collections.Get(authCtx, &pb.GetCollectionInfoRequest{CollectionName: q.collectionName})
	if err != nil {
		return &errs.Retryable{Op: "EnsureCollection", Err: err}
	}

	params := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return &errs.Retryable{Op: "EnsureCollection", Err: fmt.Errorf("collection %q has no single-vector config to compare against", q.collectionName)}
	}

	existing := int(params.GetSize())
	if existing != dimension {
		return &errs.Configuration{Msg: fmt.Sprintf("qdrant collection %q has vector size %d, but model.embeddings_size is %d", q.collectionName, existing, dimension)}
	}
	return nil
}

// Upsert stores a single point's vector, keyed by the deterministic point
// id that joins back to the thread row in Postgres.
func (q *qdrantIndex) Upsert(ctx context.Context, pointID string, vector []float32) error {
	authCtx, cancel := q.ctxWithAuth(ctx)
	defer cancel()

	point := &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
	}

	_, err := q.points.Upsert(authCtx, &pb.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return &errs.Retryable{Op: "Upsert", Err: err}
	}
	return nil
}

// Search runs cosine k-NN for the given vector.
func (q *qdrantIndex) Search(ctx context.Context, vector []float32, limit int) ([]vectorHit, error) {
	authCtx, cancel := q.ctxWithAuth(ctx)
	defer cancel()

	resp, err := q.points.Search(authCtx, &pb.SearchPoints{
		CollectionName: q.collectionName,
		Vector:         vector,
		Limit:          uint64(limit),
	})
	if err != nil {
		return nil, &errs.Retryable{Op: "Search", Err: err}
	}

	hits := make([]vectorHit, len(resp.Result))
	for i, hit := range resp.Result {
		hits[i] = vectorHit{PointID: hit.Id.GetUuid(), Score: hit.Score}
	}
	return hits, nil
}

// Delete removes a point by id.
func (q *qdrantIndex) Delete(ctx context.Context, pointID string) error {
	authCtx, cancel := q.ctxWithAuth(ctx)
	defer cancel()

	_, err := q.points.Delete(authCtx, &pb.DeletePoints{
		CollectionName: q.collectionName,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID}}}},
			},
		},
	})
	if err != nil {
		return &errs.Retryable{Op: "Delete", Err: err}
	}
	return nil
}

func (q *qdrantIndex) Close() error {
	return q.conn.Close()
}

var _ vectorIndex = (*qdrantIndex)(nil)
