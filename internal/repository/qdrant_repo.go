package repository

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const defaultVectorDimension = 1024

// QdrantConnectionConfig holds configuration for the recipe vector index.
type QdrantConnectionConfig struct {
	Host            string
	Port            int
	Collection      string
	APIKey          string // enables TLS automatically
	UseTLS          bool
	VectorDimension int
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// QdrantRepository stores one embedding point per recipe, keyed by the recipe ID.
type QdrantRepository struct {
	conn            *grpc.ClientConn
	points          pb.PointsClient
	collections     pb.CollectionsClient
	collection      string
	vectorDimension int
}

// NewQdrantRepository dials Qdrant over gRPC.
// Local instances use an insecure channel; an API key or UseTLS switches to TLS 1.3.
// Parameters:
//   - cfg: connection settings.
// Returns:
//   - *QdrantRepository: repository bound to cfg.Collection.
//   - error: non-nil if the client cannot be created.
func NewQdrantRepository(cfg *QdrantConnectionConfig) (*QdrantRepository, error) {
	dim := cfg.VectorDimension
	if dim <= 0 {
		dim = defaultVectorDimension
	}

	var opts []grpc.DialOption
	if cfg.UseTLS || cfg.APIKey != "" {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS13})))
		if cfg.APIKey != "" {
			opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
		}
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &QdrantRepository{
		conn:            conn,
		points:          pb.NewPointsClient(conn),
		collections:     pb.NewCollectionsClient(conn),
		collection:      cfg.Collection,
		vectorDimension: dim,
	}, nil
}

// Close closes the gRPC connection.
func (r *QdrantRepository) Close() error {
	return r.conn.Close()
}

// EnsureCollection creates the collection if missing and checks the vector size if present.
func (r *QdrantRepository) EnsureCollection(ctx context.Context) error {
	info, err := r.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: r.collection})
	if err == nil {
		if size, ok := collectionVectorSize(info.GetResult()); ok && size != uint64(r.vectorDimension) {
			return fmt.Errorf("collection %s has vector size %d, expected %d", r.collection, size, r.vectorDimension)
		}
		return nil
	}

	_, err = r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(r.vectorDimension),
					Distance: pb.Distance_Cosine,
				},
			},
		},
		HnswConfig: &pb.HnswConfigDiff{
			M:                 optionalUint64(16),
			EfConstruct:       optionalUint64(128),
			FullScanThreshold: optionalUint64(10000),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

func optionalUint64(v uint64) *uint64 {
	return &v
}

func collectionVectorSize(info *pb.CollectionInfo) (uint64, bool) {
	vectors := info.GetConfig().GetParams().GetVectorsConfig()
	if vectors == nil {
		return 0, false
	}
	if single := vectors.GetParams(); single != nil && single.GetSize() > 0 {
		return single.GetSize(), true
	}
	for _, p := range vectors.GetParamsMap().GetMap() {
		if p.GetSize() > 0 {
			return p.GetSize(), true
		}
	}
	return 0, false
}

// RecipePayload is stored alongside each recipe vector.
// Categories and Dietary are keyword lists so filters can match any element.
type RecipePayload struct {
	RecipeID   string
	Title      string
	SiteName   string
	Cuisine    string
	Categories []string
	Dietary    []string
}

func (p *RecipePayload) values() map[string]*pb.Value {
	return map[string]*pb.Value{
		"recipe_id":  stringValue(p.RecipeID),
		"title":      stringValue(p.Title),
		"site_name":  stringValue(p.SiteName),
		"cuisine":    stringValue(p.Cuisine),
		"categories": listValue(p.Categories),
		"dietary":    listValue(p.Dietary),
	}
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func listValue(items []string) *pb.Value {
	values := make([]*pb.Value, len(items))
	for i, item := range items {
		values[i] = stringValue(item)
	}
	return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
}

// Upsert writes the vector for a recipe, replacing any earlier one.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vector: embedding of the recipe text.
//   - payload: payload whose RecipeID (a UUID) becomes the point ID.
// Returns:
//   - error: non-nil if the ID is not a UUID or the write fails.
func (r *QdrantRepository) Upsert(ctx context.Context, vector []float32, payload *RecipePayload) error {
	id, err := pointID(payload.RecipeID)
	if err != nil {
		return err
	}

	_, err = r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Points: []*pb.PointStruct{{
			Id:      id,
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
			Payload: payload.values(),
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// VectorFilter narrows a vector search by payload keyword.
type VectorFilter struct {
	Category string
	Dietary  string
}

// VectorHit is one scored match from the index.
type VectorHit struct {
	RecipeID string
	Score    float32
	Payload  *RecipePayload
}

// Search returns up to topK recipes closest to vector, best first.
// Hits scoring below threshold are dropped; a zero threshold keeps everything.
func (r *QdrantRepository) Search(ctx context.Context, vector []float32, topK int, threshold float32, filter *VectorFilter) ([]VectorHit, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		Filter:         buildFilter(filter),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true},
		},
	}
	if threshold > 0 {
		req.ScoreThreshold = &threshold
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]VectorHit, 0, len(resp.GetResult()))
	for _, scored := range resp.GetResult() {
		payload := parsePayload(scored.GetPayload())
		recipeID := scored.GetId().GetUuid()
		if payload.RecipeID != "" {
			recipeID = payload.RecipeID
		}
		hits = append(hits, VectorHit{RecipeID: recipeID, Score: scored.GetScore(), Payload: payload})
	}
	return hits, nil
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func buildFilter(f *VectorFilter) *pb.Filter {
	if f == nil {
		return nil
	}
	var must []*pb.Condition
	if f.Category != "" {
		must = append(must, keywordCondition("categories", f.Category))
	}
	if f.Dietary != "" {
		must = append(must, keywordCondition("dietary", f.Dietary))
	}
	if len(must) == 0 {
		return nil
	}
	return &pb.Filter{Must: must}
}

func parsePayload(payload map[string]*pb.Value) *RecipePayload {
	p := &RecipePayload{
		RecipeID: payload["recipe_id"].GetStringValue(),
		Title:    payload["title"].GetStringValue(),
		SiteName: payload["site_name"].GetStringValue(),
		Cuisine:  payload["cuisine"].GetStringValue(),
	}
	for _, v := range payload["categories"].GetListValue().GetValues() {
		p.Categories = append(p.Categories, v.GetStringValue())
	}
	for _, v := range payload["dietary"].GetListValue().GetValues() {
		p.Dietary = append(p.Dietary, v.GetStringValue())
	}
	return p
}

// Delete removes the point for a recipe. Deleting a missing point is not an error.
func (r *QdrantRepository) Delete(ctx context.Context, recipeID string) error {
	id, err := pointID(recipeID)
	if err != nil {
		return err
	}
	_, err = r.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: r.collection,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{Ids: []*pb.PointId{id}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}
	return nil
}

func pointID(recipeID string) (*pb.PointId, error) {
	uid, err := uuid.Parse(recipeID)
	if err != nil {
		return nil, fmt.Errorf("invalid point ID: %w", err)
	}
	return &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: uid.String()}}, nil
}
