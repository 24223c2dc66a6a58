// Package qdrant implements interfaces.VectorStore against a Qdrant
// collection, reached over gRPC.
package qdrant

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/datacat/internal/common"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// Store is the sole owner of the Qdrant gRPC connection and the one
// collection it indexes datasets into.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	embeddings  interfaces.EmbeddingService
	batchSize   int
	logger      arbor.ILogger
}

// New dials Qdrant at the configured address. The connection is lazy:
// dial errors surface on first use, not at construction, so the search
// path can still degrade to keyword-only when Qdrant is absent.
func New(config *common.VectorStoreConfig, embeddings interfaces.EmbeddingService, logger arbor.ILogger) (*Store, error) {
	conn, err := grpc.NewClient(config.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: dial qdrant %s: %v", dcerrors.ErrNotAvailable, config.Address, err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  config.Collection,
		embeddings:  embeddings,
		batchSize:   32,
		logger:      logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// IsAvailable reports whether the collection can be listed, i.e.
// whether Qdrant is reachable at all.
func (s *Store) IsAvailable(ctx context.Context) bool {
	_, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		s.logger.Debug().Err(err).Msg("qdrant not available")
		return false
	}
	return true
}

func (s *Store) ensureCollection(ctx context.Context) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: list collections: %v", dcerrors.ErrNotAvailable, err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(s.embeddings.Dimensions()),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create collection %s: %v", dcerrors.ErrNotAvailable, s.collection, err)
	}
	return nil
}

// AddDatasets embeds title+abstract for each dataset, in batches of
// batchSize, and upserts the resulting vectors. A batch failure marks
// every dataset in that batch as failed; skipExisting excludes
// datasets whose identifier is already indexed.
func (s *Store) AddDatasets(ctx context.Context, datasets []*models.Dataset, skipExisting bool) (*models.IndexingResult, error) {
	result := models.NewIndexingResult()

	if err := s.ensureCollection(ctx); err != nil {
		return result, err
	}

	var existing map[string]bool
	if skipExisting {
		ids, err := s.GetIndexedIDs(ctx)
		if err != nil {
			return result, err
		}
		existing = make(map[string]bool, len(ids))
		for _, id := range ids {
			existing[id] = true
		}
	}

	var pending []*models.Dataset
	for _, d := range datasets {
		if existing[d.Identifier] {
			result.Skipped = append(result.Skipped, d.Identifier)
			continue
		}
		pending = append(pending, d)
		if len(pending) >= s.batchSize {
			s.addBatch(ctx, pending, result)
			pending = nil
		}
	}
	if len(pending) > 0 {
		s.addBatch(ctx, pending, result)
	}

	return result, nil
}

func (s *Store) addBatch(ctx context.Context, batch []*models.Dataset, result *models.IndexingResult) {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.EmbeddingText()
	}

	vectors, err := s.embeddings.EmbedBatch(ctx, texts)
	if err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("embedding batch failed")
		for _, d := range batch {
			result.Failed[d.Identifier] = err.Error()
		}
		return
	}

	points := make([]*pb.PointStruct, len(batch))
	for i, d := range batch {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: d.Identifier}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vectors[i]}}},
			Payload: map[string]*pb.Value{
				"title":      {Kind: &pb.Value_StringValue{StringValue: d.Title}},
				"identifier": {Kind: &pb.Value_StringValue{StringValue: d.Identifier}},
			},
		}
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: s.collection, Wait: &wait, Points: points}); err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(batch)).Msg("vector upsert failed")
		for _, d := range batch {
			result.Failed[d.Identifier] = err.Error()
		}
		return
	}

	for _, d := range batch {
		result.Succeeded = append(result.Succeeded, d.Identifier)
	}
}

// Search embeds queryText and performs k-NN search, filtering hits
// below minScore. The caller (hybrid search) supplies the Dataset
// bodies from the repository; this store only knows identifiers and
// similarity scores.
func (s *Store) Search(ctx context.Context, queryText string, limit int, minScore float64) ([]models.SearchResult, error) {
	vector, err := s.embeddings.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}

	// Over-fetch by 10x so a min-score filter still leaves `limit`
	// candidates to choose from when many near-threshold hits exist.
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit * 10),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", dcerrors.ErrNotAvailable, err)
	}

	var results []models.SearchResult
	rank := 0
	for _, r := range resp.GetResult() {
		if float64(r.GetScore()) < minScore {
			continue
		}
		rank++
		identifier := r.GetId().GetUuid()
		results = append(results, models.SearchResult{
			Dataset: &models.Dataset{Identifier: identifier},
			Score:   float64(r.GetScore()),
			Rank:    rank,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// GetIndexedIDs returns every identifier currently indexed, paging
// through Qdrant's scroll API.
func (s *Store) GetIndexedIDs(ctx context.Context) ([]string, error) {
	var ids []string
	var offset *pb.PointId
	scrollLimit := uint32(1000)
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Offset:         offset,
			Limit:          &scrollLimit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: false}},
			WithVectors:    &pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: false}},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: scroll: %v", dcerrors.ErrNotAvailable, err)
		}
		for _, p := range resp.GetResult() {
			ids = append(ids, p.GetId().GetUuid())
		}
		if resp.GetNextPageOffset() == nil {
			break
		}
		offset = resp.GetNextPageOffset()
	}
	return ids, nil
}

// GetStats returns point count and collection status.
func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	info, err := s.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: s.collection})
	if err != nil {
		return nil, fmt.Errorf("%w: collection info: %v", dcerrors.ErrNotAvailable, err)
	}
	return map[string]interface{}{
		"points_count": info.GetResult().GetPointsCount(),
		"status":       info.GetResult().GetStatus().String(),
		"collection":   s.collection,
	}, nil
}

// Clear deletes and recreates the collection, removing every indexed
// vector.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: s.collection}); err != nil {
		return fmt.Errorf("%w: delete collection: %v", dcerrors.ErrNotAvailable, err)
	}
	return s.ensureCollection(ctx)
}

var _ interfaces.VectorStore = (*Store)(nil)
