package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys written alongside every point
const (
	payloadDocumentID = "document_id"
	payloadSchoolID   = "school_id"
	payloadChunkIndex = "chunk_index"
	payloadText       = "chunk_text"
	payloadSource     = "source"
	payloadDepartment = "department"
	payloadCategory   = "category"
	payloadCreatedAt  = "created_at"
)

// QdrantStore implements repository.VectorSearcher using one Euclid collection per school
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(url string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{client: client}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// Ping checks that Qdrant answers its health endpoint
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// collectionName returns the collection name for a school
func collectionName(schoolID uuid.UUID) string {
	return fmt.Sprintf("school_%s", schoolID)
}

// EnsureCollection creates the school's collection if it does not exist yet
func (s *QdrantStore) EnsureCollection(ctx context.Context, schoolID uuid.UUID, dimension int) error {
	name := collectionName(schoolID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes chunks that carry an embedding; chunks without one are skipped
func (s *QdrantStore) Upsert(ctx context.Context, schoolID uuid.UUID, chunks []*repository.Chunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(chunk.ID.String()),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadDocumentID: qdrant.NewValueString(chunk.DocumentID.String()),
				payloadSchoolID:   qdrant.NewValueString(schoolID.String()),
				payloadChunkIndex: qdrant.NewValueInt(int64(chunk.ChunkIndex)),
				payloadText:       qdrant.NewValueString(chunk.Text),
				payloadSource:     qdrant.NewValueString(chunk.Source),
				payloadDepartment: qdrant.NewValueString(chunk.Department),
				payloadCategory:   qdrant.NewValueString(chunk.Category),
				payloadCreatedAt:  qdrant.NewValueInt(chunk.CreatedAt.Unix()),
			},
		})
	}
	if len(points) == 0 {
		return nil
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName(schoolID),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// DeleteDocument removes every point of a document from the school's collection. A school
// without a collection has nothing to delete.
func (s *QdrantStore) DeleteDocument(ctx context.Context, schoolID, documentID uuid.UUID) error {
	name := collectionName(schoolID)

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadDocumentID, documentID.String()),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}
	return nil
}

// NearestChunks queries the school's collection. Euclid collections score by distance, so the
// point score is the L2 distance; similarity is computed from the returned point vector.
func (s *QdrantStore) NearestChunks(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int) ([]repository.VectorMatch, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName(tenantID),
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	matches := make([]repository.VectorMatch, 0, len(response))
	for _, point := range response {
		chunk, err := chunkFromPayload(point.GetId().GetUuid(), point.GetPayload())
		if err != nil {
			return nil, err
		}
		// Points of another school can never be in this collection, but the payload is checked anyway
		if chunk.TenantID != tenantID {
			continue
		}

		m := repository.VectorMatch{
			Chunk:    chunk,
			Distance: float64(point.GetScore()),
		}
		if pv := point.GetVectors().GetVector().GetData(); len(pv) > 0 {
			m.Similarity = CosineSimilarity(vector, pv)
		} else {
			m.Similarity = distanceToSimilarity(m.Distance)
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) (repository.Chunk, error) {
	var chunk repository.Chunk

	chunkID, err := uuid.Parse(id)
	if err != nil {
		return chunk, fmt.Errorf("invalid point id %q: %w", id, err)
	}
	chunk.ID = chunkID

	if v, ok := payload[payloadDocumentID]; ok {
		chunk.DocumentID, _ = uuid.Parse(v.GetStringValue())
	}
	if v, ok := payload[payloadSchoolID]; ok {
		chunk.TenantID, _ = uuid.Parse(v.GetStringValue())
	}
	chunk.ChunkIndex = int(payload[payloadChunkIndex].GetIntegerValue())
	chunk.Text = payload[payloadText].GetStringValue()
	chunk.Source = payload[payloadSource].GetStringValue()
	chunk.Department = payload[payloadDepartment].GetStringValue()
	chunk.Category = payload[payloadCategory].GetStringValue()
	if ts := payload[payloadCreatedAt].GetIntegerValue(); ts > 0 {
		chunk.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return chunk, nil
}

// distanceToSimilarity maps an L2 distance between unit vectors (range [0,2]) onto [0,1]
func distanceToSimilarity(d float64) float64 {
	sim := 1 - d/2
	if sim < 0 {
		return 0
	}
	return sim
}

// Ensure QdrantStore implements VectorSearcher
var _ repository.VectorSearcher = (*QdrantStore)(nil)
