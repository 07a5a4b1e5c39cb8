package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	docs    []*repository.Document
	chunks  [][]*repository.Chunk
	deleted []uuid.UUID
	err     error
}

func (s *recordingStore) CreateDocument(_ context.Context, doc *repository.Document, chunks []*repository.Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	s.chunks = append(s.chunks, chunks)
	return nil
}

func (s *recordingStore) ListDocuments(_ context.Context, schoolID uuid.UUID, _, _ int) ([]*repository.Document, error) {
	var out []*repository.Document
	for _, d := range s.docs {
		if d.SchoolID == schoolID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *recordingStore) DeleteDocument(_ context.Context, schoolID, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	for _, d := range s.docs {
		if d.ID == id && d.SchoolID == schoolID {
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

type stubEmbedder struct {
	err error
}

func (e stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (stubEmbedder) Dimension() int { return 2 }

type recordingIndex struct {
	ensured  []uuid.UUID
	upserted int
	removed  []uuid.UUID
	err      error
}

func (ix *recordingIndex) EnsureCollection(_ context.Context, schoolID uuid.UUID, dimension int) error {
	ix.ensured = append(ix.ensured, schoolID)
	return nil
}

func (ix *recordingIndex) Upsert(_ context.Context, _ uuid.UUID, chunks []*repository.Chunk) error {
	ix.upserted += len(chunks)
	return nil
}

func (ix *recordingIndex) DeleteDocument(_ context.Context, _ uuid.UUID, documentID uuid.UUID) error {
	if ix.err != nil {
		return ix.err
	}
	ix.removed = append(ix.removed, documentID)
	return nil
}

func TestPipeline_IngestPreSplitChunks(t *testing.T) {
	store := &recordingStore{}
	index := &recordingIndex{}
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	p := NewPipeline(store, stubEmbedder{}, WithVectorIndex(index), WithPipelineClock(func() time.Time { return fixed }))

	school := uuid.New()
	res, err := p.Ingest(context.Background(), school, DocumentInput{
		FileName:   "scholarship.pdf",
		Category:   "scholarship",
		Department: "학생지원팀",
		Chunks:     []string{"국가장학금 1차 신청은 3월까지입니다.", "  ", "교내 장학금은 학과 사무실에 문의하세요."},
	})
	require.NoError(t, err)

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	assert.Equal(t, res.DocumentID, doc.ID)
	assert.Equal(t, school, doc.SchoolID)
	assert.Equal(t, fixed, doc.CreatedAt)

	chunks := store.chunks[0]
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, doc.ID, c.DocumentID)
		assert.Equal(t, "scholarship.pdf", c.Source)
		assert.Len(t, c.Embedding, 2)
	}

	assert.Equal(t, 2, res.Stats.ChunkCount)
	assert.Equal(t, 2, res.Stats.EmbeddedCount)
	assert.Len(t, res.ContentHash, 64)
	assert.Equal(t, []uuid.UUID{school}, index.ensured)
	assert.Equal(t, 2, index.upserted)
}

func TestPipeline_ChunksRawText(t *testing.T) {
	store := &recordingStore{}
	p := NewPipeline(store, nil, WithChunker(ChunkerConfig{TargetSize: 20, MaxSize: 40}))

	res, err := p.Ingest(context.Background(), uuid.New(), DocumentInput{
		SourceURL: "https://example.ac.kr/notice/1",
		Text:      "도서관은 평일 오전 9시에 엽니다. 주말에는 오후 5시에 닫습니다. 시험 기간에는 24시간 운영합니다.",
	})
	require.NoError(t, err)
	assert.Greater(t, res.Stats.ChunkCount, 1)
	assert.Zero(t, res.Stats.EmbeddedCount)
	for _, c := range store.chunks[0] {
		assert.Nil(t, c.Embedding)
		assert.Equal(t, "https://example.ac.kr/notice/1", c.Source)
	}
}

func TestPipeline_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewPipeline(&recordingStore{}, nil).Ingest(ctx, uuid.New(), DocumentInput{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = NewPipeline(&recordingStore{}, nil).Ingest(ctx, uuid.Nil, DocumentInput{Text: "본문"})
	assert.Error(t, err)

	store := &recordingStore{}
	_, err = NewPipeline(store, stubEmbedder{err: errors.New("ollama down")}).Ingest(ctx, uuid.New(), DocumentInput{Text: "본문"})
	assert.ErrorContains(t, err, "failed to embed chunks")
	assert.Empty(t, store.docs)

	_, err = NewPipeline(&recordingStore{err: errors.New("disk full")}, nil).Ingest(ctx, uuid.New(), DocumentInput{Text: "본문"})
	assert.ErrorContains(t, err, "failed to store document")
}

func TestPipeline_Delete(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	index := &recordingIndex{}
	p := NewPipeline(store, stubEmbedder{}, WithVectorIndex(index))

	school := uuid.New()
	res, err := p.Ingest(ctx, school, DocumentInput{FileName: "dorm.pdf", Text: "기숙사 입사 신청은 2월 1일부터입니다."})
	require.NoError(t, err)

	assert.ErrorIs(t, p.Delete(ctx, uuid.New(), res.DocumentID), repository.ErrNotFound)

	require.NoError(t, p.Delete(ctx, school, res.DocumentID))
	assert.Equal(t, []uuid.UUID{res.DocumentID}, store.deleted)
	assert.Equal(t, []uuid.UUID{res.DocumentID, res.DocumentID}, index.removed)
}

func TestPipeline_DeleteKeepsDocumentWhenIndexFails(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	index := &recordingIndex{}
	p := NewPipeline(store, stubEmbedder{}, WithVectorIndex(index))

	school := uuid.New()
	res, err := p.Ingest(ctx, school, DocumentInput{Text: "도서관은 오전 9시에 엽니다."})
	require.NoError(t, err)

	index.err = errors.New("qdrant unavailable")
	err = p.Delete(ctx, school, res.DocumentID)
	assert.ErrorContains(t, err, "failed to remove indexed chunks")
	assert.Empty(t, store.deleted)
}

func TestPipeline_DeleteWithoutIndex(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	p := NewPipeline(store, nil)

	school := uuid.New()
	res, err := p.Ingest(ctx, school, DocumentInput{Chunks: []string{"셔틀버스는 20분 간격입니다."}})
	require.NoError(t, err)
	require.NoError(t, p.Delete(ctx, school, res.DocumentID))
	assert.Equal(t, []uuid.UUID{res.DocumentID}, store.deleted)
}
