package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/llm"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/knoguchi/campusrag/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSchool(t *testing.T, db *sqlite.DB, name string, texts []string, embeddings [][]float32) (uuid.UUID, map[uuid.UUID]bool) {
	t.Helper()
	ctx := context.Background()
	school := &repository.School{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	require.NoError(t, sqlite.NewSchoolRepo(db).CreateSchool(ctx, school))

	doc := &repository.Document{
		ID:         uuid.New(),
		SchoolID:   school.ID,
		FileName:   name + "-guide.pdf",
		Category:   "facilities",
		Department: "생활관",
		CreatedAt:  time.Now(),
	}
	ids := make(map[uuid.UUID]bool)
	chunks := make([]*repository.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &repository.Chunk{ID: uuid.New(), ChunkIndex: i, Text: text, Embedding: embeddings[i]}
		ids[chunks[i].ID] = true
	}
	require.NoError(t, sqlite.NewDocumentRepo(db).CreateDocument(ctx, doc, chunks))
	return school.ID, ids
}

func TestEngine_SQLiteStoreKeepsSchoolsApart(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	alpha, alphaIDs := seedSchool(t, db, "alpha",
		[]string{pad("알파대학교 기숙사 신청 기간은 2월 1일부터 2월 10일까지입니다."), pad("알파대학교 생활관 입사 서류 안내")},
		[][]float32{{1, 0, 0}, {0.9, 0.1, 0}})
	beta, betaIDs := seedSchool(t, db, "beta",
		[]string{pad("베타대학교 기숙사 신청 기간은 1월 20일까지입니다.")},
		[][]float32{{1, 0, 0}})

	chunks := sqlite.NewChunkRepo(db)
	contacts := sqlite.NewContactRepo(db)
	engine := NewEngine(chunks, chunks, contacts, &fakeGenerator{}, llm.KeywordClassifier{})

	for tenant, ids := range map[uuid.UUID]map[uuid.UUID]bool{alpha: alphaIDs, beta: betaIDs} {
		resp, err := engine.Answer(ctx, "기숙사 신청 기간이 언제인가요", tenant)
		require.NoError(t, err)
		assert.False(t, resp.FallbackUsed)
		assert.Equal(t, "temporal", resp.SearchStrategy)
		require.NotEmpty(t, resp.Sources)
		for _, s := range resp.Sources {
			assert.True(t, ids[s.ChunkID], "source %s belongs to another school", s.ChunkID)
			assert.Equal(t, "생활관", s.Department)
		}
	}

	require.NoError(t, contacts.UpsertDefaultContact(ctx, &repository.DefaultContact{
		SchoolID: beta, Category: "career", Department: "취업지원센터", ContactInfo: "02-777-7777",
	}))
	resp, err := engine.Answer(ctx, "채용 박람회 참가", beta)
	require.NoError(t, err)
	assert.True(t, resp.FallbackUsed)
	assert.Contains(t, resp.Answer, "취업지원센터")

	resp, err = engine.Answer(ctx, "채용 박람회 참가", alpha)
	require.NoError(t, err)
	assert.Equal(t, GenericFallbackMessage, resp.Answer)
}
