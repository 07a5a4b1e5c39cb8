package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/campusrag/internal/config"
	"github.com/knoguchi/campusrag/internal/ingestion"
	"github.com/knoguchi/campusrag/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		StoreDriver:          config.StoreSQLite,
		SQLitePath:           ":memory:",
		VectorBackend:        config.VectorPgvector,
		EmbeddingDimension:   1024,
		OllamaURL:            "http://127.0.0.1:1",
		OllamaEmbeddingModel: "bge-m3",
		OllamaLLMModel:       "qwen2.5:7b",
		AnswerMaxTokens:      1024,
		Classifier:           config.ClassifierKeyword,
		CacheTTL:             time.Minute,
		CacheMaxEntries:      10,
		EmbedCacheSize:       8,
	}
}

func TestOpenStores_SQLite(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, sqliteConfig(), nil)
	require.NoError(t, err)
	defer stores.Close()

	assert.NoError(t, stores.Ping(ctx))
	assert.Nil(t, stores.Qdrant)

	school := &repository.School{ID: uuid.New(), Name: "한빛대학교", CreatedAt: time.Now()}
	require.NoError(t, stores.Schools.CreateSchool(ctx, school))
	got, err := stores.Schools.GetSchool(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, "한빛대학교", got.Name)

	assert.NoError(t, stores.Close())
	assert.NoError(t, stores.Close(), "second close is a no-op")
}

func TestNewEngine_FallsBackWithoutModels(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig()
	stores, err := OpenStores(ctx, cfg, nil)
	require.NoError(t, err)
	defer stores.Close()

	engine, err := NewEngine(cfg, stores, nil)
	require.NoError(t, err)

	// Empty store and unreachable Ollama: the engine still answers, through the fallback
	resp, err := engine.Answer(ctx, "도서관 운영 시간이 어떻게 되나요?", uuid.New())
	require.NoError(t, err)
	assert.True(t, resp.FallbackUsed)
	assert.NotEmpty(t, resp.Answer)
}

func TestNewPipeline_WithoutQdrant(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig()
	stores, err := OpenStores(ctx, cfg, nil)
	require.NoError(t, err)
	defer stores.Close()

	p, err := NewPipeline(cfg, stores, nil)
	require.NoError(t, err)

	// Ollama is unreachable, so embedding fails before anything is written
	_, err = p.Ingest(ctx, uuid.New(), ingestion.DocumentInput{Text: "기숙사 입사 신청 안내."})
	assert.ErrorContains(t, err, "failed to embed chunks")
}

func TestNewAnswerGenerator_UsesConfig(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		KeepAlive string `json:"keep_alive"`
		Options   struct {
			NumPredict int `json:"num_predict"`
		} `json:"options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"message":{"role":"assistant","content":"3월 15일까지입니다."},"done":true}`))
	}))
	defer srv.Close()

	cfg := sqliteConfig()
	cfg.OllamaURL = srv.URL
	cfg.OllamaLLMModel = "exaone3.5:7.8b"
	cfg.OllamaKeepAlive = 2 * time.Minute
	cfg.AnswerMaxTokens = 384

	out, err := newAnswerGenerator(cfg, newLLMClient(cfg)).Generate(context.Background(), "[문서 1] 장학금 안내", "마감일?")
	require.NoError(t, err)
	assert.Equal(t, "3월 15일까지입니다.", out)
	assert.Equal(t, "exaone3.5:7.8b", got.Model)
	assert.Equal(t, "2m0s", got.KeepAlive)
	assert.Equal(t, 384, got.Options.NumPredict)
}
