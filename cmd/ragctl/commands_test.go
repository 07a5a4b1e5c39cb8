package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knoguchi/campusrag/internal/app"
	"github.com/knoguchi/campusrag/internal/config"
	"github.com/knoguchi/campusrag/internal/repository"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_SchoolsAndContacts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "campus.db"))
	t.Setenv("VECTOR_BACKEND", "pgvector")
	t.Setenv("JWT_SECRET", "cli-test-secret")

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlite")

	out, err = runCLI(t, "schools", "create", "한빛대학교")
	require.NoError(t, err)
	schoolID, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)

	out, err = runCLI(t, "schools", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "한빛대학교")
	assert.Contains(t, out, schoolID.String())

	contacts := writeFile(t, "contacts.yaml", "contacts:\n  - category: scholarship\n    department: 학생지원팀\n    contact_info: 02-123-4567\n")
	out, err = runCLI(t, "contacts", "import", "--school", schoolID.String(), contacts)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 contacts.")

	out, err = runCLI(t, "token", "--school", schoolID.String())
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")), "JWT has three segments")

	_, err = runCLI(t, "contacts", "import", "--school", uuid.NewString(), contacts)
	assert.Error(t, err, "unknown school")
}

func TestCLI_Documents(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "campus.db"))
	t.Setenv("VECTOR_BACKEND", "pgvector")

	_, err := runCLI(t, "migrate")
	require.NoError(t, err)
	out, err := runCLI(t, "schools", "create", "새봄대학교")
	require.NoError(t, err)
	schoolID, err := uuid.Parse(strings.TrimSpace(out))
	require.NoError(t, err)

	// Documents are written straight to the store; importing would need Ollama for embeddings
	ctx := context.Background()
	loaded, err := config.Load()
	require.NoError(t, err)
	stores, err := app.OpenStores(ctx, loaded, nil)
	require.NoError(t, err)
	doc := &repository.Document{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		FileName:  "dormitory.pdf",
		Category:  "facilities",
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, stores.Documents.CreateDocument(ctx, doc, []*repository.Chunk{
		{ID: uuid.New(), ChunkIndex: 0, Text: "기숙사 입사 신청은 2월 1일부터입니다."},
	}))
	require.NoError(t, stores.Close())

	out, err = runCLI(t, "documents", "list", "--school", schoolID.String())
	require.NoError(t, err)
	assert.Contains(t, out, doc.ID.String())
	assert.Contains(t, out, "dormitory.pdf")
	assert.Contains(t, out, "1 chunks")

	_, err = runCLI(t, "documents", "delete", "--school", uuid.NewString(), doc.ID.String())
	assert.ErrorContains(t, err, "not found")

	out, err = runCLI(t, "documents", "delete", "--school", schoolID.String(), doc.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+doc.ID.String())

	out, err = runCLI(t, "documents", "list", "--school", schoolID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "No documents.")

	_, err = runCLI(t, "documents", "delete", "--school", schoolID.String(), "not-a-uuid")
	assert.ErrorContains(t, err, "invalid document id")
}
