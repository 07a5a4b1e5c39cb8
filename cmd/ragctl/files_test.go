package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadContactsFile(t *testing.T) {
	path := writeFile(t, "contacts.yaml", `
school_id: 8f14e45f-ceea-467f-a0e6-3b1c2c6c2d4e
contacts:
  - category: 장학
    department: 학생지원팀
    contact_info: 02-123-4567
  - category: Academic
    department: " 학사지원팀 "
`)
	f, err := loadContactsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "8f14e45f-ceea-467f-a0e6-3b1c2c6c2d4e", f.SchoolID)
	require.Len(t, f.Contacts, 2)
	assert.Equal(t, "scholarship", f.Contacts[0].Category)
	assert.Equal(t, "academic", f.Contacts[1].Category)
	assert.Equal(t, "학사지원팀", f.Contacts[1].Department)
}

func TestLoadContactsFile_Rejects(t *testing.T) {
	tests := map[string]string{
		"empty":     "contacts: []",
		"unknown":   "contacts:\n  - category: parking\n    department: x",
		"duplicate": "contacts:\n  - category: event\n    department: a\n  - category: 행사\n    department: b",
		"no dept":   "contacts:\n  - category: event",
		"not yaml":  "contacts: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadContactsFile(writeFile(t, "c.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadImportFile(t *testing.T) {
	path := writeFile(t, "docs.yaml", `
documents:
  - file_name: 2025_장학안내.pdf
    category: scholarship
    department: 학생지원팀
    created_at: 2025-02-01T09:00:00Z
    chunks:
      - 국가장학금 1차 신청은 3월 14일까지입니다.
  - source_url: https://example.ac.kr/notice/12
    text: 도서관은 평일 오전 9시부터 오후 10시까지 운영합니다.
`)
	f, err := loadImportFile(path)
	require.NoError(t, err)
	require.Len(t, f.Documents, 2)

	in := f.Documents[0].input()
	assert.Equal(t, "scholarship", in.Category)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), in.CreatedAt.UTC())
	assert.Len(t, in.Chunks, 1)
	assert.Equal(t, "https://example.ac.kr/notice/12", displayName(f.Documents[1]))

	_, err = loadImportFile(writeFile(t, "bad.yaml", "documents:\n  - file_name: empty.pdf"))
	assert.ErrorContains(t, err, "text or chunks is required")

	_, err = loadImportFile(writeFile(t, "bad.yaml", "documents:\n  - text: x\n    category: sports"))
	assert.ErrorContains(t, err, "unknown category")
}

func TestSchoolFor(t *testing.T) {
	got, err := schoolFor("flag", "file")
	require.NoError(t, err)
	assert.Equal(t, "flag", got)

	got, err = schoolFor("", "file")
	require.NoError(t, err)
	assert.Equal(t, "file", got)

	_, err = schoolFor("", "")
	assert.Error(t, err)
}
