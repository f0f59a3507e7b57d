package usecase_test

import (
	"strings"
	"testing"

	"go-profile-backend/internal/domain"
	"go-profile-backend/internal/usecase"
	"go-profile-backend/pkg/security"

	"github.com/stretchr/testify/assert"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name    string
		meta    domain.FileMeta
		title   string
		wantErr error
		message string
	}{
		{"valid pdf", domain.FileMeta{Size: 1024, Extension: ".pdf", ContentType: "application/pdf"}, "CV", nil, ""},
		{"upper-case extension", domain.FileMeta{Size: 1024, Extension: ".DOCX"}, "CV", nil, ""},
		{"exactly the size limit", domain.FileMeta{Size: domain.MaxFileSize, Extension: ".txt"}, "CV", nil, ""},
		{"one byte over", domain.FileMeta{Size: domain.MaxFileSize + 1, Extension: ".pdf"}, "CV", domain.ErrInvalidFile, "File size must be no more than 5MB"},
		{"image", domain.FileMeta{Size: 10, Extension: ".png"}, "CV", domain.ErrInvalidFile, ".pdf, .doc, .docx or .txt"},
		{"no extension", domain.FileMeta{Size: 10}, "CV", domain.ErrInvalidFile, "File type not supported"},
		{"empty title", domain.FileMeta{Size: 10, Extension: ".pdf"}, " ", domain.ErrInvalidTitle, "required"},
		{"long title", domain.FileMeta{Size: 10, Extension: ".pdf"}, strings.Repeat("é", 101), domain.ErrInvalidTitle, "100"},
		{"title at limit", domain.FileMeta{Size: 10, Extension: ".pdf"}, strings.Repeat("é", 100), nil, ""},
		{"content mismatch", domain.FileMeta{Size: 10, Extension: ".pdf", ContentType: "image/png"}, "CV", domain.ErrInvalidFile, ".pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := usecase.ValidateUpload(tt.meta, tt.title)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateUploadStructuredPlainText(t *testing.T) {
	bodies := map[string]string{
		"comma separated": "Name,Role,City\nJane Doe,Engineer,Berlin\nJohn Roe,Designer,Paris\n",
		"tab separated":   "Name\tRole\tCity\nJane Doe\tEngineer\tBerlin\nJohn Roe\tDesigner\tParis\n",
		"json":            `{"name": "John"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			meta := domain.FileMeta{
				Size:        int64(len(body)),
				Extension:   ".txt",
				ContentType: security.DetectContentType([]byte(body)),
			}
			assert.NoError(t, usecase.ValidateUpload(meta, "CV"), "sniffed %s", meta.ContentType)
		})
	}

	// the same bodies are still refused under a binary extension
	meta := domain.FileMeta{Size: 10, Extension: ".pdf", ContentType: security.DetectContentType([]byte(bodies["comma separated"]))}
	assert.ErrorIs(t, usecase.ValidateUpload(meta, "CV"), domain.ErrInvalidFile)
}

func TestGenerateStorageKey(t *testing.T) {
	key := usecase.GenerateStorageKey(42, "Data Résumé #1!", "../../My CV.PDF")
	assert.Regexp(t, `^user_42/datarsum1_[0-9a-f]{8}\.pdf$`, key)

	t.Run("symbol-only title falls back", func(t *testing.T) {
		assert.Regexp(t, `^user_7/resume_[0-9a-f]{8}\.txt$`, usecase.GenerateStorageKey(7, "¡¿!", "x.txt"))
	})

	t.Run("repeated uploads never collide", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 500; i++ {
			k := usecase.GenerateStorageKey(42, "Data Resume", "cv.pdf")
			assert.False(t, seen[k], "duplicate key %s", k)
			seen[k] = true
		}
	})
}
