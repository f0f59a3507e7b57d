package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/security"
	"go-profile-backend/pkg/validation"

	"github.com/google/uuid"
)

var (
	errFileTooLarge = apperror.BadRequest(
		fmt.Sprintf("File size must be no more than %dMB", domain.MaxFileSize/(1024*1024)),
	).Wrap(domain.ErrInvalidFile)

	errFileExtension = apperror.BadRequest(
		"File type not supported. Please upload files with extension " + allowedExtensionsText(),
	).Wrap(domain.ErrInvalidFile)

	errTitleRequired = apperror.BadRequest("Resume title is required").Wrap(domain.ErrInvalidTitle)

	errTitleTooLong = apperror.BadRequest(
		fmt.Sprintf("Resume title must be at most %d characters", domain.MaxTitleLength),
	).Wrap(domain.ErrInvalidTitle)
)

// ".pdf, .doc, .docx or .txt"
func allowedExtensionsText() string {
	exts := domain.AllowedResumeExtensions
	if len(exts) == 1 {
		return exts[0]
	}
	return strings.Join(exts[:len(exts)-1], ", ") + " or " + exts[len(exts)-1]
}

func extensionAllowed(ext string) bool {
	for _, allowed := range domain.AllowedResumeExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ValidateUpload checks an upload before anything is stored. It has no side effects.
// meta.Extension is compared case-insensitively; an empty ContentType skips the content check.
func ValidateUpload(meta domain.FileMeta, title string) error {
	if meta.Size > domain.MaxFileSize {
		return errFileTooLarge
	}

	ext := strings.ToLower(meta.Extension)
	if !extensionAllowed(ext) {
		return errFileExtension
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return errTitleRequired
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return errTitleTooLong
	}

	if meta.ContentType != "" && !security.ContentTypeAllowed(ext, meta.ContentType) {
		return apperror.BadRequest(
			fmt.Sprintf("File content does not match the %s extension", ext),
		).Wrap(domain.ErrInvalidFile)
	}
	return nil
}

// GenerateStorageKey returns user_{profileID}/{title}_{8 hex}{ext}. The title part is
// alphanumerics only, so nothing from the client filename except its extension reaches the key.
func GenerateStorageKey(profileID int64, title, originalFilename string) string {
	name := validation.SanitizeText(title)
	if name == "" {
		name = "resume"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("user_%d/%s_%s%s", profileID, name, suffix, security.Extension(originalFilename))
}
