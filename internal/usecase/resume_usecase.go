package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/logger"
	"go-profile-backend/pkg/security"
	"go-profile-backend/pkg/security/antivirus"
	"go-profile-backend/pkg/textextract"
	"go-profile-backend/pkg/validation"
)

var (
	errResumeNotFound  = apperror.NotFound("Resume not found").Wrap(domain.ErrNotFound)
	errProfileNotFound = apperror.NotFound("Profile not found").Wrap(domain.ErrNotFound)
	errResumeLimit     = apperror.Conflict(
		fmt.Sprintf("You can upload at most %d resumes. Delete one before uploading another.", domain.MaxResumesPerUser),
	).Wrap(domain.ErrResumeLimitExceeded)
	errFileInfected = apperror.BadRequest("File failed the security scan").Wrap(domain.ErrInvalidFile)
)

func storageError(err error) error {
	return apperror.ServiceUnavailable("File storage is temporarily unavailable. Please try again.",
		fmt.Errorf("%w: %w", domain.ErrStorage, err))
}

// repoError passes AppErrors from the repository through and wraps everything else as internal.
func repoError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Internal(err)
}

type resumeUsecase struct {
	resumeRepo  domain.ResumeRepository
	profileRepo domain.ProfileRepository
	store       domain.ObjectStore
	scanner     antivirus.Scanner
	publisher   domain.ResumeEventPublisher
	urlTTL      time.Duration
	now         func() time.Time
}

// NewResumeUsecase wires the résumé service. scanner and publisher may be nil.
func NewResumeUsecase(
	resumeRepo domain.ResumeRepository,
	profileRepo domain.ProfileRepository,
	store domain.ObjectStore,
	scanner antivirus.Scanner,
	publisher domain.ResumeEventPublisher,
	urlTTL time.Duration,
) domain.ResumeUsecase {
	if scanner == nil {
		scanner = antivirus.NewNoOpScanner()
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &resumeUsecase{
		resumeRepo:  resumeRepo,
		profileRepo: profileRepo,
		store:       store,
		scanner:     scanner,
		publisher:   publisher,
		urlTTL:      urlTTL,
		now:         time.Now,
	}
}

// Upload creates a résumé, or replaces the file of the résumé that already has this title.
func (u *resumeUsecase) Upload(ctx context.Context, profileID int64, in domain.ResumeUpload) (*domain.Resume, error) {
	ext := security.Extension(in.OriginalFilename)
	title := strings.TrimSpace(in.Title)
	meta := domain.FileMeta{
		Size:        int64(len(in.Data)),
		Extension:   ext,
		ContentType: security.DetectContentType(in.Data),
	}
	if err := ValidateUpload(meta, title); err != nil {
		security.DefaultLogger().Log(ctx, security.SecurityEvent{
			Event:        security.EventUploadRejected,
			SubjectType:  "profile_id",
			SubjectValue: strconv.FormatInt(profileID, 10),
			Details: map[string]interface{}{
				"extension":    ext,
				"content_type": meta.ContentType,
				"size":         meta.Size,
			},
		})
		return nil, err
	}

	exists, err := u.profileRepo.Exists(ctx, profileID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !exists {
		return nil, errProfileNotFound
	}

	if err := u.scan(ctx, profileID, in); err != nil {
		return nil, err
	}

	key := GenerateStorageKey(profileID, title, in.OriginalFilename)
	filename := validation.SanitizeFilename(in.OriginalFilename, domain.MaxFilenameLength)

	var (
		saved   domain.Resume
		oldKey  string
		stored  bool
		evtType = domain.ResumeEventCreated
	)
	err = u.resumeRepo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		existing, err := tx.GetByTitle(ctx, profileID, title)
		if err != nil {
			return err
		}

		var current *domain.Resume
		if existing == nil {
			count, err := tx.Count(ctx, profileID)
			if err != nil {
				return err
			}
			if count >= domain.MaxResumesPerUser {
				return errResumeLimit
			}
			if current, err = tx.GetDefault(ctx, profileID); err != nil {
				return err
			}
		}

		if err := u.store.Put(ctx, key, in.Data, security.ContentTypeForExtension(ext)); err != nil {
			return storageError(err)
		}
		stored = true

		if existing != nil {
			oldKey = existing.StorageKey
			existing.StorageKey = key
			existing.OriginalFilename = filename
			if err := tx.ReplaceFile(ctx, existing); err != nil {
				return err
			}
			saved = *existing
			evtType = domain.ResumeEventReplaced
			return nil
		}

		r := &domain.Resume{
			ProfileID:        profileID,
			Title:            title,
			OriginalFilename: filename,
			StorageKey:       key,
			// the first résumé, or the first after a lost default, becomes the default
			IsDefault: current == nil,
		}
		if err := tx.Create(ctx, r); err != nil {
			return err
		}
		saved = *r
		return nil
	})
	if err != nil {
		if stored {
			u.deleteBlob(ctx, key, "rollback")
		}
		return nil, repoError(err)
	}

	if oldKey != "" {
		u.deleteBlob(ctx, oldKey, "replaced")
	}

	logger.Log.Info("Resume uploaded", "profile_id", profileID, "resume_id", saved.ID, "event", evtType)
	u.publish(ctx, evtType, saved)
	return &saved, nil
}

func (u *resumeUsecase) scan(ctx context.Context, profileID int64, in domain.ResumeUpload) error {
	res := u.scanner.Scan(ctx, in.OriginalFilename, bytes.NewReader(in.Data))
	if res.Error != nil {
		logger.Log.Error("Antivirus scan failed", "profile_id", profileID, "scanner", res.ScannerName, "error", res.Error)
		security.DefaultLogger().Log(ctx, security.SecurityEvent{
			Event:        security.EventScannerUnavailable,
			SubjectType:  "profile_id",
			SubjectValue: strconv.FormatInt(profileID, 10),
			Details:      map[string]interface{}{"scanner": res.ScannerName},
		})
		return apperror.ServiceUnavailable("File scanning is temporarily unavailable. Please try again.", res.Error)
	}
	if res.Infected {
		security.DefaultLogger().Log(ctx, security.SecurityEvent{
			Event:        security.EventMalwareDetected,
			SubjectType:  "profile_id",
			SubjectValue: strconv.FormatInt(profileID, 10),
			Details: map[string]interface{}{
				"scanner":  res.ScannerName,
				"threat":   res.ThreatName,
				"filename": in.OriginalFilename,
			},
		})
		return errFileInfected
	}
	return nil
}

func (u *resumeUsecase) List(ctx context.Context, profileID int64) ([]domain.Resume, error) {
	resumes, err := u.resumeRepo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return resumes, nil
}

func (u *resumeUsecase) Get(ctx context.Context, profileID, resumeID int64) (*domain.Resume, error) {
	r, err := u.resumeRepo.GetByID(ctx, profileID, resumeID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if r == nil {
		return nil, errResumeNotFound
	}
	return r, nil
}

// Delete removes the résumé and, when it was the default, promotes the most recent remaining one.
// The blob is removed after the metadata commit; a failed blob delete only leaves an orphaned object.
func (u *resumeUsecase) Delete(ctx context.Context, profileID, resumeID int64) error {
	var removed, promoted *domain.Resume
	err := u.resumeRepo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		r, err := tx.GetByID(ctx, profileID, resumeID)
		if err != nil {
			return err
		}
		if r == nil {
			return errResumeNotFound
		}
		if err := tx.Delete(ctx, profileID, r.ID); err != nil {
			return err
		}
		removed = r

		if !r.IsDefault {
			return nil
		}
		next, err := tx.MostRecent(ctx, profileID)
		if err != nil || next == nil {
			return err
		}
		if err := tx.SetDefault(ctx, profileID, next.ID); err != nil {
			return err
		}
		promoted, err = tx.GetByID(ctx, profileID, next.ID)
		return err
	})
	if err != nil {
		return repoError(err)
	}

	u.deleteBlob(ctx, removed.StorageKey, "deleted")
	logger.Log.Info("Resume deleted", "profile_id", profileID, "resume_id", removed.ID, "was_default", removed.IsDefault)
	u.publish(ctx, domain.ResumeEventDeleted, *removed)
	if promoted != nil {
		logger.Log.Info("Default resume re-elected", "profile_id", profileID, "resume_id", promoted.ID)
		u.publish(ctx, domain.ResumeEventDefaultChanged, *promoted)
	}
	return nil
}

// DeleteAllForProfile is the profile-deletion cascade.
func (u *resumeUsecase) DeleteAllForProfile(ctx context.Context, profileID int64) error {
	var removed []domain.Resume
	err := u.resumeRepo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		var err error
		removed, err = tx.DeleteAll(ctx, profileID)
		return err
	})
	if err != nil {
		return repoError(err)
	}

	for _, r := range removed {
		u.deleteBlob(ctx, r.StorageKey, "cascade")
		u.publish(ctx, domain.ResumeEventDeleted, r)
	}
	logger.Log.Info("All resumes deleted", "profile_id", profileID, "count", len(removed))
	return nil
}

// SetDefault is idempotent; setting the current default changes nothing.
func (u *resumeUsecase) SetDefault(ctx context.Context, profileID, resumeID int64) (*domain.Resume, error) {
	var (
		result  *domain.Resume
		changed bool
	)
	err := u.resumeRepo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		r, err := tx.GetByID(ctx, profileID, resumeID)
		if err != nil {
			return err
		}
		if r == nil {
			return errResumeNotFound
		}
		if r.IsDefault {
			result = r
			return nil
		}
		if err := tx.SetDefault(ctx, profileID, r.ID); err != nil {
			return err
		}
		changed = true
		result, err = tx.GetByID(ctx, profileID, r.ID)
		return err
	})
	if err != nil {
		return nil, repoError(err)
	}

	if changed {
		u.publish(ctx, domain.ResumeEventDefaultChanged, *result)
	}
	return result, nil
}

// GetDefault returns the default résumé, or nil when the profile has none.
// If résumés exist but none is flagged, the most recent one is elected and persisted.
func (u *resumeUsecase) GetDefault(ctx context.Context, profileID int64) (*domain.Resume, error) {
	r, err := u.resumeRepo.GetDefault(ctx, profileID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if r != nil {
		return r, nil
	}

	var repaired bool
	err = u.resumeRepo.WithProfileLock(ctx, profileID, func(tx domain.ResumeTx) error {
		// another request may have fixed it while we waited for the lock
		if r, err = tx.GetDefault(ctx, profileID); err != nil || r != nil {
			return err
		}
		next, err := tx.MostRecent(ctx, profileID)
		if err != nil || next == nil {
			return err
		}
		if err := tx.SetDefault(ctx, profileID, next.ID); err != nil {
			return err
		}
		repaired = true
		r, err = tx.GetByID(ctx, profileID, next.ID)
		return err
	})
	if err != nil {
		return nil, repoError(err)
	}

	if repaired {
		logger.Log.Warn("Profile had resumes but no default; elected most recent", "profile_id", profileID, "resume_id", r.ID)
		u.publish(ctx, domain.ResumeEventDefaultChanged, *r)
	}
	return r, nil
}

func (u *resumeUsecase) Download(ctx context.Context, profileID, resumeID int64) (*domain.ResumeFile, error) {
	r, err := u.Get(ctx, profileID, resumeID)
	if err != nil {
		return nil, err
	}

	data, err := u.store.Get(ctx, r.StorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			logger.Log.Error("Resume blob missing", "profile_id", profileID, "resume_id", r.ID, "storage_key", r.StorageKey)
			return nil, apperror.NotFound("Resume file not found").Wrap(err)
		}
		return nil, storageError(err)
	}

	return &domain.ResumeFile{
		Resume:      *r,
		ContentType: security.ContentTypeForExtension(security.Extension(r.StorageKey)),
		Data:        data,
	}, nil
}

func (u *resumeUsecase) DownloadURL(ctx context.Context, profileID, resumeID int64) (string, error) {
	r, err := u.Get(ctx, profileID, resumeID)
	if err != nil {
		return "", err
	}
	url, err := u.store.PresignGet(ctx, r.StorageKey, u.urlTTL)
	if err != nil {
		return "", storageError(err)
	}
	return url, nil
}

func (u *resumeUsecase) ExtractText(ctx context.Context, profileID, resumeID int64) (string, error) {
	file, err := u.Download(ctx, profileID, resumeID)
	if err != nil {
		return "", err
	}

	text, err := textextract.Extract(security.Extension(file.Resume.StorageKey), file.Data)
	if err != nil {
		if errors.Is(err, textextract.ErrUnsupported) {
			return "", apperror.UnprocessableEntity("Text cannot be extracted from this file type").Wrap(err)
		}
		logger.Log.Warn("Resume text extraction failed", "profile_id", profileID, "resume_id", resumeID, "error", err)
		return "", apperror.UnprocessableEntity("Could not read text from this file").Wrap(err)
	}
	return text, nil
}

// deleteBlob never fails the caller; orphaned objects are preferred over orphaned rows.
func (u *resumeUsecase) deleteBlob(ctx context.Context, key, reason string) {
	if err := u.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		logger.Log.Error("Failed to delete resume file from storage", "storage_key", key, "reason", reason, "error", err)
	}
}

func (u *resumeUsecase) publish(ctx context.Context, typ domain.ResumeEventType, r domain.Resume) {
	if u.publisher == nil {
		return
	}
	event := domain.ResumeEvent{
		Type:       typ,
		ProfileID:  r.ProfileID,
		ResumeID:   r.ID,
		Title:      r.Title,
		StorageKey: r.StorageKey,
		OccurredAt: u.now().UTC(),
	}
	// the mutation has committed; a client disconnect must not drop its event
	if err := u.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logger.Log.Warn("Failed to publish resume event", "type", typ, "resume_id", r.ID, "error", err)
	}
}
