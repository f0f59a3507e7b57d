package domain

import (
	"context"
	"time"
)

const (
	MaxFileSize       int64 = 5 * 1024 * 1024
	MaxResumesPerUser       = 3
	MaxTitleLength          = 100
	MaxFilenameLength       = 255
)

// AllowedResumeExtensions is ordered for display in error messages.
var AllowedResumeExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// Resume is one uploaded document belonging to exactly one profile.
type Resume struct {
	ID               int64     `json:"id"`
	ProfileID        int64     `json:"profile_id"`
	Title            string    `json:"title"`
	OriginalFilename string    `json:"original_filename"`
	StorageKey       string    `json:"-"`
	IsDefault        bool      `json:"is_default"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FileMeta is what ValidateUpload inspects; it never carries file content.
type FileMeta struct {
	Size        int64
	Extension   string
	ContentType string
}

// ResumeUpload is the input of an upload; the title is the replace key.
type ResumeUpload struct {
	Title            string
	OriginalFilename string
	Data             []byte
}

// ResumeFile is a résumé together with its stored bytes.
type ResumeFile struct {
	Resume      Resume
	ContentType string
	Data        []byte
}

// ResumeRepository reads résumé metadata and opens owner-scoped write transactions.
// Lookups return (nil, nil) when the row does not exist.
type ResumeRepository interface {
	ListByProfile(ctx context.Context, profileID int64) ([]Resume, error)
	GetByID(ctx context.Context, profileID, id int64) (*Resume, error)
	GetDefault(ctx context.Context, profileID int64) (*Resume, error)
	// WithProfileLock runs fn in one transaction that holds the owner's lock.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithProfileLock(ctx context.Context, profileID int64, fn func(tx ResumeTx) error) error
}

// ResumeTx is the write side of ResumeRepository, valid only inside WithProfileLock.
type ResumeTx interface {
	GetByID(ctx context.Context, profileID, id int64) (*Resume, error)
	GetByTitle(ctx context.Context, profileID int64, title string) (*Resume, error)
	GetDefault(ctx context.Context, profileID int64) (*Resume, error)
	// MostRecent orders by updated_at desc, then id desc.
	MostRecent(ctx context.Context, profileID int64) (*Resume, error)
	Count(ctx context.Context, profileID int64) (int, error)
	// Create inserts r and fills its ID and UpdatedAt.
	Create(ctx context.Context, r *Resume) error
	// ReplaceFile stores r's new StorageKey and OriginalFilename and bumps UpdatedAt.
	ReplaceFile(ctx context.Context, r *Resume) error
	Delete(ctx context.Context, profileID, id int64) error
	// SetDefault clears the flag on every other résumé of the profile, then sets it on id.
	SetDefault(ctx context.Context, profileID, id int64) error
	DeleteAll(ctx context.Context, profileID int64) ([]Resume, error)
}

// ObjectStore is keyed blob storage. Keys are always chosen by the caller.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns ErrObjectNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	HealthCheck(ctx context.Context) error
}

type ResumeEventType string

const (
	ResumeEventCreated        ResumeEventType = "resume.created"
	ResumeEventReplaced       ResumeEventType = "resume.replaced"
	ResumeEventDeleted        ResumeEventType = "resume.deleted"
	ResumeEventDefaultChanged ResumeEventType = "resume.default_changed"
)

type ResumeEvent struct {
	Type       ResumeEventType `json:"type"`
	ProfileID  int64           `json:"profile_id"`
	ResumeID   int64           `json:"resume_id"`
	Title      string          `json:"title,omitempty"`
	StorageKey string          `json:"storage_key,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type ResumeEventPublisher interface {
	Publish(ctx context.Context, event ResumeEvent) error
}

type ResumeUsecase interface {
	Upload(ctx context.Context, profileID int64, in ResumeUpload) (*Resume, error)
	List(ctx context.Context, profileID int64) ([]Resume, error)
	Get(ctx context.Context, profileID, resumeID int64) (*Resume, error)
	Delete(ctx context.Context, profileID, resumeID int64) error
	DeleteAllForProfile(ctx context.Context, profileID int64) error
	SetDefault(ctx context.Context, profileID, resumeID int64) (*Resume, error)
	GetDefault(ctx context.Context, profileID int64) (*Resume, error)
	Download(ctx context.Context, profileID, resumeID int64) (*ResumeFile, error)
	DownloadURL(ctx context.Context, profileID, resumeID int64) (string, error)
	ExtractText(ctx context.Context, profileID, resumeID int64) (string, error)
}
