package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrValidation = errors.New("validation error")

const (
	photoRefPrefix  = "photos/"
	defaultURLTTL   = 5 * time.Minute
	maxPhotoRefSize = 512
)

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Service is the media boundary: it hands out presigned upload URLs so
// clients arrive at submitPhoto with an already-uploaded opaque photo
// reference. Capture, compression and the upload itself live client-side.
type Service struct {
	storage ObjectStorage
	urlTTL  time.Duration
	now     func() time.Time
}

type UploadTicket struct {
	PhotoRef  string
	UploadURL string
	ExpiresAt time.Time
}

func NewService(storage ObjectStorage, urlTTL time.Duration) *Service {
	if urlTTL <= 0 {
		urlTTL = defaultURLTTL
	}
	return &Service{
		storage: storage,
		urlTTL:  urlTTL,
		now:     time.Now,
	}
}

func (s *Service) CreateUploadURL(ctx context.Context, participantID int64) (UploadTicket, error) {
	if participantID <= 0 {
		return UploadTicket{}, ErrValidation
	}
	if s.storage == nil {
		return UploadTicket{}, fmt.Errorf("media storage is not configured")
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return UploadTicket{}, err
	}

	key := fmt.Sprintf("%s%d/%s.jpg", photoRefPrefix, participantID, uuid.NewString())
	url, err := s.storage.PresignPut(ctx, key, s.urlTTL)
	if err != nil {
		return UploadTicket{}, err
	}

	return UploadTicket{
		PhotoRef:  key,
		UploadURL: url,
		ExpiresAt: s.now().Add(s.urlTTL).UTC(),
	}, nil
}

func (s *Service) ViewURL(ctx context.Context, photoRef string) (string, error) {
	if !ValidPhotoRef(photoRef) {
		return "", ErrValidation
	}
	if s.storage == nil {
		return "", fmt.Errorf("media storage is not configured")
	}
	return s.storage.PresignGet(ctx, photoRef, s.urlTTL)
}

// ValidPhotoRef checks the opaque reference shape without touching storage.
func ValidPhotoRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || len(ref) > maxPhotoRefSize {
		return false
	}
	if !strings.HasPrefix(ref, photoRefPrefix) {
		return false
	}
	return !strings.Contains(ref, "..")
}
