package catchrecord

import (
	"context"
)

// MaxImageBytes caps the encoded image stored with a record.
const MaxImageBytes = 800 * 1024

// Compressor shrinks an encoded image to at most limit bytes.
type Compressor interface {
	Compress(ctx context.Context, image string, limit int) (string, error)
}

func (s *Service) optimizeImage(ctx context.Context, image string) string {
	if len(image) <= MaxImageBytes {
		return image
	}
	if s.compressor != nil {
		out, err := s.compressor.Compress(ctx, image, MaxImageBytes)
		if err == nil && len(out) <= MaxImageBytes {
			return out
		}
		s.log.Warn("image compression failed, truncating", "err", err)
	}
	s.log.Info("image optimized for storage", "originalKB", len(image)/1024)
	return image[:MaxImageBytes]
}
