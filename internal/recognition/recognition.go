// Package recognition runs an uploaded image through face extraction and the
// first-match scan over stored identities.
package recognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/embedding"
	"github.com/kozaktomas/faceid/internal/imaging"
	"github.com/kozaktomas/faceid/internal/matcher"
)

// ErrNoFace is returned when the extractor finds no face in the image.
var ErrNoFace = errors.New("no face detected")

// Extractor turns an image into face descriptors.
type Extractor interface {
	DetectFaces(ctx context.Context, image []byte) (*embedding.FaceResponse, error)
}

// Result of a recognition. Identity is nil when nobody matched.
type Result struct {
	Embedding  []float32
	FacesCount int
	Identity   *database.Identity
}

// Matched reports whether an identity was found.
func (r *Result) Matched() bool {
	return r.Identity != nil
}

// Service recognizes faces against an identity store.
type Service struct {
	extractor    Extractor
	identities   database.IdentityReader
	threshold    float64
	maxImageSize int
}

func NewService(extractor Extractor, identities database.IdentityReader, threshold float64, maxImageSize int) *Service {
	return &Service{
		extractor:    extractor,
		identities:   identities,
		threshold:    threshold,
		maxImageSize: maxImageSize,
	}
}

// Threshold returns the configured match distance.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Embed extracts the descriptor of the first detected face. Multiple faces are
// allowed; only the first one is used.
func (s *Service) Embed(ctx context.Context, image []byte) ([]float32, int, error) {
	if s.maxImageSize > 0 {
		resized, err := imaging.FitWithin(image, s.maxImageSize)
		switch {
		case err == nil:
			image = resized
		case errors.Is(err, imaging.ErrUnsupportedImage):
			// Leave formats we cannot decode to the extractor.
		default:
			return nil, 0, err
		}
	}

	resp, err := s.extractor.DetectFaces(ctx, image)
	if err != nil {
		return nil, 0, fmt.Errorf("face extraction: %w", err)
	}
	face := resp.First()
	if resp.FacesCount == 0 || face == nil {
		return nil, 0, ErrNoFace
	}
	return face.Embedding, resp.FacesCount, nil
}

// Recognize extracts the first face in image and returns the first stored
// identity closer than the threshold, in scan order.
func (s *Service) Recognize(ctx context.Context, image []byte) (*Result, error) {
	query, facesCount, err := s.Embed(ctx, image)
	if err != nil {
		return nil, err
	}

	identities, err := s.identities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}

	identity, ok, err := matcher.Match(query, identities, s.threshold)
	if err != nil {
		return nil, err
	}

	result := &Result{Embedding: query, FacesCount: facesCount}
	if ok {
		result.Identity = &identity
	}
	return result, nil
}
