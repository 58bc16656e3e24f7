// Package media validates scrap photos and hands out presigned S3 upload URLs for them.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	MaxImages     = 5
	MaxImageBytes = 5 * 1024 * 1024
)

var (
	ErrTooManyImages   = fmt.Errorf("at most %d images per request", MaxImages)
	ErrImageTooLarge   = errors.New("image exceeds 5MB")
	ErrImageType       = errors.New("only JPEG and PNG images are accepted")
	ErrEmptyImage      = errors.New("image is empty")
	ErrStorageDisabled = errors.New("image storage is not configured")
)

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

// Image describes a file the client intends to upload.
type Image struct {
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ValidateImages applies the upload rules to the whole batch and returns the first violation.
func ValidateImages(imgs []Image) error {
	if len(imgs) > MaxImages {
		return ErrTooManyImages
	}
	for i, img := range imgs {
		if _, ok := extByType[normalizeType(img.ContentType)]; !ok {
			return fmt.Errorf("image %d: %w", i, ErrImageType)
		}
		if img.Size <= 0 {
			return fmt.Errorf("image %d: %w", i, ErrEmptyImage)
		}
		if img.Size > MaxImageBytes {
			return fmt.Errorf("image %d: %w", i, ErrImageTooLarge)
		}
	}
	return nil
}

func normalizeType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// ImageKey is the object key for the index-th image of a scrap request.
func ImageKey(customerID, requestID string, index int, contentType string) string {
	return fmt.Sprintf("scrap/%s/%s/%d%s", customerID, requestID, index, extByType[normalizeType(contentType)])
}

// Presigner is the subset of *s3.PresignClient used here.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type Upload struct {
	Key       string            `json:"key"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	ExpiresIn int               `json:"expires_in_seconds"`
}

// Store issues presigned PUT URLs into one bucket.
type Store struct {
	Presigner Presigner
	Bucket    string
	TTL       time.Duration
}

func NewStore(cfg aws.Config, bucket string, ttl time.Duration, pathStyle bool) *Store {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) { o.UsePathStyle = pathStyle })
	return &Store{Presigner: s3.NewPresignClient(client), Bucket: bucket, TTL: ttl}
}

// PresignUploads validates imgs and returns one upload slot per image, in order.
func (s *Store) PresignUploads(ctx context.Context, customerID, requestID string, imgs []Image) ([]Upload, error) {
	if s == nil || s.Presigner == nil || s.Bucket == "" {
		return nil, ErrStorageDisabled
	}
	if err := ValidateImages(imgs); err != nil {
		return nil, err
	}
	out := make([]Upload, 0, len(imgs))
	for i, img := range imgs {
		ct := normalizeType(img.ContentType)
		key := ImageKey(customerID, requestID, i, ct)
		meta := map[string]string{"customer_id": customerID, "request_id": requestID}
		req, err := s.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.Bucket),
			Key:           aws.String(key),
			ContentType:   aws.String(ct),
			ContentLength: aws.Int64(img.Size),
			Metadata:      meta,
		}, func(o *s3.PresignOptions) { o.Expires = s.TTL })
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", key, err)
		}
		out = append(out, Upload{
			Key: key,
			URL: req.URL,
			Headers: map[string]string{
				"Content-Type":           ct,
				"x-amz-meta-customer_id": customerID,
				"x-amz-meta-request_id":  requestID,
			},
			ExpiresIn: int(s.TTL.Seconds()),
		})
	}
	return out, nil
}
