package media_storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/config"
	"github.com/networkpro/user-service/pkg/logger"
)

type cloudinaryBlobStore struct {
	cld       *cloudinary.Cloudinary
	urlPrefix string
}

// NewCloudinaryBlobStore stores each key as an image whose public id is the
// key without its extension.
func NewCloudinaryBlobStore(cfg config.Config, log logger.Logger) (service.BlobStore, error) {
	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	log.Info("Connect Cloudinary successfully.")
	return &cloudinaryBlobStore{cld: cld, urlPrefix: deliveryPrefix(cfg.Cloudinary.CloudName)}, nil
}

func deliveryPrefix(cloudName string) string {
	return "https://res.cloudinary.com/" + cloudName + "/image/upload/"
}

func publicID(key string) string {
	return strings.TrimSuffix(key, path.Ext(key))
}

func (s *cloudinaryBlobStore) Put(ctx context.Context, key string, content io.Reader) (string, error) {
	result, err := s.cld.Upload.Upload(ctx, content, uploader.UploadParams{
		PublicID:     publicID(key),
		Overwrite:    api.Bool(true),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

func (s *cloudinaryBlobStore) Delete(ctx context.Context, key string) error {
	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID(key),
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete cloudinary: %w", err)
	}
	// "not found" is a successful delete
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary rejected delete: %s", result.Error.Message)
	}
	return nil
}

func (s *cloudinaryBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.cld.Admin.Asset(ctx, admin.AssetParams{PublicID: publicID(key)})
	if err != nil {
		return false, fmt.Errorf("failed to look up cloudinary asset: %w", err)
	}
	if result.Error.Message != "" {
		if strings.Contains(strings.ToLower(result.Error.Message), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("cloudinary asset lookup failed: %s", result.Error.Message)
	}
	return true, nil
}

func (s *cloudinaryBlobStore) KeyFromURL(url string) (string, bool) {
	return keyFromDeliveryURL(s.urlPrefix, url)
}

// keyFromDeliveryURL strips the delivery prefix and the optional version
// segment, e.g. ".../image/upload/v1712345678/uploads/a.png" -> "uploads/a.png".
func keyFromDeliveryURL(prefix, url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, prefix)
	if !ok || rest == "" {
		return "", false
	}
	if first, tail, found := strings.Cut(rest, "/"); found && isVersionSegment(first) {
		rest = tail
	}
	if !validKey(rest) {
		return "", false
	}
	return rest, true
}

func isVersionSegment(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
