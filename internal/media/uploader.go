package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"storefront/internal/util"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type uploadFunc func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)

// CloudinaryUploader uploads product images to a Cloudinary folder.
type CloudinaryUploader struct {
	upload uploadFunc
	folder string
	logger *zap.Logger
}

// NewCloudinaryUploader uploads into folder of the given Cloudinary account.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryUploader{
		upload: cld.Upload.Upload,
		folder: folder,
		logger: util.GetLogger(),
	}, nil
}

// Upload stores the image and returns its public URL.
func (u *CloudinaryUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	start := time.Now()
	res, err := u.upload(ctx, r, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: publicID(filename),
	})
	util.ProviderLatency.WithLabelValues("cloudinary", "upload").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %s: %w", filename, err)
	}
	if res == nil {
		return "", errors.New("cloudinary: empty upload result")
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: upload %s: %s", filename, res.Error.Message)
	}

	u.logger.Debug("Image uploaded", zap.String("file", filename), zap.String("url", res.SecureURL))
	return res.SecureURL, nil
}

// publicID derives a stable asset name from the file name.
func publicID(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.Join(strings.Fields(base), "-")
}
