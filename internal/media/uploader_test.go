package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCloudinaryUpload(t *testing.T) {
	var gotParams uploader.UploadParams
	var gotBody string
	u := &CloudinaryUploader{
		folder: "products",
		logger: zap.NewNop(),
		upload: func(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error) {
			gotParams = params
			b, _ := io.ReadAll(file.(io.Reader))
			gotBody = string(b)
			return &uploader.UploadResult{SecureURL: "https://cdn/products/red-lipstick.jpg"}, nil
		},
	}

	url, err := u.Upload(context.Background(), "dir/Red Lipstick.JPG", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/products/red-lipstick.jpg", url)
	assert.Equal(t, "products", gotParams.Folder)
	assert.Equal(t, "red-lipstick", gotParams.PublicID)
	assert.Equal(t, "img", gotBody)
}

func TestCloudinaryUploadErrors(t *testing.T) {
	u := &CloudinaryUploader{logger: zap.NewNop()}

	u.upload = func(context.Context, interface{}, uploader.UploadParams) (*uploader.UploadResult, error) {
		return nil, errors.New("timeout")
	}
	_, err := u.Upload(context.Background(), "a.png", strings.NewReader(""))
	assert.ErrorContains(t, err, "timeout")

	u.upload = func(context.Context, interface{}, uploader.UploadParams) (*uploader.UploadResult, error) {
		return &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid image file"}}, nil
	}
	_, err = u.Upload(context.Background(), "a.png", strings.NewReader(""))
	assert.ErrorContains(t, err, "Invalid image file")
}
