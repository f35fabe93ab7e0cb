package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	SourceBuffer = "buffer"
	SourcePath   = "path"
)

type Config struct {
	CloudinaryURL string
	// Source selects how the image reaches Cloudinary: streamed from memory
	// ("buffer") or spooled to SpoolDir and uploaded by file path ("path").
	Source   string
	SpoolDir string
	Folder   string
}

// assetUploader is the part of the Cloudinary upload API the client needs.
type assetUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

type Client struct {
	api    assetUploader
	config Config
}

func NewClient(cfg Config) (*Client, error) {
	cld, err := cloudinary.NewFromURL(cfg.CloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init error: %w", err)
	}
	cld.Config.URL.Secure = true

	return newClient(&cld.Upload, cfg), nil
}

func newClient(api assetUploader, cfg Config) *Client {
	if cfg.Source == "" {
		cfg.Source = SourceBuffer
	}
	if cfg.SpoolDir == "" {
		cfg.SpoolDir = os.TempDir()
	}
	return &Client{api: api, config: cfg}
}

// Upload stores the image and returns its secure URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	params := uploader.UploadParams{
		PublicID:     "product_" + uuid.NewString(),
		Folder:       c.config.Folder,
		ResourceType: "image",
	}

	var file interface{} = r
	if c.config.Source == SourcePath {
		path, cleanup, err := c.spool(filename, r)
		if err != nil {
			return "", err
		}
		defer cleanup()
		file = path
	}

	res, err := c.api.Upload(ctx, file, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	// API-level failures come back in the body with a nil error.
	if res == nil {
		return "", errors.New("failed to upload image: empty response")
	}
	if res.Error.Message != "" {
		return "", &UploadError{Message: res.Error.Message}
	}
	if res.SecureURL == "" {
		return "", errors.New("failed to upload image: no secure url in response")
	}
	return res.SecureURL, nil
}

func (c *Client) spool(filename string, r io.Reader) (string, func(), error) {
	f, err := os.CreateTemp(c.config.SpoolDir, "upload-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to spool upload: %w", err)
	}
	return f.Name(), cleanup, nil
}

type UploadError struct {
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("cloudinary api error: %s", e.Message)
}
