package storage

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/ironsheep/quiz-tapper/internal/imaging"
)

// uploader is the part of *azblob.Client the sink uses.
type uploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// AzureConfig locates a blob container.
type AzureConfig struct {
	Account   string
	Key       string
	Container string
	// Endpoint overrides https://<account>.blob.core.windows.net, e.g. for
	// Azurite.
	Endpoint string
	// Prefix is prepended to every blob name.
	Prefix string
}

func (c AzureConfig) endpoint() string {
	if c.Endpoint != "" {
		return strings.TrimSuffix(c.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net", c.Account)
}

// AzureSink uploads frames to Azure Blob Storage.
type AzureSink struct {
	client    uploader
	container string
	prefix    string
	base      string
}

// NewAzureSink authenticates with a shared key.
func NewAzureSink(cfg AzureConfig) (*AzureSink, error) {
	if cfg.Account == "" || cfg.Key == "" || cfg.Container == "" {
		return nil, fmt.Errorf("azure sink needs account, key and container")
	}
	credential, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(cfg.endpoint(), credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	return newAzureSink(client, cfg), nil
}

func newAzureSink(client uploader, cfg AzureConfig) *AzureSink {
	return &AzureSink{
		client:    client,
		container: cfg.Container,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		base:      cfg.endpoint(),
	}
}

// Save uploads img and returns the blob URL.
func (s *AzureSink) Save(ctx context.Context, name string, img image.Image) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	format, mime, err := formatOf(clean)
	if err != nil {
		return "", err
	}
	data, err := imaging.Encode(img, format)
	if err != nil {
		return "", err
	}

	blobName := clean
	if s.prefix != "" {
		blobName = s.prefix + "/" + clean
	}
	_, err = s.client.UploadBuffer(ctx, s.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &mime},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return s.base + "/" + s.container + "/" + blobName, nil
}
