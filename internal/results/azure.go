package results

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/apex-evals/apexeval/internal/config"
)

// blobClient is the slice of the azblob client the uploader needs.
type blobClient interface {
	UploadFile(ctx context.Context, containerName string, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

// Uploader copies results files to Azure Blob Storage so runs executed on
// ephemeral machines keep their output.
type Uploader struct {
	client blobClient
}

// NewUploader builds an uploader from environment credentials. A connection
// string wins when both are set; otherwise the storage account name is used
// with the ambient Azure identity (CLI login, managed identity, env vars).
func NewUploader(env config.Env) (*Uploader, error) {
	switch {
	case env.AzureStorageConnection != "":
		client, err := azblob.NewClientFromConnectionString(env.AzureStorageConnection, nil)
		if err != nil {
			return nil, fmt.Errorf("results: parsing storage connection string: %w", err)
		}
		return &Uploader{client: client}, nil

	case env.AzureStorageAccount != "":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("results: resolving azure credential: %w", err)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", env.AzureStorageAccount)
		client, err := azblob.NewClient(serviceURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("results: creating blob client: %w", err)
		}
		return &Uploader{client: client}, nil
	}

	return nil, errors.New("results: AZURE_STORAGE_CONNECTION or AZURE_STORAGE_ACCOUNT must be set to upload")
}

// Upload copies the file at path into container under blobName, overwriting
// any existing blob of that name.
func (u *Uploader) Upload(ctx context.Context, container, blobName, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("results: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	if _, err := u.client.UploadFile(ctx, container, blobName, f, nil); err != nil {
		return fmt.Errorf("results: upload %s to %s/%s: %w", path, container, blobName, err)
	}
	return nil
}
