package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// ErrMissingConnection is returned when neither the connection string nor the
// service URI is configured.
var ErrMissingConnection = errors.New("storage connection not configured")

// DevelopmentStorage is the connection value that selects the local Azurite emulator.
const DevelopmentStorage = "UseDevelopmentStorage=true"

// azuriteConnectionString is the emulator's well-known account; the key is public.
const azuriteConnectionString = "DefaultEndpointsProtocol=http;" +
	"AccountName=devstoreaccount1;" +
	"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
	"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

// AzureConfig names the storage account. ConnectionString may also hold a plain
// service URL; ServiceURI is only read when ConnectionString is empty.
type AzureConfig struct {
	ConnectionString string
	ServiceURI       string
}

type connectionKind int

const (
	connectionString connectionKind = iota
	connectionServiceURL
)

type azureConnection struct {
	kind  connectionKind
	value string
	// fallback is set when the value came from ServiceURI.
	fallback bool
}

func resolveAzureConnection(cfg AzureConfig) (azureConnection, error) {
	value := strings.TrimSpace(cfg.ConnectionString)
	fallback := false
	if value == "" {
		value = strings.TrimSpace(cfg.ServiceURI)
		fallback = true
	}
	if value == "" {
		return azureConnection{}, ErrMissingConnection
	}

	switch {
	case isDevelopmentStorage(value):
		return azureConnection{kind: connectionString, value: azuriteConnectionString, fallback: fallback}, nil
	case isConnectionString(value):
		return azureConnection{kind: connectionString, value: value, fallback: fallback}, nil
	default:
		return azureConnection{kind: connectionServiceURL, value: value, fallback: fallback}, nil
	}
}

// isDevelopmentStorage matches "UseDevelopmentStorage=true", alone or followed
// by further settings such as DevelopmentStorageProxyUri.
func isDevelopmentStorage(value string) bool {
	first, _, _ := strings.Cut(value, ";")
	return strings.EqualFold(strings.TrimSpace(first), DevelopmentStorage)
}

// isConnectionString reports whether value looks like "Key=Value;Key=Value".
func isConnectionString(value string) bool {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return false
	}
	for _, part := range strings.Split(value, ";") {
		key, _, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "accountname", "blobendpoint", "sharedaccesssignature", "defaultendpointsprotocol":
			return true
		}
	}
	return false
}

// AzureService implements Service on Azure Blob Storage.
type AzureService struct {
	client *azblob.Client
}

// NewAzureService builds the blob service client once. A connection string is
// used as is; a service URL is authenticated with DefaultAzureCredential
// (managed identity in Azure, developer credentials locally).
func NewAzureService(cfg AzureConfig, log *zap.Logger) (*AzureService, error) {
	conn, err := resolveAzureConnection(cfg)
	if err != nil {
		log.Error("storage connection not found",
			zap.String("expected", "PDFProcessorSTORAGE or PDFProcessorSTORAGE__serviceUri"))
		return nil, err
	}
	if conn.fallback {
		log.Warn("PDFProcessorSTORAGE not set, using PDFProcessorSTORAGE__serviceUri")
	}

	opts := &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: "pdfprocessor"},
		},
	}

	var client *azblob.Client
	switch conn.kind {
	case connectionString:
		client, err = azblob.NewClientFromConnectionString(conn.value, opts)
		if err != nil {
			return nil, fmt.Errorf("create blob client from connection string: %w", err)
		}
	default:
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("create default azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(conn.value, cred, opts)
		if err != nil {
			return nil, fmt.Errorf("create blob client for %q: %w", conn.value, err)
		}
	}
	return &AzureService{client: client}, nil
}

// Container returns a handle for the blob container called name.
func (s *AzureService) Container(name string) Container {
	return &azureContainer{client: s.client, name: name}
}

// EnsureContainers creates every missing container in names.
func (s *AzureService) EnsureContainers(ctx context.Context, names ...string) error {
	for _, name := range names {
		_, err := s.client.CreateContainer(ctx, name, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("create container %q: %w", name, err)
		}
	}
	return nil
}

type azureContainer struct {
	client *azblob.Client
	name   string
}

func (c *azureContainer) Name() string { return c.name }

// Upload writes a block blob, replacing any existing blob with the same name.
func (c *azureContainer) Upload(ctx context.Context, key string, reader io.Reader, _ int64, contentType string) error {
	_, err := c.client.UploadStream(ctx, c.name, key, reader, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentTypeOrDefault(contentType))},
	})
	if err != nil {
		return fmt.Errorf("upload blob %q: %w", key, translateAzureError(err))
	}
	return nil
}

func (c *azureContainer) Download(ctx context.Context, key string) (*Object, error) {
	resp, err := c.client.DownloadStream(ctx, c.name, key, nil)
	if err != nil {
		return nil, fmt.Errorf("download blob %q: %w", key, translateAzureError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", key, err)
	}
	obj := &Object{Data: data}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	return obj, nil
}

func translateAzureError(err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return errors.Join(ErrNotFound, err)
	}
	return err
}
