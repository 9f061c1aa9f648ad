// Package blobsink stores agent runs and reports in Azure Blob Storage.
package blobsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/klauspost/compress/zstd"

	"github.com/gso-bench/gso-ingest/internal/models"
	"github.com/gso-bench/gso-ingest/internal/transcript"
)

// DefaultConnectionStringEnv names the variable read for a connection string.
const DefaultConnectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"

const applicationID = "gso-ingest"

// blobAPI is the subset of *azblob.Client the sink uses.
type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
	UploadFile(ctx context.Context, containerName, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

// Config selects the storage account and container.
type Config struct {
	// ConnectionString wins over AccountURL when both are set. With only
	// AccountURL the default Azure credential chain is used.
	ConnectionString string
	AccountURL       string
	Container        string

	// Compress stores batches as zstd-compressed NDJSON.
	Compress bool
}

// NewClient builds an azblob client from cfg.
func NewClient(cfg Config) (*azblob.Client, error) {
	opts := &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Telemetry: policy.TelemetryOptions{ApplicationID: applicationID},
		},
	}

	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, opts)
		if err != nil {
			return nil, fmt.Errorf("creating blob client from connection string: %w", err)
		}
		return client, nil
	}

	if cfg.AccountURL == "" {
		return nil, errors.New("blob storage needs a connection string or an account URL")
	}
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: opts.ClientOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating azure credential: %w", err)
	}
	client, err := azblob.NewClient(cfg.AccountURL, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return client, nil
}

// Sink writes each uploaded batch as one blob under <collection>/.
type Sink struct {
	api       blobAPI
	container string
	compress  bool
	now       func() time.Time

	mu      sync.Mutex
	stamp   string
	batches map[string]int
}

// New wraps an existing client.
func New(api blobAPI, container string, compress bool) *Sink {
	return &Sink{
		api:       api,
		container: container,
		compress:  compress,
		now:       time.Now,
		batches:   make(map[string]int),
	}
}

// Open creates a client from cfg and returns a sink on it.
func Open(cfg Config) (*Sink, error) {
	if cfg.Container == "" {
		return nil, errors.New("blob container is required")
	}
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return New(client, cfg.Container, cfg.Compress), nil
}

func (s *Sink) ensureContainer(ctx context.Context) error {
	_, err := s.api.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("creating container %s: %w", s.container, err)
	}
	return nil
}

type collectionInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCollection makes sure the container exists and writes
// <id>/collection.json.
func (s *Sink) CreateCollection(ctx context.Context, name, description string) (string, error) {
	if err := s.ensureContainer(ctx); err != nil {
		return "", err
	}

	created := s.now().UTC()
	id := transcript.CollectionID(name, created)

	data, err := json.MarshalIndent(collectionInfo{Name: name, Description: description, CreatedAt: created}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal collection info: %w", err)
	}
	if err := s.put(ctx, path.Join(id, "collection.json"), data, "application/json", ""); err != nil {
		return "", err
	}
	return id, nil
}

// MakeCollectionPublic is not supported; access is governed by the container.
func (s *Sink) MakeCollectionPublic(context.Context, string) error {
	return fmt.Errorf("blob sink: %w", errors.ErrUnsupported)
}

// AddAgentRuns writes runs as one NDJSON blob named
// <collection>/<stamp>-batch-NNNNN.jsonl[.zst].
func (s *Sink) AddAgentRuns(ctx context.Context, collectionID string, runs []*models.AgentRun) error {
	if len(runs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := transcript.WriteNDJSON(&buf, runs); err != nil {
		return err
	}

	data := buf.Bytes()
	encoding := ""
	name := s.nextBatchName(collectionID)
	if s.compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		_ = enc.Close() //nolint:errcheck
		name += ".zst"
		encoding = "zstd"
	}

	if err := s.put(ctx, name, data, "application/x-ndjson", encoding); err != nil {
		return err
	}
	slog.Debug("uploaded batch blob", "container", s.container, "blob", name, "runs", len(runs))
	return nil
}

func (s *Sink) nextBatchName(collectionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stamp == "" {
		s.stamp = s.now().UTC().Format("20060102T150405Z")
	}
	n := s.batches[collectionID]
	s.batches[collectionID] = n + 1
	return fmt.Sprintf("%s/%s-batch-%05d.jsonl", collectionID, s.stamp, n)
}

func (s *Sink) put(ctx context.Context, name string, data []byte, contentType, encoding string) error {
	headers := &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)}
	if encoding != "" {
		headers.BlobContentEncoding = to.Ptr(encoding)
	}
	_, err := s.api.UploadBuffer(ctx, s.container, name, data, &azblob.UploadBufferOptions{HTTPHeaders: headers})
	if err != nil {
		return fmt.Errorf("uploading blob %s: %w", name, err)
	}
	return nil
}

// MirrorFile uploads a local file to blobName, creating the container first.
func (s *Sink) MirrorFile(ctx context.Context, localPath, blobName string) error {
	if err := s.ensureContainer(ctx); err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close() //nolint:errcheck

	blobName = strings.TrimPrefix(path.Clean("/"+blobName), "/")
	_, err = s.api.UploadFile(ctx, s.container, blobName, f, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
	})
	if err != nil {
		return fmt.Errorf("uploading %s to %s: %w", localPath, blobName, err)
	}
	return nil
}
