// Package storage keeps raw audio chunks in object storage for debugging.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/observability/metrics"
)

// Config holds MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	QueueSize int
	Workers   int
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

// Archive uploads audio off the session path. When the queue is full new
// chunks are skipped rather than slowing the caller.
type Archive struct {
	mc      *minio.Client
	putter  objectPutter
	bucket  string
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.Mutex
	closed bool
	queue  chan upload
	wg     sync.WaitGroup
}

// NewArchive creates a MinIO-backed archive and starts its upload workers.
func NewArchive(cfg Config) (*Archive, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	a := newArchive(mc, cfg)
	a.mc = mc
	return a, nil
}

func newArchive(putter objectPutter, cfg Config) *Archive {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	a := &Archive{
		putter:  putter,
		bucket:  cfg.Bucket,
		timeout: 30 * time.Second,
		metrics: metrics.DefaultMetrics,
		queue:   make(chan upload, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

// Init creates the bucket if it doesn't exist.
func (a *Archive) Init(ctx context.Context) error {
	if a.mc == nil {
		return nil
	}
	exists, err := a.mc.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	if !exists {
		if err := a.mc.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
		log.Info().Str("bucket", a.bucket).Msg("Archive bucket created")
	}
	return nil
}

// ArchiveAudio queues an audio chunk for upload as <session>/<chunk>.<ext>.
func (a *Archive) ArchiveAudio(sessionID, chunkID string, c models.Chunk) {
	if c.Kind != models.ChunkKindAudio || len(c.Audio) == 0 {
		return
	}
	ext, contentType := audioFormat(c.Encoding)
	u := upload{
		name:        ObjectName(sessionID, chunkID, ext),
		contentType: contentType,
		data:        c.Audio,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- u:
	default:
		log.Warn().Str("object", u.name).Msg("Archive queue full, skipping chunk")
		a.metrics.RecordArchiveWrite(fmt.Errorf("queue full"))
	}
}

// Close stops accepting chunks and waits for queued uploads to finish.
func (a *Archive) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Archive) worker() {
	defer a.wg.Done()
	for u := range a.queue {
		err := a.put(u)
		a.metrics.RecordArchiveWrite(err)
		if err != nil {
			log.Error().Err(err).Str("object", u.name).Msg("Archive upload failed")
			continue
		}
		log.Debug().Str("object", u.name).Int("size", len(u.data)).Msg("Audio archived")
	}
}

func (a *Archive) put(u upload) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	_, err := a.putter.PutObject(ctx, a.bucket, u.name, bytes.NewReader(u.data), int64(len(u.data)), minio.PutObjectOptions{
		ContentType: u.contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", a.bucket, u.name, err)
	}
	return nil
}

// ObjectName returns the object key for an archived chunk.
func ObjectName(sessionID, chunkID, ext string) string {
	return sessionID + "/" + chunkID + "." + ext
}

func audioFormat(encoding string) (ext, contentType string) {
	switch encoding {
	case "LINEAR16":
		return "pcm", "audio/L16"
	case "MULAW":
		return "ulaw", "audio/basic"
	case "FLAC":
		return "flac", "audio/flac"
	case "OGG_OPUS":
		return "ogg", "audio/ogg"
	case "WEBM_OPUS":
		return "webm", "audio/webm"
	case "AMR":
		return "amr", "audio/amr"
	case "AMR_WB":
		return "awb", "audio/amr-wb"
	default:
		return "bin", "application/octet-stream"
	}
}
