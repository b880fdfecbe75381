package storage

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"

	"scam-guard-service/internal/models"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	block   chan struct{}
	err     error
}

func newFakePutter() *fakePutter {
	return &fakePutter{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakePutter) PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+name] = data
	f.types[bucket+"/"+name] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: size}, nil
}

func audioChunk(encoding string, data []byte) models.Chunk {
	return models.Chunk{Kind: models.ChunkKindAudio, Audio: data, Encoding: encoding}
}

func TestArchive_UploadsAudio(t *testing.T) {
	putter := newFakePutter()
	a := newArchive(putter, Config{Bucket: "debug"})

	a.ArchiveAudio("sess-1", "sess-1-chunk-1", audioChunk("LINEAR16", []byte{1, 2, 3}))
	a.ArchiveAudio("sess-1", "sess-1-chunk-2", audioChunk("WEBM_OPUS", []byte{4}))
	a.Close()

	if got := putter.objects["debug/sess-1/sess-1-chunk-1.pcm"]; len(got) != 3 {
		t.Errorf("expected 3 bytes for chunk 1, got %v", got)
	}
	if got := putter.types["debug/sess-1/sess-1-chunk-2.webm"]; got != "audio/webm" {
		t.Errorf("expected audio/webm content type, got %q", got)
	}
}

func TestArchive_SkipsNonAudio(t *testing.T) {
	putter := newFakePutter()
	a := newArchive(putter, Config{Bucket: "debug"})

	a.ArchiveAudio("sess-1", "c1", models.Chunk{Kind: models.ChunkKindText, Text: "hi"})
	a.ArchiveAudio("sess-1", "c2", audioChunk("LINEAR16", nil))
	a.Close()

	if len(putter.objects) != 0 {
		t.Errorf("expected no uploads, got %v", putter.objects)
	}
}

func TestArchive_DropsWhenQueueFull(t *testing.T) {
	putter := newFakePutter()
	putter.block = make(chan struct{})
	a := newArchive(putter, Config{Bucket: "debug", QueueSize: 1, Workers: 1})

	// One in the worker, one queued, the rest skipped without blocking.
	for i := 0; i < 10; i++ {
		a.ArchiveAudio("s", "c"+string(rune('0'+i)), audioChunk("LINEAR16", []byte{1}))
	}
	close(putter.block)
	a.Close()

	if n := len(putter.objects); n < 1 || n > 2 {
		t.Errorf("expected 1 or 2 uploads with a full queue, got %d", n)
	}
}

func TestArchive_UploadErrorsAreNotFatal(t *testing.T) {
	putter := newFakePutter()
	putter.err = errors.New("bucket gone")
	a := newArchive(putter, Config{Bucket: "debug"})

	a.ArchiveAudio("s", "c", audioChunk("LINEAR16", []byte{1}))
	a.Close()
}

func TestArchive_CloseIsIdempotent(t *testing.T) {
	a := newArchive(newFakePutter(), Config{Bucket: "debug"})
	a.Close()
	a.Close()

	// Calls after Close are ignored.
	a.ArchiveAudio("s", "c", audioChunk("LINEAR16", []byte{1}))
}

func TestAudioFormat(t *testing.T) {
	tests := []struct {
		encoding string
		ext      string
	}{
		{"LINEAR16", "pcm"},
		{"MULAW", "ulaw"},
		{"FLAC", "flac"},
		{"OGG_OPUS", "ogg"},
		{"WEBM_OPUS", "webm"},
		{"", "bin"},
		{"mystery", "bin"},
	}

	for _, tt := range tests {
		if ext, _ := audioFormat(tt.encoding); ext != tt.ext {
			t.Errorf("audioFormat(%q) ext = %q, want %q", tt.encoding, ext, tt.ext)
		}
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("sess", "sess-chunk-7", "pcm"); got != "sess/sess-chunk-7.pcm" {
		t.Errorf("unexpected object name %q", got)
	}
}
