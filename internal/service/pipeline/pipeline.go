package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/observability/logging"
	"scam-guard-service/internal/observability/metrics"
	"scam-guard-service/internal/schema"
	"scam-guard-service/internal/service/chunk"
	"scam-guard-service/internal/service/classifier"
	"scam-guard-service/internal/service/stt"
	"scam-guard-service/internal/service/verdict"
)

// Emitter delivers verdicts to the client. Emit must not block for long;
// it is called while Close is held off.
type Emitter interface {
	Emit(v models.Verdict) error
}

// Tracker mirrors pipeline activity onto the owning session record.
type Tracker interface {
	Touch(kind models.ChunkKind)
	BeginFlight() bool
	EndFlight()
}

// VerdictPublisher records delivered verdicts downstream. Must not block.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, ev models.VerdictEvent) error
}

// Archiver keeps raw audio for debugging. Must not block.
type Archiver interface {
	ArchiveAudio(sessionID, chunkID string, c models.Chunk)
}

// Options configures a Pipeline. Transcriber, Classifier and Emitter are required.
type Options struct {
	SessionID         string
	Decoder           *chunk.Decoder
	Transcriber       stt.Transcriber
	Classifier        classifier.Classifier
	Mapper            *verdict.Mapper
	Emitter           Emitter
	Tracker           Tracker
	Publisher         VerdictPublisher
	Archiver          Archiver
	Validator         *schema.Validator
	STTTimeout        time.Duration
	ClassifierTimeout time.Duration
	Metrics           *metrics.Metrics
}

// Stats summarizes a pipeline's activity.
type Stats struct {
	Accepted     int64
	Verdicts     int64
	Dropped      int64
	DecodeErrors int64
}

// Pending chunks are held in one slot per kind. Decode failures get their own
// slot so their ERROR verdicts stay in order with everything else.
const (
	slotAudio = iota
	slotText
	slotRejected
	numSlots
)

type pending struct {
	seq        uint64
	chunkID    string
	chunk      models.Chunk
	decodeErr  *chunk.DecodeError
	acceptedAt time.Time
}

func (p *pending) kindLabel() string {
	if p.decodeErr != nil {
		return "rejected"
	}
	return p.chunk.Kind.String()
}

// Pipeline processes one session's chunks on a single worker goroutine.
//
// Accept may be called while the worker is busy; at most one pending chunk
// per kind is kept and a newer one replaces it. The worker always takes the
// pending chunk with the lowest sequence, so verdicts leave in arrival order.
type Pipeline struct {
	sessionID         string
	decoder           *chunk.Decoder
	transcriber       stt.Transcriber
	classifier        classifier.Classifier
	mapper            *verdict.Mapper
	emitter           Emitter
	tracker           Tracker
	publisher         VerdictPublisher
	archiver          Archiver
	validator         *schema.Validator
	sttTimeout        time.Duration
	classifierTimeout time.Duration
	metrics           *metrics.Metrics
	logger            zerolog.Logger

	lifecycle *Lifecycle
	seq       *Sequencer

	mu    sync.Mutex
	slots [numSlots]*pending
	wake  chan struct{}

	// emitMu orders Emit against Close: nothing is emitted once closed is set.
	emitMu sync.Mutex
	closed bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}

	accepted     atomic.Int64
	verdicts     atomic.Int64
	dropped      atomic.Int64
	decodeErrors atomic.Int64
}

// New creates a pipeline and starts its worker. The worker stops when ctx is
// canceled or Close is called.
func New(ctx context.Context, opts Options) *Pipeline {
	if opts.Decoder == nil {
		opts.Decoder = chunk.NewDecoder("LINEAR16", 0)
	}
	if opts.Mapper == nil {
		opts.Mapper = verdict.NewMapper(verdict.DefaultPolicy())
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultMetrics
	}

	pctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		sessionID:         opts.SessionID,
		decoder:           opts.Decoder,
		transcriber:       opts.Transcriber,
		classifier:        opts.Classifier,
		mapper:            opts.Mapper,
		emitter:           opts.Emitter,
		tracker:           opts.Tracker,
		publisher:         opts.Publisher,
		archiver:          opts.Archiver,
		validator:         opts.Validator,
		sttTimeout:        opts.STTTimeout,
		classifierTimeout: opts.ClassifierTimeout,
		metrics:           opts.Metrics,
		logger:            logging.WithSession(opts.SessionID),
		lifecycle:         NewLifecycle(),
		seq:               NewSequencer(),
		wake:              make(chan struct{}, 1),
		ctx:               pctx,
		cancel:            cancel,
		done:              make(chan struct{}),
	}

	go p.run()
	return p
}

// Accept decodes one inbound frame and queues it for the worker.
// It returns the *chunk.DecodeError for fatal framing violations, after which
// the caller must close the session, and ErrPipelineClosed once closed.
// Recoverable decode failures are queued and answered with an ERROR verdict.
func (p *Pipeline) Accept(frameType chunk.FrameType, data []byte) error {
	if p.lifecycle.IsClosed() {
		return ErrPipelineClosed
	}

	now := time.Now()
	c, err := p.decoder.Decode(frameType, data, now)

	var derr *chunk.DecodeError
	if err != nil {
		if !errors.As(err, &derr) {
			derr = &chunk.DecodeError{Kind: chunk.ErrMalformed, Reason: err.Error()}
		}
		p.decodeErrors.Add(1)
		p.metrics.RecordDecodeError(derr.Kind.String())
		if derr.Fatal() {
			p.logger.Warn().Err(derr).Msg("Fatal framing violation")
			return derr
		}
	}

	slot := slotRejected
	if derr == nil {
		switch c.Kind {
		case models.ChunkKindAudio:
			slot = slotAudio
		case models.ChunkKindText:
			slot = slotText
		}
		p.accepted.Add(1)
		p.metrics.RecordChunk(c.Kind.String(), c.Size())
	}
	if p.tracker != nil {
		p.tracker.Touch(c.Kind)
	}

	p.mu.Lock()
	seq, chunkID := p.seq.Next(p.sessionID)
	it := &pending{
		seq:        seq,
		chunkID:    chunkID,
		chunk:      c,
		decodeErr:  derr,
		acceptedAt: now,
	}
	if prev := p.slots[slot]; prev != nil {
		p.dropped.Add(1)
		p.metrics.RecordChunkDropped(prev.kindLabel())
		p.logger.Debug().
			Str("droppedChunkId", prev.chunkID).
			Str("chunkId", chunkID).
			Msg("Pending chunk superseded")
	}
	p.slots[slot] = it
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close stops the worker and discards pending chunks. Any in-flight backend
// call is abandoned and its result dropped. No verdict is emitted after Close
// returns. Idempotent.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.emitMu.Lock()
		p.closed = true
		p.emitMu.Unlock()

		p.lifecycle.Close()
		p.cancel()

		p.mu.Lock()
		p.slots = [numSlots]*pending{}
		p.mu.Unlock()
	})
}

// Done is closed when the worker has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	return p.lifecycle.State()
}

// Stats returns activity counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Accepted:     p.accepted.Load(),
		Verdicts:     p.verdicts.Load(),
		Dropped:      p.dropped.Load(),
		DecodeErrors: p.decodeErrors.Load(),
	}
}

func (p *Pipeline) run() {
	defer close(p.done)
	defer p.Close()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.wake:
		}

		for it := p.next(); it != nil; it = p.next() {
			if !p.process(it) {
				return
			}
		}
	}
}

// next takes the pending chunk with the lowest sequence.
func (p *Pipeline) next() *pending {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	for i, it := range p.slots {
		if it != nil && (best < 0 || it.seq < p.slots[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	it := p.slots[best]
	p.slots[best] = nil
	return it
}

// process runs one chunk to its verdict. It returns false when the worker must stop.
func (p *Pipeline) process(it *pending) bool {
	if err := p.lifecycle.Transition(StateDecoding); err != nil {
		return p.stateError(err)
	}

	logger := logging.WithChunk(p.sessionID, it.chunkID, it.kindLabel())

	if p.tracker != nil {
		if p.tracker.BeginFlight() {
			defer p.tracker.EndFlight()
		} else {
			// The owner of the existing flight clears it.
			p.metrics.RecordFlightOverlap()
			logger.Error().Msg("Session already had a chunk in flight")
		}
	}
	p.metrics.RecordFlightStart()
	defer p.metrics.RecordFlightEnd()

	v, err := p.evaluate(it, logger)
	if err != nil {
		return p.stateError(err)
	}
	return p.emit(it, v, logger)
}

// evaluate produces the verdict for one chunk. Backend failures are masked as
// the listening verdict; only lifecycle errors are returned.
func (p *Pipeline) evaluate(it *pending, logger zerolog.Logger) (models.Verdict, error) {
	if it.decodeErr != nil {
		logger.Info().Str("reason", it.decodeErr.Reason).Msg("Rejected malformed chunk")
		return models.ErrorVerdict("Invalid message: " + it.decodeErr.Reason), nil
	}

	var text string
	switch it.chunk.Kind {
	case models.ChunkKindAudio:
		if err := p.lifecycle.Transition(StateTranscribing); err != nil {
			return models.Verdict{}, err
		}
		if p.archiver != nil {
			p.archiver.ArchiveAudio(p.sessionID, it.chunkID, it.chunk)
		}

		transcript, err := p.transcribe(it.chunk)
		if err != nil {
			logger.Warn().Err(err).Msg("Transcription failed, reporting listening")
			return models.ListeningVerdict(), nil
		}
		if transcript.IsEmpty() {
			logger.Debug().Msg("Silence, reporting listening")
			return models.ListeningVerdict(), nil
		}
		text = transcript.Normalized()
		logger.Debug().Int("utterances", len(transcript.Utterances)).Msg("Transcribed audio")
	case models.ChunkKindText:
		text = strings.TrimSpace(it.chunk.Text)
		if text == "" {
			return models.ListeningVerdict(), nil
		}
	default:
		return models.ListeningVerdict(), nil
	}

	if err := p.lifecycle.Transition(StateClassifying); err != nil {
		return models.Verdict{}, err
	}

	raw, err := p.classify(text)
	if err != nil {
		logger.Warn().Err(err).Msg("Classification failed, reporting listening")
		return models.ListeningVerdict(), nil
	}

	sig := p.mapper.Signal(raw)
	logger.Debug().
		Str("signal", sig.Kind.String()).
		Str("field", sig.Field).
		Float64("confidence", sig.Confidence).
		Msg("Mapped classification")
	return p.mapper.FromSignal(sig), nil
}

func (p *Pipeline) transcribe(c models.Chunk) (models.Transcript, error) {
	provider := stt.ProviderName(p.transcriber)
	start := time.Now()

	t, err := await(p.ctx, p.sttTimeout, func(ctx context.Context) (models.Transcript, error) {
		return p.transcriber.Transcribe(ctx, c.Audio, c.Encoding)
	})
	if err != nil {
		var terr *stt.TranscriptionError
		if !errors.As(err, &terr) {
			terr = stt.NewError(provider, err)
		}
		p.metrics.RecordSTT(provider, time.Since(start).Seconds(), terr.Reason)
		return models.Transcript{}, terr
	}

	p.metrics.RecordSTT(provider, time.Since(start).Seconds(), "")
	return t, nil
}

func (p *Pipeline) classify(text string) (models.RawClassification, error) {
	provider := classifier.ProviderName(p.classifier)
	start := time.Now()

	raw, err := await(p.ctx, p.classifierTimeout, func(ctx context.Context) (models.RawClassification, error) {
		return p.classifier.Classify(ctx, text)
	})
	if err != nil {
		var cerr *classifier.ClassificationError
		if !errors.As(err, &cerr) {
			cerr = classifier.NewError(provider, err)
		}
		p.metrics.RecordClassification(provider, time.Since(start).Seconds(), cerr.Reason)
		return models.RawClassification{}, cerr
	}

	p.metrics.RecordClassification(provider, time.Since(start).Seconds(), "")
	return raw, nil
}

func (p *Pipeline) emit(it *pending, v models.Verdict, logger zerolog.Logger) bool {
	if err := p.lifecycle.Transition(StateEmitting); err != nil {
		return p.stateError(err)
	}

	if p.validator != nil {
		if err := p.validator.Validate(v); err != nil {
			logger.Error().Err(err).Msg("Verdict failed validation, reporting listening")
			v = models.ListeningVerdict()
		}
	}

	p.emitMu.Lock()
	if p.closed {
		p.emitMu.Unlock()
		return false
	}
	err := p.emitter.Emit(v)
	p.emitMu.Unlock()

	if err != nil {
		logger.Warn().Err(err).Msg("Failed to deliver verdict")
	} else {
		latency := time.Since(it.acceptedAt)
		p.verdicts.Add(1)
		p.metrics.RecordVerdict(string(v.Status), it.kindLabel(), latency.Seconds())

		logger.Info().
			Str("status", string(v.Status)).
			Dur("latency", latency).
			Msg("Verdict emitted")

		if p.publisher != nil {
			ev := models.VerdictEvent{
				EventType:  models.EventVerdictEmitted,
				SessionID:  p.sessionID,
				ChunkID:    it.chunkID,
				ChunkKind:  it.kindLabel(),
				Status:     v.Status,
				Message:    v.Message,
				Confidence: v.Confidence,
				LatencyMs:  latency.Milliseconds(),
				Timestamp:  time.Now().UnixMilli(),
			}
			if err := p.publisher.PublishVerdict(context.Background(), ev); err != nil {
				logger.Warn().Err(err).Msg("Failed to publish verdict event")
			}
		}
	}

	if err := p.lifecycle.Transition(StateIdle); err != nil {
		return p.stateError(err)
	}
	return true
}

func (p *Pipeline) stateError(err error) bool {
	if !errors.Is(err, ErrPipelineClosed) {
		p.logger.Error().Err(err).Msg("Pipeline state error, stopping session")
	}
	return false
}

type result[T any] struct {
	val T
	err error
}

// await runs call in its own goroutine and waits for it, the timeout, or ctx.
// On timeout or cancellation the call is abandoned; its late result is discarded.
// A zero timeout means no limit beyond ctx.
func await[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := call(callCtx)
		ch <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-callCtx.Done():
		var zero T
		return zero, callCtx.Err()
	}
}
