package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dochub/internal/events"
	"dochub/internal/logger"
	"dochub/internal/model"
	"dochub/internal/tool"
)

// FileInput is one uploaded file handed to the pipeline.
type FileInput struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ProcessInput is a single tool invocation. Options and Annotations are the raw
// JSON strings from the form; either may be empty.
type ProcessInput struct {
	ToolID      string
	Options     string
	Annotations string
	Files       []FileInput
}

// ProcessResult is the packaged output of a tool run.
type ProcessResult struct {
	Files   []model.ProcessedFile
	Message string
}

// PipelineService runs tools against uploaded files.
type PipelineService interface {
	// Run validates the input, builds the tool's processor and processes the
	// files sequentially. The first failure aborts the whole batch.
	Run(ctx context.Context, in ProcessInput) (*ProcessResult, error)

	// Tools returns the tool catalog.
	Tools() []tool.Entry
}

type pipelineService struct {
	tools     *tool.Registry
	metrics   *Metrics
	publisher events.Publisher
	tracer    trace.Tracer
	log       zerolog.Logger
	now       func() time.Time
}

// NewPipelineService constructs a PipelineService over tools. metrics and
// publisher may be nil.
func NewPipelineService(tools *tool.Registry, metrics *Metrics, publisher events.Publisher) PipelineService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &pipelineService{
		tools:     tools,
		metrics:   metrics,
		publisher: publisher,
		tracer:    otel.Tracer("dochub/service/pipeline"),
		log:       logger.Component("pipeline"),
		now:       time.Now,
	}
}

func (s *pipelineService) Tools() []tool.Entry {
	return s.tools.Entries()
}

// output pairs a processor output with the input it was derived from.
type output struct {
	tool.Output
	originalName string
}

func (s *pipelineService) Run(ctx context.Context, in ProcessInput) (*ProcessResult, error) {
	if len(in.Files) == 0 {
		return nil, ErrNoFiles
	}
	if strings.TrimSpace(in.ToolID) == "" {
		return nil, ErrToolIDRequired
	}
	id, err := tool.ParseID(in.ToolID)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("tool.id", id.String()),
		attribute.Int("files.count", len(in.Files)),
	))
	defer span.End()

	outs, err := s.run(ctx, id, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.toolRun(id.String(), "error", 0)
		s.log.Warn().Err(err).Str("tool", id.String()).Int("files", len(in.Files)).Msg("tool_run_failed")
		return nil, err
	}

	files := s.pack(id, outs)
	total := 0
	for _, f := range files {
		total += f.Size
		events.Emit(ctx, s.publisher, s.log, events.Event{
			Type:      events.FileProcessed,
			FileID:    f.ID,
			Name:      f.Name,
			Tool:      f.ToolUsed,
			Size:      int64(f.Size),
			Timestamp: f.CreatedAt,
		})
	}
	span.SetAttributes(attribute.Int("outputs.count", len(files)), attribute.Int("outputs.bytes", total))
	s.metrics.toolRun(id.String(), "success", total)
	s.log.Info().Str("tool", id.String()).Int("files", len(in.Files)).Int("outputs", len(files)).Int("bytes", total).Msg("tool_run_completed")

	return &ProcessResult{
		Files:   files,
		Message: fmt.Sprintf("Processed %d file(s) with %s", len(files), id),
	}, nil
}

func (s *pipelineService) run(ctx context.Context, id tool.ID, in ProcessInput) ([]output, error) {
	entry, ok := s.tools.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", tool.ErrUnknownTool, id)
	}

	params := tool.Params{Options: json.RawMessage(strings.TrimSpace(in.Options))}
	if entry.Family == tool.FamilyAnnotated {
		anns, err := decodeAnnotations(in.Annotations)
		if err != nil {
			return nil, err
		}
		params.Annotations = anns
	}
	if entry.Family == tool.FamilyMerge && len(in.Files) < 2 {
		return nil, ErrTooFewFiles
	}
	for _, f := range in.Files {
		if len(f.Data) == 0 {
			return nil, &FileError{File: f.Name, Err: ErrEmptyFile}
		}
	}

	proc, _, err := s.tools.Build(id, params)
	if err != nil {
		return nil, err
	}

	switch entry.Family {
	case tool.FamilyMerge:
		primary := in.Files[0]
		req := tool.MergeRequest{Primary: toInput(primary), Additional: toInputs(in.Files[1:])}
		return process(ctx, proc, req, primary.Name)

	case tool.FamilyAggregate:
		req := tool.AggregateRequest{Items: toInputs(in.Files)}
		return process(ctx, proc, req, in.Files[0].Name)

	case tool.FamilyAnnotated:
		var outs []output
		for _, f := range in.Files {
			o, err := process(ctx, proc, tool.AnnotatedRequest{Primary: toInput(f)}, f.Name)
			if err != nil {
				return nil, err
			}
			outs = append(outs, o...)
		}
		return outs, nil

	default:
		var outs []output
		for _, f := range in.Files {
			o, err := process(ctx, proc, tool.SingleRequest{File: toInput(f)}, f.Name)
			if err != nil {
				return nil, err
			}
			outs = append(outs, o...)
		}
		return outs, nil
	}
}

func process(ctx context.Context, proc tool.Processor, req tool.Request, name string) ([]output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := proc.Process(ctx, req)
	if err != nil {
		return nil, &FileError{File: name, Err: err}
	}
	outs := make([]output, len(res))
	for i, r := range res {
		outs[i] = output{Output: r, originalName: name}
	}
	return outs, nil
}

func (s *pipelineService) pack(id tool.ID, outs []output) []model.ProcessedFile {
	createdAt := s.now().UTC()
	files := make([]model.ProcessedFile, 0, len(outs))
	for _, o := range outs {
		files = append(files, model.ProcessedFile{
			ID:           newOutputID(),
			Name:         o.Name,
			OriginalName: o.originalName,
			Size:         len(o.Data),
			Type:         o.MIMEType,
			Data:         model.ByteArray(o.Data),
			CreatedAt:    createdAt,
			ToolUsed:     id.String(),
		})
	}
	return files
}

// newOutputID returns a time-ordered id, falling back to a random one.
func newOutputID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func decodeAnnotations(raw string) ([]model.Annotation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var anns []model.Annotation
	if err := json.Unmarshal([]byte(raw), &anns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnnotations, err)
	}
	return anns, nil
}

func toInput(f FileInput) tool.Input {
	return tool.Input{Name: f.Name, MIMEType: f.MIMEType, Data: f.Data}
}

func toInputs(files []FileInput) []tool.Input {
	out := make([]tool.Input, len(files))
	for i, f := range files {
		out[i] = toInput(f)
	}
	return out
}

// IsValidation reports whether err is a caller error rather than a processing failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrNoFiles, ErrToolIDRequired, ErrTooFewFiles, ErrEmptyFile, ErrInvalidAnnotations,
		tool.ErrUnknownTool, tool.ErrInvalidOptions, tool.ErrUnsupportedInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
