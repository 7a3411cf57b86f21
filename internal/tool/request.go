package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"dochub/internal/model"
)

// Input is one uploaded file handed to a processor.
type Input struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Output is one file produced by a processor.
type Output struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is the tagged union of per-family invocations. The concrete type
// tells a processor exactly which inputs it receives.
type Request interface {
	Family() Family
}

// SingleRequest carries one file.
type SingleRequest struct {
	File Input
}

// MergeRequest carries the primary document and the documents appended to it.
type MergeRequest struct {
	Primary    Input
	Additional []Input
}

// AggregateRequest carries every file; there is no primary document.
type AggregateRequest struct {
	Items []Input
}

// AnnotatedRequest carries the document to annotate. The annotations
// themselves are bound when the processor is built.
type AnnotatedRequest struct {
	Primary Input
}

func (SingleRequest) Family() Family    { return FamilySingle }
func (MergeRequest) Family() Family     { return FamilyMerge }
func (AggregateRequest) Family() Family { return FamilyAggregate }
func (AnnotatedRequest) Family() Family { return FamilyAnnotated }

// Params are the construction inputs for a processor.
type Params struct {
	Options     json.RawMessage
	Annotations []model.Annotation
}

// Processor performs one tool's transformation. A processor that yields a
// single file returns a slice of one.
type Processor interface {
	Process(ctx context.Context, req Request) ([]Output, error)
}

// Factory builds a processor from validated parameters.
type Factory func(p Params) (Processor, error)

type singleFunc func(ctx context.Context, in Input) ([]Output, error)

func (f singleFunc) Process(ctx context.Context, req Request) ([]Output, error) {
	r, ok := req.(SingleRequest)
	if !ok {
		return nil, mismatch(FamilySingle, req)
	}
	return f(ctx, r.File)
}

type mergeFunc func(ctx context.Context, primary Input, additional []Input) ([]Output, error)

func (f mergeFunc) Process(ctx context.Context, req Request) ([]Output, error) {
	r, ok := req.(MergeRequest)
	if !ok {
		return nil, mismatch(FamilyMerge, req)
	}
	return f(ctx, r.Primary, r.Additional)
}

type aggregateFunc func(ctx context.Context, items []Input) ([]Output, error)

func (f aggregateFunc) Process(ctx context.Context, req Request) ([]Output, error) {
	r, ok := req.(AggregateRequest)
	if !ok {
		return nil, mismatch(FamilyAggregate, req)
	}
	return f(ctx, r.Items)
}

type annotatedFunc func(ctx context.Context, primary Input) ([]Output, error)

func (f annotatedFunc) Process(ctx context.Context, req Request) ([]Output, error) {
	r, ok := req.(AnnotatedRequest)
	if !ok {
		return nil, mismatch(FamilyAnnotated, req)
	}
	return f(ctx, r.Primary)
}

func mismatch(want Family, req Request) error {
	got := "nil"
	if req != nil {
		got = string(req.Family())
	}
	return fmt.Errorf("processor expects a %s request, got %s", want, got)
}
