package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/perchlab/perch/internal/model"
	"github.com/perchlab/perch/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s := schema.New()
	err := s.DeclareGroup("usage", []model.Field{
		{Name: "free", Kind: model.KindInt},
		{Name: "used", Kind: model.KindInt},
	}, model.HintLine)
	if err != nil {
		t.Fatalf("DeclareGroup: %v", err)
	}
	return s
}

func noopProducer(context.Context) (schema.Batch, error) { return nil, nil }

func TestNewRejectsMissingProducer(t *testing.T) {
	_, err := New(Properties{Name: "disk", Description: "disk usage"}, testSchema(t), nil)
	if !errors.Is(err, ErrNoProducer) {
		t.Fatalf("got %v, want ErrNoProducer", err)
	}
}

func TestNewRejectsEmptySchema(t *testing.T) {
	_, err := New(Properties{Name: "disk", Description: "disk usage"}, schema.New(), noopProducer)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}
}

func TestNewFreezesSchemaAndDefaultsEvery(t *testing.T) {
	s := testSchema(t)
	p, err := New(Properties{Name: "disk", Description: "disk usage"}, s, noopProducer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = s.DeclareGroup("late", []model.Field{{Name: "a", Kind: model.KindInt}}, model.HintLine)
	if !errors.Is(err, schema.ErrFrozen) {
		t.Fatalf("schema not frozen after construction: %v", err)
	}

	props, err := p.Properties()
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if props.Every != model.DefaultEvery {
		t.Fatalf("Every = %v, want %v", props.Every, model.DefaultEvery)
	}
}

func TestPropertiesPrecondition(t *testing.T) {
	tests := []struct {
		name  string
		props Properties
	}{
		{"no name", Properties{Description: "d"}},
		{"no description", Properties{Name: "n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.props, testSchema(t), noopProducer)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := p.Properties(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("got %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestRunStateRecording(t *testing.T) {
	p, err := New(Properties{Name: "disk", Description: "disk usage"}, testSchema(t), noopProducer)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, _, ran := p.LastExecution(); ran {
		t.Fatal("fresh plugin reports a completed cycle")
	}
	status := p.Status()
	if status.LastExecutedAt != nil || status.LastExecutedResult != nil {
		t.Fatalf("fresh status = %+v, want null run state", status)
	}

	now := time.Now()
	p.MarkExecuted(now)
	p.RecordResult(false)

	at, ok, ran := p.LastExecution()
	if !ran || ok || !at.Equal(now) {
		t.Fatalf("LastExecution = (%v, %v, %v)", at, ok, ran)
	}

	status = p.Status()
	if status.LastExecutedAt == nil || *status.LastExecutedAt != now.Unix() {
		t.Fatalf("LastExecutedAt = %v, want %d", status.LastExecutedAt, now.Unix())
	}
	if status.LastExecutedResult == nil || *status.LastExecutedResult {
		t.Fatalf("LastExecutedResult = %v, want false", status.LastExecutedResult)
	}
}
