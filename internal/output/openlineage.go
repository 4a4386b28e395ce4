package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// OpenLineage defaults.
const (
	DefaultNamespace    = "redshift://cluster.region:5439"
	DefaultJobNamespace = "redshift-lineage"
	DefaultProducer     = "https://github.com/leapstack-labs/redshift-lineage"
	RunEventSchemaURL   = "https://openlineage.io/spec/1-0-2/OpenLineage.json#/definitions/RunEvent"
	stdinJobName        = "stdin"
)

// OpenLineageOptions configures the openlineage format. Zero values take
// the defaults above, the wall clock and random run IDs.
type OpenLineageOptions struct {
	Namespace    string
	JobNamespace string
	Producer     string
	Now          func() time.Time
	NewRunID     func() uuid.UUID
}

// Dataset is an OpenLineage dataset reference.
type Dataset struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// Run identifies a run.
type Run struct {
	RunID uuid.UUID `json:"runId"`
}

// Job identifies a job.
type Job struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// RunEvent is an OpenLineage run event.
type RunEvent struct {
	EventType string    `json:"eventType"`
	EventTime time.Time `json:"eventTime"`
	Run       Run       `json:"run"`
	Job       Job       `json:"job"`
	Inputs    []Dataset `json:"inputs"`
	Outputs   []Dataset `json:"outputs"`
	Producer  string    `json:"producer"`
	SchemaURL string    `json:"schemaURL"`
}

// Emitter turns report entries into run events.
type Emitter struct {
	opts OpenLineageOptions
}

// NewEmitter creates an Emitter, filling in defaults.
func NewEmitter(opts OpenLineageOptions) *Emitter {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.JobNamespace == "" {
		opts.JobNamespace = DefaultJobNamespace
	}
	if opts.Producer == "" {
		opts.Producer = DefaultProducer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.New
	}
	return &Emitter{opts: opts}
}

// Events returns one COMPLETE event per sink of every entry, in report
// order.
func (e *Emitter) Events(rep *report.Report) []RunEvent {
	var events []RunEvent
	for _, st := range rep.Statements {
		job := stdinJobName
		if st.Context != nil && st.Context.SourceName != nil {
			job = *st.Context.SourceName
		}
		for _, sink := range st.Lineage {
			inputs := make([]Dataset, 0, len(sink.Sources))
			for _, src := range sink.Sources {
				inputs = append(inputs, Dataset{Namespace: e.opts.Namespace, Name: src.Name})
			}
			events = append(events, RunEvent{
				EventType: "COMPLETE",
				EventTime: e.opts.Now().UTC(),
				Run:       Run{RunID: e.opts.NewRunID()},
				Job:       Job{Namespace: e.opts.JobNamespace, Name: job},
				Inputs:    inputs,
				Outputs:   []Dataset{{Namespace: e.opts.Namespace, Name: sink.Target.Name}},
				Producer:  e.opts.Producer,
				SchemaURL: RunEventSchemaURL,
			})
		}
	}
	return events
}

// Write writes the events of rep as newline-delimited JSON.
func (e *Emitter) Write(w io.Writer, rep *report.Report) error {
	enc := json.NewEncoder(w)
	for _, ev := range e.Events(rep) {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("failed to encode run event: %w", err)
		}
	}
	return nil
}
