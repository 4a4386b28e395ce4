package output_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

func refs(names ...string) []report.Reference {
	out := make([]report.Reference, len(names))
	for i, n := range names {
		out[i] = report.Reference{Name: n}
	}
	return out
}

func fixture() *report.Report {
	name := "trains.sql"
	return &report.Report{Statements: []report.Entry{
		{
			Lineage: []report.Sink{{Target: report.Reference{Name: "departures"}, Sources: refs("schedule")}},
			Sources: refs("schedule"),
			Context: &lineage.Context{
				SourceName: &name,
				PositionInSource: &lineage.SourcePosition{
					Start: lineage.TextPosition{Line: 1, PositionInLine: 0},
					Stop:  lineage.TextPosition{Line: 1, PositionInLine: 45},
				},
			},
		},
		{
			Lineage: []report.Sink{},
			Sources: refs("users"),
		},
		{
			Lineage: []report.Sink{
				{Target: report.Reference{Name: "a_sink"}, Sources: refs("x", "y")},
				{Target: report.Reference{Name: "b_sink"}, Sources: refs()},
			},
			Sources: refs("x", "y"),
			Context: &lineage.Context{
				PositionInSource: &lineage.SourcePosition{
					Start: lineage.TextPosition{Line: 2, PositionInLine: 0},
					Stop:  lineage.TextPosition{Line: 3, PositionInLine: 10},
				},
			},
		},
	}}
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func fixedOpenLineage() output.OpenLineageOptions {
	n := 0
	return output.OpenLineageOptions{
		Now: func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewRunID: func() uuid.UUID {
			n++
			return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
		},
	}
}

func TestGoldenFormats(t *testing.T) {
	for _, f := range []output.Format{output.FormatJSON, output.FormatYAML, output.FormatOpenLineage, output.FormatTable} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			err := output.Write(&buf, f, fixture(), output.Options{OpenLineage: fixedOpenLineage()})
			require.NoError(t, err)
			golden(t).Assert(t, "report_"+string(f), buf.Bytes())
		})
	}
}

func TestYAMLKeepsBooleanLikeNames(t *testing.T) {
	rep := &report.Report{Statements: []report.Entry{{
		Lineage: []report.Sink{{Target: report.Reference{Name: "on"}, Sources: refs("y", "no", "off")}},
		Sources: refs("y", "no", "off"),
	}}}

	var buf bytes.Buffer
	require.NoError(t, output.WriteYAML(&buf, rep))
	assert.Contains(t, buf.String(), `name: "y"`)

	var got report.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Statements, 1)
	assert.Equal(t, "on", got.Statements[0].Lineage[0].Target.Name)
	assert.Equal(t, refs("y", "no", "off"), got.Statements[0].Sources)
}

func TestOpenLineageEvents(t *testing.T) {
	events := output.NewEmitter(fixedOpenLineage()).Events(fixture())
	require.Len(t, events, 3)

	assert.Equal(t, "trains.sql", events[0].Job.Name)
	assert.Equal(t, "stdin", events[1].Job.Name)
	assert.Equal(t, output.DefaultJobNamespace, events[1].Job.Namespace)
	assert.Equal(t, []output.Dataset{{Namespace: output.DefaultNamespace, Name: "a_sink"}}, events[1].Outputs)
	assert.Len(t, events[1].Inputs, 2)
	assert.Empty(t, events[2].Inputs)
	assert.NotEqual(t, events[0].Run.RunID, events[1].Run.RunID)
	for _, ev := range events {
		assert.Equal(t, "COMPLETE", ev.EventType)
		assert.Equal(t, output.RunEventSchemaURL, ev.SchemaURL)
	}
}

func TestOpenLineageCustomNamespace(t *testing.T) {
	opts := fixedOpenLineage()
	opts.Namespace = "redshift://prod.eu-west-1:5439"
	opts.Producer = "test-producer"
	events := output.NewEmitter(opts).Events(fixture())
	require.NotEmpty(t, events)
	assert.Equal(t, "redshift://prod.eu-west-1:5439", events[0].Inputs[0].Namespace)
	assert.Equal(t, "test-producer", events[0].Producer)
}

func TestTextFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	r := output.NewRendererWithTTY(&out, &errOut, false)
	require.NoError(t, output.Write(&out, output.FormatText, fixture(), output.Options{Renderer: r}))

	text := out.String()
	assert.NotContains(t, text, "\x1b[")
	assert.Contains(t, text, "Statement 1  (trains.sql 1:0-1:45)")
	assert.Contains(t, text, "  departures <- schedule\n")
	assert.Contains(t, text, "Statement 2\n  (no tables written)\n  reads: users\n")
	assert.Contains(t, text, "Statement 3  (2:0-3:10)")
	assert.Contains(t, text, "  a_sink <- x, y\n  b_sink <- -\n")
	assert.Empty(t, errOut.String())
}

func TestTextFormatDefaultsToPlainRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Write(&buf, output.FormatText, fixture(), output.Options{}))
	assert.True(t, strings.HasPrefix(buf.String(), "Statement 1"))
}

func TestParseFormat(t *testing.T) {
	f, err := output.ParseFormat(" YAML ")
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, f)

	_, err = output.ParseFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json, yaml, openlineage, table, text")
}

func TestRendererIsNotTTYForBuffers(t *testing.T) {
	var buf bytes.Buffer
	r := output.NewRenderer(&buf, &buf)
	assert.False(t, r.IsTTY())
	r.Warnf("skipped %d", 2)
	assert.Equal(t, "skipped 2\n", buf.String())
}
