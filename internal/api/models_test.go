package api

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
)

func TestNewActivityInfo(t *testing.T) {
	t0 := time.Date(2017, 9, 7, 9, 45, 26, 0, time.UTC)
	batch := activity.Batch{
		States: []activity.State{
			{Kind: activity.KindSystem, ProjectID: "p1", Span: activity.Span{Start: t0, End: t0}},
			{Kind: activity.KindCoding, ProjectID: "p1", Span: activity.Span{Start: t0, End: t0.Add(90 * time.Minute)}},
		},
		Events: []activity.Event{{
			Kind:        activity.KindDocumentEdit,
			ProjectID:   "p1",
			CodeContext: activity.CodeContext{File: "main.go", Line: 42, Member: "Run", ClassName: "Tracker", Namespace: "tracking"},
			Span:        activity.Span{Start: t0.Add(time.Second), End: t0.Add(2 * time.Second)},
		}},
	}
	meta := Metadata{Machine: "box", Client: "codealike-agent", Extension: "1.0.0", Instance: "1504777526"}

	info, err := NewActivityInfo(meta, "p1", "sample", batch)
	require.NoError(t, err)

	id, err := uuid.Parse(info.BatchID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(1), id.Version())

	assert.Equal(t, "box", info.Machine)
	assert.Equal(t, "1.0.0", info.Extension)
	assert.Equal(t, "1504777526", info.Instance)
	assert.Equal(t, "p1", info.SolutionID)
	assert.Equal(t, []ProjectContextInfo{{ProjectID: "p1", Name: "sample"}}, info.Projects)
	assert.Equal(t, "2017-09-07T09:45:26+00:00", info.BatchStart)
	assert.Equal(t, "2017-09-07T11:15:26+00:00", info.BatchEnd)

	require.Len(t, info.States, 2)
	assert.Equal(t, "00:00:00.000", info.States[0].Duration)
	assert.Equal(t, "01:30:00.000", info.States[1].Duration)
	assert.Nil(t, info.States[1].Context)

	require.Len(t, info.Events, 1)
	ev := info.Events[0]
	assert.Equal(t, "p1", ev.ParentID)
	assert.Equal(t, "00:00:01.000", ev.Duration)
	require.NotNil(t, ev.Context)
	assert.Equal(t, CodeContextInfo{Member: "Run", Namespace: "tracking", ProjectID: "p1", File: "main.go", Class: "Tracker", Line: 42}, *ev.Context)
}

func TestEncodeActivity_WireNames(t *testing.T) {
	info := ActivityInfo{
		SolutionID: "p1",
		Events: []ActivityEntryInfo{{
			ParentID: "p1",
			Type:     activity.KindDocumentFocus,
			Context:  &CodeContextInfo{File: "a.go", Line: 3},
		}},
	}

	payload, err := EncodeActivity(info)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, sonic.Unmarshal(payload, &raw))
	assert.Equal(t, "p1", raw["solutionId"])

	events := raw["events"].([]interface{})
	event := events[0].(map[string]interface{})
	assert.EqualValues(t, 1001, event["type"])
	assert.Equal(t, "a.go", event["context"].(map[string]interface{})["file"])
}
