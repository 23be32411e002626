package api

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// ActivityInfo is the body of POST activity
type ActivityInfo struct {
	Machine    string               `json:"machine"`
	Client     string               `json:"client"`
	Extension  string               `json:"extension"`
	Instance   string               `json:"instance"`
	SolutionID string               `json:"solutionId"`
	BatchID    string               `json:"batchId"`
	BatchStart string               `json:"batchStart"`
	BatchEnd   string               `json:"batchEnd"`
	Projects   []ProjectContextInfo `json:"projects"`
	States     []ActivityEntryInfo  `json:"states"`
	Events     []ActivityEntryInfo  `json:"events"`
}

type ProjectContextInfo struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
}

// ActivityEntryInfo is one state or event. Context is only set for events.
type ActivityEntryInfo struct {
	ParentID string           `json:"parentId"`
	Type     activity.Kind    `json:"type"`
	Start    string           `json:"start"`
	End      string           `json:"end"`
	Duration string           `json:"duration"`
	Context  *CodeContextInfo `json:"context,omitempty"`
}

type CodeContextInfo struct {
	Member    string `json:"member"`
	Namespace string `json:"namespace"`
	ProjectID string `json:"projectId"`
	File      string `json:"file"`
	Class     string `json:"class"`
	Line      int    `json:"line"`
}

// SolutionContextInfo is the body of POST solution
type SolutionContextInfo struct {
	SolutionID   string `json:"solutionId"`
	Name         string `json:"name"`
	CreationTime string `json:"creationTime"`
}

// Profile is the authenticated user's public profile
type Profile struct {
	Identity    string `json:"identity"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	Address     string `json:"address"`
	State       string `json:"state"`
	Country     string `json:"country"`
	AvatarURI   string `json:"avatarUri"`
	Email       string `json:"email"`
}

// Metadata identifies the sending agent instance
type Metadata struct {
	Machine   string
	Client    string
	Extension string
	Instance  string
}

// HostMetadata fills Machine from the host name
func HostMetadata(client, extension, instance string) Metadata {
	machine, err := os.Hostname()
	if err != nil {
		util.LogWarnf("Could not resolve host name: %v", err)
		machine = "unknown"
	}
	return Metadata{Machine: machine, Client: client, Extension: extension, Instance: instance}
}

// NewActivityInfo converts a batch into its wire form under a fresh batch id
func NewActivityInfo(meta Metadata, projectID, projectName string, batch activity.Batch) (ActivityInfo, error) {
	batchID, err := uuid.NewUUID()
	if err != nil {
		return ActivityInfo{}, fmt.Errorf("failed to generate batch id: %w", err)
	}

	start, end := batch.Bounds()
	info := ActivityInfo{
		Machine:    meta.Machine,
		Client:     meta.Client,
		Extension:  meta.Extension,
		Instance:   meta.Instance,
		SolutionID: projectID,
		BatchID:    batchID.String(),
		BatchStart: util.FormatTimestamp(start),
		BatchEnd:   util.FormatTimestamp(end),
		Projects:   []ProjectContextInfo{{ProjectID: projectID, Name: projectName}},
		States:     make([]ActivityEntryInfo, 0, len(batch.States)),
		Events:     make([]ActivityEntryInfo, 0, len(batch.Events)),
	}

	for _, st := range batch.States {
		info.States = append(info.States, entryInfo(st.Kind, st.ProjectID, st.Span))
	}
	for _, ev := range batch.Events {
		entry := entryInfo(ev.Kind, ev.ProjectID, ev.Span)
		entry.Context = &CodeContextInfo{
			Member:    ev.Member,
			Namespace: ev.Namespace,
			ProjectID: ev.ProjectID,
			File:      ev.File,
			Class:     ev.ClassName,
			Line:      ev.Line,
		}
		info.Events = append(info.Events, entry)
	}
	return info, nil
}

func entryInfo(kind activity.Kind, projectID string, span activity.Span) ActivityEntryInfo {
	return ActivityEntryInfo{
		ParentID: projectID,
		Type:     kind,
		Start:    util.FormatTimestamp(span.Start),
		End:      util.FormatTimestamp(span.End),
		Duration: util.FormatActivityDuration(span.Duration()),
	}
}
