package activity

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies what an activity entry describes. Values below KindEvent
// are mutually exclusive states; values above it are events layered on top
// of whichever state is open. The numeric values are part of the collector
// wire contract.
type Kind int

const (
	KindNone       Kind = -1
	KindIdle       Kind = 0
	KindSystem     Kind = 1
	KindCoding     Kind = 2
	KindDebugging  Kind = 3
	KindNavigating Kind = 4
	KindBuilding   Kind = 5

	KindEvent Kind = 1000

	KindDocumentFocus Kind = 1001
	KindDocumentEdit  Kind = 1002

	KindOpenSolution           Kind = 1003
	KindCloseSolution          Kind = 1004
	KindBuildSolutionFailed    Kind = 1005
	KindBuildSolutionSucceeded Kind = 1006
	KindBuildSolutionCancelled Kind = 1007

	KindBuildProject          Kind = 1008
	KindBuildProjectFailed    Kind = 1009
	KindBuildProjectSucceeded Kind = 1010
	KindBuildProjectCancelled Kind = 1011
)

var kindNames = map[Kind]string{
	KindNone:                   "none",
	KindIdle:                   "idle",
	KindSystem:                 "system",
	KindCoding:                 "coding",
	KindDebugging:              "debugging",
	KindNavigating:             "navigating",
	KindBuilding:               "building",
	KindEvent:                  "event",
	KindDocumentFocus:          "document-focus",
	KindDocumentEdit:           "document-edit",
	KindOpenSolution:           "open-solution",
	KindCloseSolution:          "close-solution",
	KindBuildSolutionFailed:    "build-solution-failed",
	KindBuildSolutionSucceeded: "build-solution-succeeded",
	KindBuildSolutionCancelled: "build-solution-cancelled",
	KindBuildProject:           "build-project",
	KindBuildProjectFailed:     "build-project-failed",
	KindBuildProjectSucceeded:  "build-project-succeeded",
	KindBuildProjectCancelled:  "build-project-cancelled",
}

// IsState reports whether k is one of the mutually exclusive states
func (k Kind) IsState() bool {
	return k >= KindIdle && k < KindEvent
}

// IsEvent reports whether k is a discrete event kind
func (k Kind) IsEvent() bool {
	return k > KindEvent
}

// IsPrivileged reports whether entries of this kind span the whole tracked
// session and are therefore never clamped to a grace window. Building is
// deliberately not privileged.
func (k Kind) IsPrivileged() bool {
	return k == KindSystem || k == KindOpenSolution
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind accepts either a kind name ("coding", "document-edit") or its numeric value
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	n, err := strconv.Atoi(s)
	if err == nil {
		if _, ok := kindNames[Kind(n)]; ok {
			return Kind(n), nil
		}
	}

	return KindNone, fmt.Errorf("unknown activity kind %q", s)
}
