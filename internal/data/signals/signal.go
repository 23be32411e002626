package signals

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Codealike/Codealike-plugins-core/internal/core/activity"
)

// Signal names understood by the agent
const (
	Focus      = "focus"
	Edit       = "edit"
	Coding     = "coding"
	Debugging  = "debugging"
	Navigating = "navigating"
	Building   = "building"
)

// Signal is one editor notification, serialised as a JSON line:
//
//	{"signal":"edit","file":"main.go","line":12}
type Signal struct {
	Signal    string `json:"signal"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Member    string `json:"member,omitempty"`
	Class     string `json:"class,omitempty"`
	Namespace string `json:"namespace,omitempty"`

	// Milliseconds of silence before this signal. Only replay scripts use it.
	ElapsedMs int64 `json:"elapsed_ms,omitempty"`
}

// Context returns the code location carried by the signal
func (s Signal) Context() activity.CodeContext {
	return activity.CodeContext{
		File:      s.File,
		Line:      s.Line,
		Member:    s.Member,
		ClassName: s.Class,
		Namespace: s.Namespace,
	}
}

func (s Signal) Elapsed() time.Duration {
	return time.Duration(s.ElapsedMs) * time.Millisecond
}

// Validate checks the signal name and location
func (s Signal) Validate() error {
	switch s.Signal {
	case Focus, Edit:
		if s.File == "" {
			return fmt.Errorf("%s signal requires a file", s.Signal)
		}
	case Coding, Debugging, Navigating, Building:
	case "":
		return fmt.Errorf("missing signal name")
	default:
		return fmt.Errorf("unknown signal %q", s.Signal)
	}
	if s.ElapsedMs < 0 {
		return fmt.Errorf("negative elapsed_ms %d", s.ElapsedMs)
	}
	return nil
}

// ParseLine decodes and validates one JSON line
func ParseLine(line []byte) (Signal, error) {
	var s Signal
	if err := sonic.Unmarshal(line, &s); err != nil {
		return Signal{}, fmt.Errorf("invalid signal JSON: %w", err)
	}
	s.Signal = strings.ToLower(strings.TrimSpace(s.Signal))
	if err := s.Validate(); err != nil {
		return Signal{}, err
	}
	return s, nil
}

// Target receives decoded signals
type Target interface {
	TrackFocusEvent(ctx activity.CodeContext) error
	TrackCodingEvent(ctx activity.CodeContext) error
	TrackDebuggingState() error
	TrackCodingState() error
	TrackNavigatingState() error
	TrackBuildingState() error
}

// Apply forwards s to the matching tracker operation
func Apply(target Target, s Signal) error {
	switch s.Signal {
	case Focus:
		return target.TrackFocusEvent(s.Context())
	case Edit:
		return target.TrackCodingEvent(s.Context())
	case Coding:
		return target.TrackCodingState()
	case Debugging:
		return target.TrackDebuggingState()
	case Navigating:
		return target.TrackNavigatingState()
	case Building:
		return target.TrackBuildingState()
	default:
		return fmt.Errorf("unknown signal %q", s.Signal)
	}
}
