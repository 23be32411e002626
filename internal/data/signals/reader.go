package signals

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

const maxLineSize = 1024 * 1024

// Source produces signals until its input ends or ctx is cancelled
type Source interface {
	Run(ctx context.Context, out chan<- Signal) error
}

// StreamSource reads JSON lines from a stream such as stdin. Invalid lines
// are logged and skipped.
type StreamSource struct {
	r io.Reader
}

func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

// Run returns nil at end of input. A read blocked on the stream is left
// behind when ctx is cancelled.
func (s *StreamSource) Run(ctx context.Context, out chan<- Signal) error {
	lines := make(chan []byte)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	lineNo := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errCh:
					if err != nil {
						return fmt.Errorf("failed to read signals: %w", err)
					}
				default:
				}
				return nil
			}
			lineNo++
			if err := emit(ctx, line, lineNo, out); err != nil {
				return nil
			}
		}
	}
}

// ReadAll decodes every line of r. Unlike a Source it fails on the first
// invalid line, reporting its number.
func ReadAll(r io.Reader) ([]Signal, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var result []Signal
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		s, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		result = append(result, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read signals: %w", err)
	}
	return result, nil
}

// emit parses one raw line and sends it; it only fails when ctx is done
func emit(ctx context.Context, raw []byte, lineNo int, out chan<- Signal) error {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 {
		return nil
	}

	s, err := ParseLine(line)
	if err != nil {
		util.LogDebugf("Skip invalid signal line %d: %v", lineNo, err)
		return nil
	}

	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
