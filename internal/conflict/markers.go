package conflict

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/cvmerge/internal/cv"
)

// Parser state machine states
type parserState int

const (
	stateNormal parserState = iota
	stateInOurs
	stateInBase
	stateInTheirs
)

// Conflict marker prefixes
const (
	oursMarker      = "<<<<<<<"
	baseMarker      = "|||||||" // diff3 style
	separatorMarker = "======="
	theirsMarker    = ">>>>>>>"
)

// ParseError represents an error while parsing git conflict markers.
type ParseError struct {
	Line    int    // Line number where error occurred (1-indexed)
	Message string // Description of the error
	Context string // Surrounding content for debugging
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// MarkedFile is a snapshot file that git left with conflict markers, split
// into the two versions it interleaves.
type MarkedFile struct {
	Ours    string // File content with every region resolved to ours (HEAD)
	Theirs  string // File content with every region resolved to theirs
	Regions int    // Number of conflict regions found
}

// ParseMarkers reads a file containing git conflict markers and reconstructs
// both versions. diff3 base sections are dropped. A file without markers
// yields identical versions and zero regions.
func ParseMarkers(r io.Reader) (*MarkedFile, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	var ours, theirs strings.Builder
	result := &MarkedFile{}
	state := stateNormal
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch state {
		case stateNormal:
			switch {
			case strings.HasPrefix(line, oursMarker):
				state = stateInOurs
			case strings.HasPrefix(line, separatorMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected separator marker outside conflict region", Context: line}
			case strings.HasPrefix(line, theirsMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected end marker outside conflict region", Context: line}
			default:
				ours.WriteString(line + "\n")
				theirs.WriteString(line + "\n")
			}

		case stateInOurs, stateInBase:
			switch {
			case strings.HasPrefix(line, oursMarker):
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			case strings.HasPrefix(line, baseMarker):
				state = stateInBase
			case strings.HasPrefix(line, separatorMarker):
				state = stateInTheirs
			case strings.HasPrefix(line, theirsMarker):
				return nil, ParseError{Line: lineNum, Message: "unexpected end marker before separator", Context: line}
			default:
				if state == stateInOurs {
					ours.WriteString(line + "\n")
				}
			}

		case stateInTheirs:
			switch {
			case strings.HasPrefix(line, oursMarker):
				return nil, ParseError{Line: lineNum, Message: "nested conflict markers not allowed", Context: line}
			case strings.HasPrefix(line, separatorMarker):
				return nil, ParseError{Line: lineNum, Message: "duplicate separator marker in conflict region", Context: line}
			case strings.HasPrefix(line, theirsMarker):
				result.Regions++
				state = stateNormal
			default:
				theirs.WriteString(line + "\n")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if state != stateNormal {
		return nil, ParseError{Line: lineNum, Message: "unterminated conflict region at end of file"}
	}

	result.Ours = ours.String()
	result.Theirs = theirs.String()
	return result, nil
}

// ParseMarkersString is a convenience function that parses from a string.
func ParseMarkersString(content string) (*MarkedFile, error) {
	return ParseMarkers(strings.NewReader(content))
}

// Documents decodes both versions of the file as snapshots.
func (m *MarkedFile) Documents() (ours, theirs cv.Document, err error) {
	ours, err = cv.Decode([]byte(m.Ours))
	if err != nil {
		return cv.Document{}, cv.Document{}, fmt.Errorf("ours: %w", err)
	}
	theirs, err = cv.Decode([]byte(m.Theirs))
	if err != nil {
		return cv.Document{}, cv.Document{}, fmt.Errorf("theirs: %w", err)
	}
	return ours, theirs, nil
}

// HasConflicts returns true if the file contained any conflict regions.
func (m *MarkedFile) HasConflicts() bool {
	return m.Regions > 0
}
