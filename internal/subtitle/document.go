package subtitle

import (
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
)

// Cue is one timed text entry. Its position in the slice is its index;
// indices are assigned when the document is written.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var blockSeparator = regexp.MustCompile(`\n[ \t]*\n`)

// Parse splits text into blank-line delimited blocks. Blocks with fewer than
// three lines (index, time range, text) are skipped; the index line is not
// checked because Serialize renumbers anyway.
func Parse(text string) ([]Cue, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Trim(text, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var cues []Cue
	for _, block := range blockSeparator.Split(text, -1) {
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 3 {
			continue
		}
		start, end, err := parseTimeRange(lines[1])
		if err != nil {
			return nil, err
		}
		cues = append(cues, Cue{
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}

func parseTimeRange(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, &FormatError{Input: line, Reason: "expected 'start --> end'"}
	}
	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, &FormatError{Input: line, Reason: "end precedes start"}
	}
	return start, end, nil
}

// Serialize renders cues numbered 1..N. Every block, including the last, is
// followed by one blank line.
func Serialize(cues []Cue) (string, error) {
	var b strings.Builder
	for i, cue := range cues {
		if err := WriteCue(&b, i+1, cue); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// WriteCue writes a single block with the given index. It is what Serialize
// uses, exposed so callers can stream a document one cue at a time.
func WriteCue(w io.Writer, index int, cue Cue) error {
	if err := cue.Validate(); err != nil {
		return fmt.Errorf("cue %d: %w", index, err)
	}
	start, err := FormatTimestamp(cue.Start)
	if err != nil {
		return fmt.Errorf("cue %d: %w", index, err)
	}
	end, err := FormatTimestamp(cue.End)
	if err != nil {
		return fmt.Errorf("cue %d: %w", index, err)
	}
	_, err = fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", index, start, end, cue.Text)
	return err
}

// Validate checks timing range and order and that the text has something
// to show.
func (c Cue) Validate() error {
	if math.IsNaN(c.Start) || math.IsNaN(c.End) || c.Start < 0 || math.Round(c.End*1000) > maxMillis {
		return &FormatError{Input: fmt.Sprintf("%v --> %v", c.Start, c.End), Reason: "timing out of range"}
	}
	if c.End < c.Start {
		return &FormatError{Input: fmt.Sprintf("%v --> %v", c.Start, c.End), Reason: "end precedes start"}
	}
	if strings.TrimSpace(c.Text) == "" {
		return &FormatError{Input: c.Text, Reason: "cue text is empty"}
	}
	// a blank line inside the text would end the block early
	for _, line := range strings.Split(c.Text, "\n") {
		if strings.TrimSpace(line) == "" {
			return &FormatError{Input: c.Text, Reason: "cue text contains a blank line"}
		}
	}
	return nil
}
