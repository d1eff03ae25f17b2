package dataprocessing

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/text/width"
)

// ErrMarker is matched by errors raised for malformed block marker tags
var ErrMarker = errors.New("malformed block marker")

// MarkerError reports a block marker cell that does not follow the tag grammar
type MarkerError struct {
	Text   string
	Reason string
}

func (e *MarkerError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMarker, e.Text, e.Reason)
}

// Is makes the marker error match both ErrMarker and ErrShape
func (e *MarkerError) Is(target error) bool {
	return target == ErrMarker || target == ErrShape
}

// Marker is the metadata carried by a block marker cell such as
// "配对日期：20210106 合约代码：a2101".
type Marker struct {
	DateLabel     string
	Date          time.Time
	DateText      string
	ContractLabel string
	Contract      string
}

// markerGrammar: label SEP date SPACE label SEP instrument, SEP being a full
// or half width colon.
var markerGrammar = regexp.MustCompile(`^\s*([^：:\s]+)\s*[：:]\s*(\d{8})\s+([^：:\s]+)\s*[：:]\s*(\S+)\s*$`)

// ParseMarker extracts the date and contract from a block marker cell.
// Full width digits and separators are folded before matching.
func ParseMarker(text string) (Marker, error) {
	m := markerGrammar.FindStringSubmatch(width.Fold.String(text))
	if m == nil {
		return Marker{}, &MarkerError{Text: text, Reason: "want \"label：YYYYMMDD label：contract\""}
	}

	date, err := time.Parse("20060102", m[2])
	if err != nil {
		return Marker{}, &MarkerError{Text: text, Reason: fmt.Sprintf("invalid date %q", m[2])}
	}

	return Marker{
		DateLabel:     m[1],
		Date:          date,
		DateText:      m[2],
		ContractLabel: m[3],
		Contract:      m[4],
	}, nil
}
