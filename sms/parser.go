package sms

import (
	"errors"
	"strconv"
	"strings"
)

// Parser errors. Both are terminal: the gateway is told the text was
// malformed and nothing is persisted.
var (
	ErrInvalidFormat = errors.New("invalid format, message must start with REPORT")
	ErrMissingToken  = errors.New("missing vehicle token")
)

// Command is the logical report extracted from an inbound SMS body. It mirrors
// the fields accepted by the report ingestion endpoint; images are not
// possible over this channel.
type Command struct {
	Token          string
	Latitude       *float64
	Longitude      *float64
	ManualLocation string
	HelperNote     string
}

const (
	keywordReport   = "REPORT"
	keywordLocation = "LOCATION"
	keywordNote     = "NOTE"
)

// ParseCommand decodes the constrained SMS grammar:
//
//	REPORT <token> [<lat> <lng>] [LOCATION <free text>] [NOTE <free text>]
//
// Tokens three and four are treated as coordinates only when both parse as
// numbers inside valid latitude/longitude ranges; otherwise the remaining
// tokens are scanned for the LOCATION and NOTE keywords.
func ParseCommand(body string) (*Command, error) {
	tokens := strings.Fields(body)
	if len(tokens) == 0 || tokens[0] != keywordReport {
		return nil, ErrInvalidFormat
	}
	if len(tokens) < 2 {
		return nil, ErrMissingToken
	}

	cmd := &Command{Token: tokens[1]}
	rest := tokens[2:]

	if len(rest) >= 2 {
		lat, latErr := strconv.ParseFloat(rest[0], 64)
		lng, lngErr := strconv.ParseFloat(rest[1], 64)
		if latErr == nil && lngErr == nil && validLatitude(lat) && validLongitude(lng) {
			cmd.Latitude = &lat
			cmd.Longitude = &lng
			cmd.HelperNote = textAfterKeyword(rest[2:], keywordNote)
			return cmd, nil
		}
	}

	if idx := indexOfKeyword(rest, keywordLocation); idx >= 0 {
		locTokens := rest[idx+1:]
		if noteIdx := indexOfKeyword(locTokens, keywordNote); noteIdx >= 0 {
			cmd.ManualLocation = strings.Join(locTokens[:noteIdx], " ")
			cmd.HelperNote = strings.Join(locTokens[noteIdx+1:], " ")
		} else {
			cmd.ManualLocation = strings.Join(locTokens, " ")
		}
		return cmd, nil
	}

	cmd.HelperNote = textAfterKeyword(rest, keywordNote)
	return cmd, nil
}

func textAfterKeyword(tokens []string, keyword string) string {
	if idx := indexOfKeyword(tokens, keyword); idx >= 0 {
		return strings.Join(tokens[idx+1:], " ")
	}
	return ""
}

func indexOfKeyword(tokens []string, keyword string) int {
	for i, t := range tokens {
		if t == keyword {
			return i
		}
	}
	return -1
}

func validLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func validLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
