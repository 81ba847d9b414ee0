package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/fix-logviewer/backend/internal/models"
)

// fixMessageRegex finds a message starting at 8=FIX that is not glued to a
// preceding digit and has at least two delimiter-terminated segments. The
// greedy prefix picks the last such marker on the line, and the greedy tail
// runs the match to the last delimiter.
var fixMessageRegex = regexp.MustCompile(`^(?:.*[^0-9])?(8=FIX[^\x01|]*[\x01|].*[\x01|])`)

func isDelimiter(r rune) bool {
	return r == '\x01' || r == '|'
}

// FindMessage returns the FIX message embedded in line.
func FindMessage(line string) (string, error) {
	m := fixMessageRegex.FindStringSubmatchIndex(line)
	if m == nil {
		return "", ErrNoEmbeddedMessage
	}
	return line[m[2]:m[3]], nil
}

// Tokenize splits a message into tag/value pairs in input order. Segments
// that do not look like tag=value are skipped; a well-formed segment whose
// tag is not a positive integer fails the whole message.
func Tokenize(msg string) ([]models.FieldToken, error) {
	segments := strings.FieldsFunc(msg, isDelimiter)
	tokens := make([]models.FieldToken, 0, len(segments))

	for _, seg := range segments {
		rawTag, value, ok := splitField(seg)
		if !ok {
			continue
		}
		tag, err := strconv.Atoi(rawTag)
		if err != nil || tag <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedField, seg)
		}
		tokens = append(tokens, models.FieldToken{Tag: tag, Value: value})
	}
	return tokens, nil
}

// splitField splits at the first '='. The value keeps any later '='.
func splitField(seg string) (tag, value string, ok bool) {
	idx := strings.IndexByte(seg, '=')
	if idx <= 0 || idx == len(seg)-1 {
		return "", "", false
	}
	tag, value = seg[:idx], seg[idx+1:]
	if strings.IndexFunc(tag, unicode.IsSpace) >= 0 {
		return "", "", false
	}
	if unicode.IsSpace(rune(value[0])) {
		return "", "", false
	}
	return tag, value, true
}

// Extract finds and tokenizes the FIX message embedded in line.
func Extract(line string) ([]models.FieldToken, error) {
	msg, err := FindMessage(line)
	if err != nil {
		return nil, err
	}
	return Tokenize(msg)
}
