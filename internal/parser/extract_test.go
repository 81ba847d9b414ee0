package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fix-logviewer/backend/internal/models"
)

func TestFindMessage(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "pipe delimited with log prefix",
			line: "2018-10-03 15:41:13,388 INFO : Sending FIX message: 8=FIX.4.4|9=5|35=0|10=1|",
			want: "8=FIX.4.4|9=5|35=0|10=1|",
		},
		{
			name: "soh delimited with trailing text",
			line: "in 8=FIX.4.2\x019=5\x0135=0\x01 (seq ok)",
			want: "8=FIX.4.2\x019=5\x0135=0\x01",
		},
		{
			name: "message at start of line",
			line: "8=FIXT.1.1|35=0|",
			want: "8=FIXT.1.1|35=0|",
		},
		{
			name: "span runs to the last delimiter",
			line: "8=FIX.4.4|35=0|x|y|z",
			want: "8=FIX.4.4|35=0|x|y|",
		},
		{
			name: "last of two messages",
			line: "resend 8=FIX.4.4|35=2|7=1| replaced by 8=FIX.4.2|35=4|36=9|",
			want: "8=FIX.4.2|35=4|36=9|",
		},
		{
			name: "last marker without two segments",
			line: "8=FIX.4.4|35=0| then 8=FIX.4.2|",
			want: "8=FIX.4.4|35=0| then 8=FIX.4.2|",
		},
		{
			name: "digit glued marker after a real one",
			line: "8=FIX.4.4|35=0|58=18=FIX.4.2|x|",
			want: "8=FIX.4.4|35=0|58=18=FIX.4.2|x|",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindMessage(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMessageAbsent(t *testing.T) {
	lines := []string{
		"",
		"plain log line",
		"8=FIX.4.4|",             // one segment only
		"18=FIX.4.4|9=1|35=0|",   // marker glued to a digit
		"8=FIX.4.4 9=1 35=0",     // no delimiters
		"BeginString 8=FOO|9=1|", // not a FIX marker
	}
	for _, line := range lines {
		_, err := FindMessage(line)
		assert.ErrorIs(t, err, ErrNoEmbeddedMessage, "line %q", line)
	}
}

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("8=FIX.4.4|9=12|58=a=b|junk|=x|44= 5|55=|x y=1|35=D|")
	require.NoError(t, err)
	assert.Equal(t, []models.FieldToken{
		{Tag: 8, Value: "FIX.4.4"},
		{Tag: 9, Value: "12"},
		{Tag: 58, Value: "a=b"},
		{Tag: 35, Value: "D"},
	}, tokens)
}

func TestTokenizeMixedDelimiters(t *testing.T) {
	tokens, err := Tokenize("8=FIX.4.4\x019=1|35=0\x01")
	require.NoError(t, err)
	assert.Len(t, tokens, 3)
}

func TestTokenizeMalformedTag(t *testing.T) {
	for _, msg := range []string{"8=FIX.4.4|abc=1|35=0|", "8=FIX.4.4|0=1|", "8=FIX.4.4|-5=1|"} {
		_, err := Tokenize(msg)
		assert.ErrorIs(t, err, ErrMalformedField, msg)
	}
}

func TestExtract(t *testing.T) {
	tokens, err := Extract("recv: 8=FIX.4.4|35=BE|923=r1|10=000|")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, 923, tokens[2].Tag)

	_, err = Extract("nothing to see")
	assert.ErrorIs(t, err, ErrNoEmbeddedMessage)
}

func TestFieldValue(t *testing.T) {
	tokens := []models.FieldToken{{Tag: 35, Value: "D"}, {Tag: 448, Value: "A"}, {Tag: 448, Value: "B"}}

	v, ok := FieldValue(tokens, 448)
	assert.True(t, ok)
	assert.Equal(t, "A", v, "first occurrence wins")

	_, ok = FieldValue(tokens, 8)
	assert.False(t, ok)
}
