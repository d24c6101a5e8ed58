package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBytes(t *testing.T) {
	tests := map[string]struct {
		input    string
		expected int64
		err      bool
	}{
		"plain bytes": {input: "1048576", expected: 1048576},
		"binary":      {input: "512Mi", expected: 512 * 1024 * 1024},
		"decimal":     {input: "2G", expected: 2000000000},
		"padded":      {input: " 1Ki ", expected: 1024},
		"empty":       {input: "", err: true},
		"negative":    {input: "-1Mi", err: true},
		"garbage":     {input: "lots", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseBytes(tc.input)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0B", FormatBytes(0))
	assert.Equal(t, "1023B", FormatBytes(1023))
	assert.Equal(t, "100Mi", FormatBytes(100*1024*1024))
	assert.Equal(t, "50Mi", FormatBytes(50*1024*1024))
}
