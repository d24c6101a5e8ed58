package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"
)

type sized struct {
	ChunkSize resource.Quantity
}

func TestQuantityDecodeHook(t *testing.T) {
	tests := map[string]struct {
		value    interface{}
		expected int64
		err      bool
	}{
		"binary suffix": {value: "100Mi", expected: 100 * 1024 * 1024},
		"padded string": {value: " 2Ki ", expected: 2048},
		"yaml integer":  {value: 4096, expected: 4096},
		"int64":         {value: int64(10), expected: 10},
		"float":         {value: 1.5e3, expected: 1500},
		"garbage":       {value: "big", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			v.Set("chunkSize", tc.value)
			var out sized
			err := v.Unmarshal(&out, CustomHooks...)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, out.ChunkSize.Value())
		})
	}
}
