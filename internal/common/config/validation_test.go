package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type settings struct {
	BaseUrl    string `validate:"required,url"`
	TokenStore string `validate:"oneof=keyring memory"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&settings{BaseUrl: "http://localhost:8000", TokenStore: "memory"}))
	assert.Error(t, Validate(&settings{TokenStore: "memory"}))
	assert.Error(t, Validate(&settings{BaseUrl: "http://localhost:8000", TokenStore: "file"}))
}

func TestStripPrefix(t *testing.T) {
	assert.Equal(t, "BaseUrl", stripPrefix("settings.BaseUrl"))
	assert.Equal(t, "BaseUrl", stripPrefix("BaseUrl"))
}
