package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlatformFromUserAgent(t *testing.T) {
	assert.Equal(t, "", PlatformFromUserAgent("  "))
	assert.Equal(t, "iPhone", PlatformFromUserAgent(
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"))
	assert.NotEmpty(t, PlatformFromUserAgent("PassKit/1.0 (iPhone; iOS 17.2)"))
}

func TestSerialList_Empty(t *testing.T) {
	assert.True(t, SerialList{}.Empty())
	assert.False(t, SerialList{LastUpdated: time.Now(), SerialNumbers: []string{"1234567"}}.Empty())
}
