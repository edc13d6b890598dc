package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSecret(t *testing.T) {
	hash, err := HashSecret("cron-token")
	require.NoError(t, err)

	assert.True(t, CheckSecret("plain", "", "plain"))
	assert.True(t, CheckSecret("", hash, "cron-token"))
	assert.False(t, CheckSecret("plain", hash, "wrong"))
	assert.False(t, CheckSecret("", "", ""))
	assert.False(t, CheckSecret("", "", "anything"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeText("  <b>hello</b> <script>alert(1)</script>world "))
	assert.Equal(t, "café & pão", SanitizeText("café & pão"))
}
