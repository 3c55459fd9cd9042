package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePaymentQR(t *testing.T) {
	content := BuildTransferContent("64f1a2b3c4d5e6f7a8b9c0d1", 500000)
	assert.Equal(t, "AGILETECH 64f1a2b3c4d5e6f7a8b9c0d1 500000", content)

	dataURL, err := GeneratePaymentQR(content)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
	assert.Greater(t, len(dataURL), len("data:image/png;base64,"))
}
