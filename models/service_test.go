package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRequestCanConvert(t *testing.T) {
	assert.Nil(t, (&ServiceRequest{Status: RequestPending}).CanConvert())
	assert.Nil(t, (&ServiceRequest{Status: RequestReviewing}).CanConvert())

	err := (&ServiceRequest{Status: RequestConverted}).CanConvert()
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)

	err = (&ServiceRequest{Status: RequestRejected}).CanConvert()
	require.NotNil(t, err)
	assert.Equal(t, CodeState, err.Code)
}
