package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributes_AppliesNamedDefaults(t *testing.T) {
	attrs, err := decodeAttributes([]byte(`{"FullName":"Jane","IDPin":"1234","EagleBucks":null}`), DefaultValues)
	require.NoError(t, err)

	assert.Equal(t, "Jane", attrs.Name)
	assert.Equal(t, DefaultValues.Balance, attrs.Balance)
	assert.Equal(t, DefaultValues.MealsRemaining, attrs.MealsRemaining)
	assert.Equal(t, DefaultValues.PrintBalance, attrs.PrintBalance)
	assert.Empty(t, attrs.Mailbox)
	assert.Empty(t, attrs.PhotoURL)
}

func TestDecodeAttributes_Mailbox(t *testing.T) {
	attrs, err := decodeAttributes([]byte(`{"FullName":"Jane","IDPin":"1234","Mailbox":412}`), DefaultValues)
	require.NoError(t, err)
	assert.Equal(t, "412", attrs.Mailbox)
}

func TestDecodeAttributes_RequiredFields(t *testing.T) {
	_, err := decodeAttributes([]byte(`{"FullName":"","PhotoURL":"x"}`), DefaultValues)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errMissingFields))
	assert.Contains(t, err.Error(), "FullName")
	assert.Contains(t, err.Error(), "IDPin")
}

func TestDecodeAttributes_NonScalarFallsBack(t *testing.T) {
	attrs, err := decodeAttributes([]byte(`{"FullName":"Jane","IDPin":"1234","MealsRemaining":{"x":1}}`), DefaultValues)
	require.NoError(t, err)
	assert.Equal(t, "0", attrs.MealsRemaining)
}

func TestDecodeAttributes_NotJSON(t *testing.T) {
	_, err := decodeAttributes([]byte(`nope`), DefaultValues)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errMissingFields))
}
