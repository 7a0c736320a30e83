package ussd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simgate/sim-gateway/internal/domain"
)

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("*600*500*0661123456*0000#"))
	assert.NoError(t, ValidateCode("*222#"))
	assert.ErrorIs(t, ValidateCode(""), domain.ErrMalformedRequest)
	assert.ErrorIs(t, ValidateCode("   "), domain.ErrMalformedRequest)
	assert.ErrorIs(t, ValidateCode("*600*abc#"), domain.ErrMalformedRequest)
}

func TestRenderTransfer(t *testing.T) {
	code, err := RenderTransfer("*600*{amount}*{recipient}*{pin}#", 500, "0661123456", "0000")
	require.NoError(t, err)
	assert.Equal(t, "*600*500*0661123456*0000#", code)

	code, err = RenderTransfer("*610*{recipient}*{amount}#", 1200, "0770000000", "")
	require.NoError(t, err)
	assert.Equal(t, "*610*0770000000*1200#", code)
}

func TestRenderTransfer_RejectsFractionalAmount(t *testing.T) {
	code, err := RenderTransfer("*610*{recipient}*{amount}#", 12.5, "0770000000", "")
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)
	assert.Contains(t, err.Error(), "whole number")
	assert.Empty(t, code)
}

func TestRenderTransfer_Rejects(t *testing.T) {
	_, err := RenderTransfer("", 500, "0661123456", "0000")
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)

	_, err = RenderTransfer("*600*{amount}*{recipient}#", 0, "0661123456", "")
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)

	_, err = RenderTransfer("*600*{amount}*{recipient}#", 100, "06x1", "")
	assert.ErrorIs(t, err, domain.ErrMalformedRequest)
}

func TestMaskCode(t *testing.T) {
	assert.Equal(t, "*600*500*0661123456*****#", MaskCode("*600*500*0661123456*0000#"))
	assert.Equal(t, "*222#", MaskCode("*222#"))
}
