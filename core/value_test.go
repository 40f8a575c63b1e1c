package core

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueAccessorsRoundTrip(t *testing.T) {
	require.Equal(t, KindU32, ValueU32(7).Kind())
	got, err := ValueU32(7).AsU32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), got)

	big128, err := ValueU128(big.NewInt(42)).AsU128()
	require.NoError(t, err)
	require.Equal(t, 0, big128.Cmp(big.NewInt(42)))

	fx, err := ValueFixed(Fixed{Mantissa: 150, Scale: 2}).AsFixed()
	require.NoError(t, err)
	require.Equal(t, Fixed{Mantissa: 150, Scale: 2}, fx)
}

func TestValueAccessorTypeMismatchIsTypeMismatchError(t *testing.T) {
	_, err := ValueString("x").AsU32()
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrTypeMismatch, coreErr.Kind)
}

func TestFixedIsZero(t *testing.T) {
	require.True(t, Fixed{}.IsZero())
	require.False(t, Fixed{Mantissa: 1}.IsZero())
}
