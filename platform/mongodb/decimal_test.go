package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, s := range []string{"0", "20.00", "1234567.89", "0.005"} {
		t.Run(s, func(t *testing.T) {
			in := decimal.RequireFromString(s)
			d128, err := ToDecimal128(in)
			require.NoError(t, err)

			out, err := FromDecimal128(d128)
			require.NoError(t, err)
			assert.True(t, in.Equal(out), "%s != %s", in, out)
		})
	}
}
