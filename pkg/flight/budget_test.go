package flight

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBudget(t *testing.T) {
	cases := []struct {
		name    string
		added   []uint16
		flushed bool
		index   uint16
	}{
		{name: "below", added: []uint16{12, 40, 40}, index: 92},
		{name: "exact", added: []uint16{40, 40, 40, 40, 12, 12, 12, 12, 12, 12, 12, 12}, flushed: true, index: 0},
		{name: "residual", added: []uint16{40, 40, 40, 40, 40, 40, 12, 12, 12, 12, 12}, flushed: true, index: 44},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := NewBudget(256)
			for _, size := range c.added {
				b.Add(size)
			}
			require.Equal(t, c.flushed, b.Due())
			require.Equal(t, c.flushed, b.Settle())
			require.Equal(t, c.index, b.Index())
			require.False(t, b.Settle())
		})
	}
}
