package night

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0m"},
		{59, "0m"},
		{60, "1m"},
		{2700, "45m"},
		{3600, "1h 0m"},
		{7200, "2h 0m"},
		{9000, "2h 30m"},
		{-5, "0m"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.seconds), "seconds=%d", c.seconds)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{850, "850 m"},
		{999, "999 m"},
		{1000, "1.0 km"},
		{2500, "2.5 km"},
		{12345, "12.3 km"},
		{-10, "0 m"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDistance(c.meters), "meters=%f", c.meters)
	}
}
