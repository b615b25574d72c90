package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyDue_ClampsToMonthEnd(t *testing.T) {
	anchor := date(2025, time.January, 31)
	want := []time.Time{
		date(2025, time.February, 28),
		date(2025, time.March, 31),
		date(2025, time.April, 30),
		date(2025, time.May, 31),
	}
	for k, w := range want {
		assert.Equal(t, w, Monthly().Due(anchor, k+1), "k=%d", k+1)
	}
}

func TestMonthlyDue_LeapYear(t *testing.T) {
	anchor := date(2024, time.January, 31)
	assert.Equal(t, date(2024, time.February, 29), Monthly().Due(anchor, 1))
	assert.Equal(t, date(2025, time.February, 28), Monthly().Due(anchor, 13))
}

func TestMonthlyDue_CrossesYear(t *testing.T) {
	anchor := time.Date(2025, time.November, 15, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.February, 15, 9, 30, 0, 0, time.UTC), Monthly().Due(anchor, 3))
}

func TestEveryDue(t *testing.T) {
	i, err := Every(5 * time.Hour)
	require.NoError(t, err)
	anchor := date(2025, time.January, 1)
	assert.Equal(t, anchor.Add(15*time.Hour), i.Due(anchor, 3))

	_, err = Every(0)
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: "monthly"},
		{in: "monthly", want: "monthly"},
		{in: " Monthly ", want: "monthly"},
		{in: "5h", want: "5h0m0s"},
		{in: "720h", want: "720h0m0s"},
		{in: "-1h", wantErr: true},
		{in: "fortnightly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterval(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestIntervalZero(t *testing.T) {
	assert.True(t, Interval{}.IsZero())
	assert.False(t, Monthly().IsZero())
}
