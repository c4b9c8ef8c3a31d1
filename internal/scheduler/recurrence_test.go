package scheduler

import (
	"testing"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dateStrings(dates []domain.Date) []string {
	result := make([]string, 0, len(dates))
	for _, d := range dates {
		result = append(result, d.String())
	}
	return result
}

func TestExpand_WeeklyMondayWednesday(t *testing.T) {
	end := mustDate(t, "2025-01-18")
	dates, err := Expand(domain.Recurrence{
		Type:      domain.RecurrenceWeekly,
		StartDate: mustDate(t, "2025-01-05"),
		EndDate:   &end,
		Weekdays:  []int{1, 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-06", "2025-01-08", "2025-01-13", "2025-01-15"}, dateStrings(dates))
}

func TestExpand_OnceIgnoresEndDate(t *testing.T) {
	end := mustDate(t, "2025-02-01")
	dates, err := Expand(domain.Recurrence{
		Type:      domain.RecurrenceOnce,
		StartDate: mustDate(t, "2025-01-05"),
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-05"}, dateStrings(dates))
}

func TestExpand_DailyInclusive(t *testing.T) {
	end := mustDate(t, "2025-01-08")
	dates, err := Expand(domain.Recurrence{
		Type:      domain.RecurrenceDaily,
		StartDate: mustDate(t, "2025-01-05"),
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-05", "2025-01-06", "2025-01-07", "2025-01-08"}, dateStrings(dates))
}

func TestExpand_MissingEndDateDefaultsToStart(t *testing.T) {
	dates, err := Expand(domain.Recurrence{
		Type:      domain.RecurrenceDaily,
		StartDate: mustDate(t, "2025-01-05"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-05"}, dateStrings(dates))
}

func TestExpand_InvalidPatterns(t *testing.T) {
	before := mustDate(t, "2025-01-01")
	farAway := mustDate(t, "2026-06-01")

	tests := []struct {
		name string
		r    domain.Recurrence
	}{
		{"缺少开始日期", domain.Recurrence{Type: domain.RecurrenceDaily}},
		{"未知类型", domain.Recurrence{Type: "monthly", StartDate: mustDate(t, "2025-01-05")}},
		{"结束日期早于开始日期", domain.Recurrence{Type: domain.RecurrenceDaily, StartDate: mustDate(t, "2025-01-05"), EndDate: &before}},
		{"按周但没有星期", domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: mustDate(t, "2025-01-05")}},
		{"星期越界", domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: mustDate(t, "2025-01-05"), Weekdays: []int{7}}},
		{"星期重复", domain.Recurrence{Type: domain.RecurrenceWeekly, StartDate: mustDate(t, "2025-01-05"), Weekdays: []int{1, 1}}},
		{"跨度过长", domain.Recurrence{Type: domain.RecurrenceDaily, StartDate: mustDate(t, "2025-01-05"), EndDate: &farAway}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(tt.r)
			var validationErr *domain.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestCombine(t *testing.T) {
	date := mustDate(t, "2025-01-06")

	start, end, err := Combine(date, "08:00", "16:30", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 6, 16, 30, 0, 0, time.UTC), end)

	// 夜班结束时间顺延到次日
	start, end, err = Combine(date, "22:00", "06:00", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 6, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 7, 6, 0, 0, 0, time.UTC), end)

	_, _, err = Combine(date, "25:00", "06:00", time.UTC)
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
