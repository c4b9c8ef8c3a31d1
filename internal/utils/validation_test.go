package utils

import (
	"testing"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockSpanMinutes(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
		wantErr    bool
	}{
		{"09:00", "17:00", 480, false},
		{"22:00", "06:00", 480, false},
		{"08:00", "08:00", 1440, false},
		{"25:00", "06:00", 0, true},
		{"9点", "17:00", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			got, err := ClockSpanMinutes(tt.start, tt.end)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateWeekdays(t *testing.T) {
	assert.NoError(t, ValidateWeekdays([]int{0, 3, 6}))
	assert.Error(t, ValidateWeekdays(nil))
	assert.Error(t, ValidateWeekdays([]int{7}))
	assert.Error(t, ValidateWeekdays([]int{1, 1}))
}

func TestValidateBreak(t *testing.T) {
	assert.NoError(t, ValidateBreak(30, 480))
	assert.Error(t, ValidateBreak(-1, 480))
	assert.Error(t, ValidateBreak(480, 480))
}

func TestValidateShiftTemplate(t *testing.T) {
	valid := func() *domain.ShiftTemplate {
		return &domain.ShiftTemplate{
			Name:         "早班",
			StartTime:    "06:00",
			EndTime:      "14:00",
			RoleRequired: domain.ShiftRoleCashier,
			BreakMinutes: 30,
			Recurrence:   domain.TemplateRecurrence{Type: domain.RecurrenceWeekly, Weekdays: []int{1, 3, 5}},
		}
	}

	require.NoError(t, ValidateShiftTemplate(valid()))

	tests := []struct {
		name   string
		modify func(st *domain.ShiftTemplate)
	}{
		{"名称为空", func(st *domain.ShiftTemplate) { st.Name = "" }},
		{"时间格式错误", func(st *domain.ShiftTemplate) { st.EndTime = "24:30" }},
		{"岗位不合法", func(st *domain.ShiftTemplate) { st.RoleRequired = "driver" }},
		{"休息时间过长", func(st *domain.ShiftTemplate) { st.BreakMinutes = 480 }},
		{"按周重复没有星期", func(st *domain.ShiftTemplate) { st.Recurrence.Weekdays = nil }},
		{"重复类型不合法", func(st *domain.ShiftTemplate) { st.Recurrence.Type = "monthly" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := valid()
			tt.modify(st)
			assert.Error(t, ValidateShiftTemplate(st))
		})
	}
}

func TestGenerateRandomShiftTemplate(t *testing.T) {
	for n := 0; n < 20; n++ {
		st := GenerateRandomShiftTemplate(1)
		assert.Equal(t, int64(1), st.LocationID)
		assert.NoError(t, ValidateShiftTemplate(st))
	}
}

func TestGenerateRandomSubset(t *testing.T) {
	arr := []int64{1, 2, 3, 4, 5}
	for n := 0; n < 20; n++ {
		subset := GenerateRandomSubset(arr)
		assert.NotEmpty(t, subset)
		assert.LessOrEqual(t, len(subset), len(arr))
		assert.Subset(t, arr, subset)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, arr)
}
