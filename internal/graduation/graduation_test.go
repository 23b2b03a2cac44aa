package graduation_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmoreira/tesouraria/internal/graduation"
)

func TestCarnetConfig_Validate(t *testing.T) {
	valid := graduation.CarnetConfig{
		InstallmentValue:  5000,
		InstallmentsCount: 10,
		DueDay:            10,
		StartMonth:        2,
	}

	assert.NoError(t, valid.Validate())

	type testCase struct {
		name   string
		mutate func(c *graduation.CarnetConfig)
	}

	tests := []testCase{
		{"ZeroValue", func(c *graduation.CarnetConfig) { c.InstallmentValue = 0 }},
		{"NegativeValue", func(c *graduation.CarnetConfig) { c.InstallmentValue = -100 }},
		{"ZeroCount", func(c *graduation.CarnetConfig) { c.InstallmentsCount = 0 }},
		{"DueDayTooLow", func(c *graduation.CarnetConfig) { c.DueDay = 0 }},
		{"DueDayTooHigh", func(c *graduation.CarnetConfig) { c.DueDay = 32 }},
		{"StartMonthTooLow", func(c *graduation.CarnetConfig) { c.StartMonth = 0 }},
		{"StartMonthTooHigh", func(c *graduation.CarnetConfig) { c.StartMonth = 13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), graduation.ErrBadConfig)
		})
	}
}

func TestCarnetConfig_Installments(t *testing.T) {
	studentID := uuid.New()

	cfg := graduation.CarnetConfig{
		InstallmentValue:  5000,
		InstallmentsCount: 10,
		DueDay:            10,
		StartMonth:        2,
	}

	obligations := cfg.Installments(studentID, 2026)
	require.Len(t, obligations, 10)

	first := obligations[0]
	assert.Equal(t, studentID, first.StudentID)
	assert.Equal(t, graduation.KindMensalidade, first.Kind)
	assert.Equal(t, "Parcela 01/10", first.ReferenceLabel)
	assert.Equal(t, int64(5000), first.Amount)
	assert.Equal(t, graduation.StatusEmAberto, first.Status)
	assert.Equal(t, time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), first.DueDate)

	last := obligations[9]
	assert.Equal(t, "Parcela 10/10", last.ReferenceLabel)
	assert.Equal(t, time.Date(2026, time.November, 10, 0, 0, 0, 0, time.UTC), last.DueDate)

	for i, o := range obligations {
		require.NotNil(t, o.InstallmentNumber)
		assert.Equal(t, i+1, *o.InstallmentNumber)

		if i > 0 {
			assert.True(t, obligations[i-1].DueDate.Before(o.DueDate),
				"due dates must be strictly increasing")
		}
	}
}

func TestCarnetConfig_Installments_MonthOverflowRollsIntoNextYear(t *testing.T) {
	cfg := graduation.CarnetConfig{
		InstallmentValue:  2500,
		InstallmentsCount: 4,
		DueDay:            5,
		StartMonth:        11,
	}

	obligations := cfg.Installments(uuid.New(), 2026)
	require.Len(t, obligations, 4)

	assert.Equal(t, time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC), obligations[0].DueDate)
	assert.Equal(t, time.Date(2026, time.December, 5, 0, 0, 0, 0, time.UTC), obligations[1].DueDate)
	assert.Equal(t, time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC), obligations[2].DueDate)
	assert.Equal(t, time.Date(2027, time.February, 5, 0, 0, 0, 0, time.UTC), obligations[3].DueDate)
}
