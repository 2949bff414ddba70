package doctors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupMatchesLoosely(t *testing.T) {
	dir := BuiltIn()

	for _, name := range []string{"Dr. Johnson", "dr. johnson", "Johnson", "  DR   JOHNSON ", "Doctor Johnson"} {
		p, err := dir.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Dr. Johnson", p.Name)
		assert.Equal(t, "Cardiology", p.Specialty)
	}

	_, err := dir.Lookup("Dr. Who")
	assert.True(t, errors.Is(err, ErrDoctorNotFound))
}

func TestLookupOrDefault(t *testing.T) {
	dir := BuiltIn()

	p, ok := dir.LookupOrDefault("Dr. Brown")
	assert.True(t, ok)
	assert.Equal(t, "Dr. Brown", p.Name)

	p, ok = dir.LookupOrDefault("Dr. Nobody")
	assert.False(t, ok)
	assert.Equal(t, DefaultDoctor, p.Name)
}

func TestBuiltInRoster(t *testing.T) {
	dir := BuiltIn()
	assert.Equal(t, []string{"Dr. Smith", "Dr. Johnson", "Dr. Williams", "Dr. Brown"}, dir.Names())

	johnson, err := dir.Lookup("Dr. Johnson")
	require.NoError(t, err)
	assert.True(t, johnson.WorksOn(time.Tuesday))
	assert.False(t, johnson.WorksOn(time.Wednesday))
	assert.True(t, johnson.WithinHours(10))
	assert.True(t, johnson.WithinHours(15))
	assert.False(t, johnson.WithinHours(16))
	assert.False(t, johnson.WithinHours(9))
	assert.Equal(t, "Tuesday, Thursday", johnson.DaysList())
	assert.Equal(t, "10:00 to 16:00", johnson.HoursLabel())
	assert.Equal(t, "America/New_York", johnson.Location().String())
}

func TestLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, Profile{Timezone: "Mars/Olympus"}.Location())
	assert.Equal(t, time.UTC, Profile{}.Location())
}

func TestListReturnsCopy(t *testing.T) {
	dir := BuiltIn()
	list := dir.List()
	list[0].Name = "Dr. Changed"
	assert.Equal(t, "Dr. Smith", dir.List()[0].Name)
}

func TestNewDirectoryValidation(t *testing.T) {
	valid := Profile{Name: "Dr. A", AvailableDays: []time.Weekday{time.Monday}, StartHour: 9, EndHour: 17}

	tests := []struct {
		name     string
		profiles []Profile
		want     error
	}{
		{name: "empty", profiles: nil, want: ErrEmptyRoster},
		{name: "no name", profiles: []Profile{{AvailableDays: valid.AvailableDays, StartHour: 9, EndHour: 17}}, want: ErrInvalidProfile},
		{name: "no days", profiles: []Profile{{Name: "Dr. A", StartHour: 9, EndHour: 17}}, want: ErrInvalidProfile},
		{name: "inverted hours", profiles: []Profile{{Name: "Dr. A", AvailableDays: valid.AvailableDays, StartHour: 17, EndHour: 9}}, want: ErrInvalidProfile},
		{name: "hours past midnight", profiles: []Profile{{Name: "Dr. A", AvailableDays: valid.AvailableDays, StartHour: 20, EndHour: 25}}, want: ErrInvalidProfile},
		{name: "bad timezone", profiles: []Profile{{Name: "Dr. A", AvailableDays: valid.AvailableDays, StartHour: 9, EndHour: 17, Timezone: "Nowhere/Land"}}, want: ErrInvalidProfile},
		{name: "duplicate", profiles: []Profile{valid, valid}, want: ErrInvalidProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDirectory(tt.profiles)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDefaultWithoutSmithUsesFirst(t *testing.T) {
	dir, err := NewDirectory([]Profile{
		{Name: "Dr. A", AvailableDays: []time.Weekday{time.Monday}, StartHour: 9, EndHour: 17},
		{Name: "Dr. B", AvailableDays: []time.Weekday{time.Monday}, StartHour: 9, EndHour: 17},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. A", dir.Default().Name)
}

func TestRecommend(t *testing.T) {
	dir := BuiltIn()

	tests := []struct {
		text   string
		doctor string
		reason string
	}{
		{"I have chest pain", "Dr. Johnson", "Heart-related concerns"},
		{"a rash on my arm", "Dr. Williams", "Skin-related concerns"},
		{"my knee joint hurts", "Dr. Brown", "Musculoskeletal concerns"},
		{"I feel tired", "Dr. Smith", "General health consultation"},
		{"HEART palpitations and a rash", "Dr. Johnson", "Heart-related concerns"},
	}
	for _, tt := range tests {
		rec := dir.Recommend(tt.text)
		assert.Equal(t, tt.doctor, rec.Doctor.Name, tt.text)
		assert.Equal(t, tt.reason, rec.Reason, tt.text)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("thursday")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, d)

	d, err = ParseWeekday("Tue")
	require.NoError(t, err)
	assert.Equal(t, time.Tuesday, d)

	_, err = ParseWeekday("Funday")
	assert.Error(t, err)
}
