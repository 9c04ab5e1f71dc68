package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		wantMonth time.Month
		wantYear  int
	}{
		{"canonical", "Water Use For Jan 2023.csv", time.January, 2023},
		{"unix directory", "/home/me/exports/Water Use For Dec 2021.csv", time.December, 2021},
		{"windows directory", `C:\Users\me\Water Use For Apr 2022.csv`, time.April, 2022},
		{"full month name", "Water Use For September 2020.csv", time.September, 2020},
		{"lower case month", "Water Use For mar 2024.csv", time.March, 2024},
		{"other label", "Hydro Export For Jul 2019.csv", time.July, 2019},
		{"no extension", "Water Use For Feb 2023", time.February, 2023},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, year, err := ParseFilename(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMonth, month)
			assert.Equal(t, tt.wantYear, year)
		})
	}
}

func TestParseFilename_Malformed(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"no spaces", "WaterData.csv"},
		{"empty", ""},
		{"only year", "2023.csv"},
		{"unknown month", "Water Use For Foo 2023.csv"},
		{"short month token", "Water Use For Ja 2023.csv"},
		{"month and year swapped", "Water Use For 2023 Jan.csv"},
		{"two digit year", "Water Use For Jan 23.csv"},
		{"non numeric year", "Water Use For Jan 20x3.csv"},
		{"directory looks valid", "/data/Water Use For Jan 2023/WaterData.csv"},
		{"trailing copy suffix", "Water Use For Jan 2023 (1).csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseFilename(tt.path)
			require.Error(t, err)

			var nameErr *MalformedFilenameError
			assert.True(t, errors.As(err, &nameErr), "expected MalformedFilenameError, got %T", err)
		})
	}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		token string
		want  int
	}{
		{"1", 1},
		{" 17 ", 17},
		{"April 1", 1},
		{"Apr 30", 30},
		{"5-Monday", 5},
		{"Jan 12-Thu", 12},
		{"3rd", 3},
		{"21st", 21},
		{"31", 31},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			day, err := ParseDay(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, day)
		})
	}
}

func TestParseDay_Malformed(t *testing.T) {
	for _, token := range []string{"", "   ", "0", "32", "-5", "Monday", "April", "1.5", "Total"} {
		t.Run(token, func(t *testing.T) {
			_, err := ParseDay(token)
			var dayErr *MalformedDayError
			require.True(t, errors.As(err, &dayErr), "expected MalformedDayError for %q, got %v", token, err)
			assert.Equal(t, token, dayErr.Token)
		})
	}
}

func TestDateFromParts_RejectsImpossibleDay(t *testing.T) {
	_, err := dateFromParts(2023, time.February, 30, "30")
	var dayErr *MalformedDayError
	assert.True(t, errors.As(err, &dayErr))

	date, err := dateFromParts(2024, time.February, 29, "29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), date)
}
