package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
)

func TestWriteStatisticsCSV(t *testing.T) {
	rows := []analyzer.HeaderRow{
		{
			Library:      "asio",
			Header:       "boost/asio.hpp",
			RepoCount:    1234,
			UsageCount:   2000,
			LastCommit:   time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC),
			BoostVersion: "1.74.0",
		},
		{Library: "any", Header: "boost/any.hpp", RepoCount: 1, UsageCount: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatisticsCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, StatisticsColumns, records[0])
	assert.Equal(t, []string{"asio", "boost/asio.hpp", "1234", "2000", "2022-03-04T05:06:07Z", "1.74.0"}, records[1])
	assert.Equal(t, []string{"any", "boost/any.hpp", "1", "1", "", ""}, records[2])
}

func TestWriteStatisticsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatisticsCSV(&buf, nil))
	assert.Equal(t, "library_name,header_name,repository_count,usage_count,last_commit_time,boost_version\n", buf.String())
}
