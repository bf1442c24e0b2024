package sql

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/tigerroll/weather_etl/pkg/batch/job/core"
)

func TestFailuresRoundTrip(t *testing.T) {
	assert.False(t, joinFailures(nil).Valid)

	stored := joinFailures([]error{errors.New("first"), errors.New("second\nline")})
	require.True(t, stored.Valid)

	got := splitFailures(stored)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Error())
	assert.Equal(t, "second line", got[1].Error())

	assert.Empty(t, splitFailures(sql.NullString{}))
}

func TestNullTime(t *testing.T) {
	assert.False(t, nullTime(time.Time{}).Valid)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	nt := nullTime(ts)
	require.True(t, nt.Valid)
	assert.Equal(t, time.UTC, nt.Time.Location())
	assert.True(t, ts.Equal(fromNullTime(nt)))
	assert.True(t, fromNullTime(sql.NullTime{}).IsZero())
}

func TestParametersRoundTrip(t *testing.T) {
	params := core.NewJobParameters()
	params.Put("run.timestamp", "1700000000000")

	s, err := marshalParameters(params)
	require.NoError(t, err)

	got, err := unmarshalParameters(sql.NullString{String: s, Valid: true})
	require.NoError(t, err)
	assert.Equal(t, params.Hash(), got.Hash())
}
