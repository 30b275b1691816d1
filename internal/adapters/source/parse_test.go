package source_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/squadmetrics/internal/adapters/source"
	"github.com/okian/squadmetrics/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sheet = ` Date ,Player, role ,Aim,HS%,ACS,Exam scores
2025-03-01,Sage,Sentinel,80,25%,210,9
3/2/2025,Jett,Duelist,,31,abc,7
not a date,Omen,Controller,60,18,190,
2025-03-04,,Duelist,99,99,99,99
2025-03-05,Sage,Sentinel,85,27,230,8
`

func TestParse_Sheet(t *testing.T) {
	t.Parallel()

	tbl, err := source.Parse(strings.NewReader(sheet), source.WithExcluded("exam scores"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Aim", "HS%", "ACS"}, tbl.Stats)
	assert.Equal(t, []string{"Aim", "HS%", "ACS", "Exam scores"}, tbl.Columns)
	require.Len(t, tbl.Records, 4, "row without player is dropped")

	sage := tbl.Records[0]
	assert.Equal(t, "Sage", sage.Player)
	assert.Equal(t, "Sentinel", sage.Role)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), sage.Date)
	assert.Equal(t, model.Some(25), sage.Stat("HS%"))
	assert.Equal(t, model.Some(9), sage.Stat("Exam scores"))

	jett := tbl.Records[1]
	assert.Equal(t, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC), jett.Date)
	assert.True(t, jett.Stat("Aim").IsMissing())
	assert.True(t, jett.Stat("ACS").IsMissing())

	omen := tbl.Records[2]
	assert.False(t, omen.Dated())
	assert.True(t, omen.Stat("Exam scores").IsMissing())

	assert.Equal(t, []string{"Jett", "Omen", "Sage"}, tbl.Players())
}

func TestParse_WithStats(t *testing.T) {
	t.Parallel()

	tbl, err := source.Parse(strings.NewReader(sheet), source.WithStats("ACS", "Comms", "Aim"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ACS", "Aim"}, tbl.Stats)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := source.Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, source.ErrNoHeader)

	_, err = source.Parse(strings.NewReader("Date,Name,Aim\n2025-01-01,x,1\n"))
	assert.ErrorIs(t, err, source.ErrNoPlayerColumn)
}

func TestParse_HeaderOnly(t *testing.T) {
	t.Parallel()

	tbl, err := source.Parse(strings.NewReader("Player,Aim\n"))
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
	assert.Equal(t, []string{"Aim"}, tbl.Stats)
}

func TestParse_RaggedRows(t *testing.T) {
	t.Parallel()

	tbl, err := source.Parse(strings.NewReader("Player,Aim,Comms\nx,10\ny,20,30,40\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Records, 2)
	assert.True(t, tbl.Records[0].Stat("Comms").IsMissing())
	assert.Equal(t, model.Some(30), tbl.Records[1].Stat("Comms"))
}
