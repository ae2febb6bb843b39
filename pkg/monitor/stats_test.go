package monitor

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct{ n, h int }

func (f fakeIndex) Len() int          { return f.n }
func (f fakeIndex) Height() int       { return f.h }
func (f fakeIndex) Rotations() uint64 { return 7 }

func TestCountersAndRatio(t *testing.T) {
	ws := NewWorkloadStats()
	assert.Equal(t, 0.0, ws.GetReadWriteRatio())

	ws.RecordRead()
	ws.RecordRead()
	assert.Equal(t, 100.0, ws.GetReadWriteRatio())

	ws.RecordWrite()
	ws.RecordHit()
	ws.RecordDivergence()
	assert.Equal(t, 2.0, ws.GetReadWriteRatio())
	assert.Equal(t, Snapshot{Reads: 2, Writes: 1, Hits: 1, Divergence: 1}, ws.Snapshot())
}

func TestHandlerExposesIndexGauges(t *testing.T) {
	ws := NewWorkloadStats()
	ws.RegisterIndexGauges(fakeIndex{n: 12, h: 4})
	ws.RecordWrite()

	rec := httptest.NewRecorder()
	ws.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "contactdb_writes_total 1")
	assert.Contains(t, text, "contactdb_index_records 12")
	assert.Contains(t, text, "contactdb_index_height 4")
	assert.Contains(t, text, "contactdb_index_rotations 7")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewWorkloadStats(), NewWorkloadStats()
	a.RecordRead()
	assert.Equal(t, uint64(1), a.Snapshot().Reads)
	assert.Equal(t, uint64(0), b.Snapshot().Reads)
}

func TestRegistryGathersCounters(t *testing.T) {
	ws := NewWorkloadStats()
	ws.RegisterIndexGauges(fakeIndex{})
	ws.RecordHit()

	families, err := ws.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"contactdb_reads_total",
		"contactdb_writes_total",
		"contactdb_hits_total",
		"contactdb_divergence_total",
		"contactdb_index_records",
		"contactdb_index_height",
		"contactdb_index_rotations",
	} {
		assert.True(t, names[want], want)
	}
}
