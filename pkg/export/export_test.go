package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows() []StatsRow {
	return []StatsRow{
		{Instance: "pat31.rcp", NumTasks: 22, NumResources: 3, MaxLength: 160, Result: 48, Limit: 50 * time.Second, Feasible: true},
		{Instance: "pat32.rcp", NumTasks: 22, NumResources: 3, MaxLength: 151, Result: 61.5, Feasible: false},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows()))
	want := "instance,num_of_tasks,num_of_resources,max_length,result,limit,feasible\n" +
		"pat31.rcp,22,3,160,48,50,true\n" +
		"pat32.rcp,22,3,151,61.5,,false\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "instance,num_of_tasks,num_of_resources,max_length,result,limit,feasible\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rows()))
	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 50.0, got[0]["limit"])
	assert.Nil(t, got[1]["limit"])
	assert.Equal(t, "pat32.rcp", got[1]["instance"])
	assert.Equal(t, false, got[1]["feasible"])
}

type failAfter struct {
	buf   bytes.Buffer
	limit int
}

func (f *failAfter) Write(p []byte) (int, error) {
	if f.buf.Len()+len(p) > f.limit {
		return 0, errors.New("disk full")
	}
	return f.buf.Write(p)
}

func TestStatsWriter_FlushesEachRow(t *testing.T) {
	header := "instance,num_of_tasks,num_of_resources,max_length,result,limit,feasible\n"
	first := "pat31.rcp,22,3,160,48,50,true\n"
	w := &failAfter{limit: len(header) + len(first)}
	sw := NewStatsWriter(w)
	r := rows()
	require.NoError(t, sw.Write(r[0]))
	assert.Equal(t, header+first, w.buf.String())
	assert.Error(t, sw.Write(r[1]))
	assert.Equal(t, 1, sw.Rows())
	assert.Equal(t, header+first, w.buf.String())
}
