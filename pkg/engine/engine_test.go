package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchurichi/logdash/pkg/filter"
)

func setup(t *testing.T, files map[string][]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, lines := range files {
		content := strings.Join(lines, "\n") + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return New(Config{LogDir: dir})
}

func TestQuery_EndToEnd(t *testing.T) {
	e := setup(t, map[string][]string{
		"a.log": {`2024-01-01 10:00:00 - worker1 - INFO - started job [metadata:{"job_id":42}]`},
	})
	ctx := context.Background()

	res, err := e.Query(ctx, filter.Criteria{})
	require.NoError(t, err)
	require.Len(t, res.Logs, 1)

	r := res.Logs[0]
	assert.Equal(t, "INFO", r.Level)
	assert.Equal(t, "worker1", r.Name)
	assert.Equal(t, "started job", r.Message)
	assert.Equal(t, `{"job_id":42}`, r.Metadata.Text())
	assert.Equal(t, "a.log", r.SourceFile)

	res, err = e.Query(ctx, filter.Criteria{MetadataKey: "job_id", MetadataValue: "42"})
	require.NoError(t, err)
	require.Len(t, res.Logs, 1)
	assert.Equal(t, map[string]int{"a.log": 1}, res.Statistics.ByFile)
}

func TestQuery_JSONShape(t *testing.T) {
	e := setup(t, map[string][]string{
		"a.log": {"2024-01-01 10:00:00 - svc - ERROR - boom"},
	})

	res, err := e.Query(context.Background(), filter.Criteria{})
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"logs": [{
			"timestamp": "2024-01-01T10:00:00",
			"level": "ERROR",
			"name": "svc",
			"message": "boom",
			"metadata": null,
			"file": "a.log",
			"raw": "2024-01-01 10:00:00 - svc - ERROR - boom"
		}],
		"statistics": {
			"by_level": {"ERROR": 1},
			"by_hour": {"2024-01-01 10:00": 1},
			"by_file": {"a.log": 1},
			"by_name": {"svc": 1}
		}
	}`, string(data))
}

func TestQuery_EmptyDirectory(t *testing.T) {
	e := setup(t, map[string][]string{"junk.log": {"not a log line"}})

	res, err := e.Query(context.Background(), filter.Criteria{})
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"logs":[],"statistics":{"by_level":{},"by_hour":{},"by_file":{},"by_name":{}}}`, string(data))
}

func TestQuery_LevelFilterStats(t *testing.T) {
	e := setup(t, map[string][]string{
		"a.log": {
			"2024-01-01 10:00:00 - svc - ERROR - one",
			"2024-01-01 10:30:00 - svc - INFO - two",
		},
		"b.log": {
			"2024-01-01 11:00:00 - api - ERROR - three",
			"2024-01-01 12:00:00 - api - WARNING - four",
		},
	})

	res, err := e.Query(context.Background(), filter.Criteria{Level: "ERROR"})
	require.NoError(t, err)
	assert.Len(t, res.Logs, 2)
	assert.Equal(t, map[string]int{"ERROR": 2}, res.Statistics.ByLevel)
	assert.Equal(t, "three", res.Logs[0].Message)
}

func TestQuery_InvalidCriteria(t *testing.T) {
	e := New(Config{LogDir: filepath.Join(t.TempDir(), "missing")})

	_, err := e.Query(context.Background(), filter.Criteria{Where: "level =="})
	assert.ErrorIs(t, err, filter.ErrInvalidCriteria)
}

func TestQuery_MissingDirectory(t *testing.T) {
	e := New(Config{LogDir: filepath.Join(t.TempDir(), "missing")})

	_, err := e.Query(context.Background(), filter.Criteria{})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, filter.ErrInvalidCriteria)
}

func TestQuery_ReadsFreshEachTime(t *testing.T) {
	dir := t.TempDir()
	e := New(Config{LogDir: dir})
	ctx := context.Background()

	res, err := e.Query(ctx, filter.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, res.Logs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.log"),
		[]byte("2024-01-01 10:00:00 - svc - INFO - appeared\n"), 0644))

	res, err = e.Query(ctx, filter.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Logs, 1)
}

func TestQuery_Concurrent(t *testing.T) {
	e := setup(t, map[string][]string{
		"a.log": {"2024-01-01 10:00:00 - svc - INFO - x", "2024-01-01 11:00:00 - svc - INFO - y"},
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.Query(context.Background(), filter.Criteria{})
			assert.NoError(t, err)
			if res != nil {
				assert.Len(t, res.Logs, 2)
			}
		}()
	}
	wg.Wait()
}

func TestFiles(t *testing.T) {
	e := setup(t, map[string][]string{
		"b.log": {"x"},
		"a.log": {"x"},
		"c.txt": {"x"},
	})

	files, err := e.Files(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.log", "b.log"}, files)
}

func TestStats(t *testing.T) {
	e := setup(t, map[string][]string{
		"a.log": {"2024-01-01 10:00:00 - svc - INFO - x"},
	})

	b, err := e.Stats(context.Background(), filter.Criteria{Level: "DEBUG"})
	require.NoError(t, err)
	assert.Equal(t, 0, b.Total())
}

func TestFlow(t *testing.T) {
	e := setup(t, map[string][]string{
		"bot.log": {
			`2024-01-01 10:00:00 - bot - INFO - start [metadata:{"user_id":7,"call_stack":[{"file":"bot/main.py","function":"run"},{"file":"bot/cmd.py","function":"start"}]}]`,
			`2024-01-01 10:01:00 - bot - INFO - other [metadata:{"user_id":8,"call_stack":[{"file":"bot/main.py","function":"stop"}]}]`,
		},
	})

	g, err := e.Flow(context.Background(), filter.Criteria{MetadataKey: "user_id", MetadataValue: "7"})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
}
