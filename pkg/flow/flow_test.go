package flow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchurichi/logdash/pkg/record"
)

func withStack(t *testing.T, msg, metadata string) *record.Record {
	t.Helper()
	v, err := record.ParseValue(metadata)
	require.NoError(t, err)
	return &record.Record{Level: "INFO", Message: msg, Metadata: &v}
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestModuleName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"app/handlers/user.py", "user"},
		{"main.py", "main"},
		{"pkg/archive.tar.gz", "archive"},
		{`C:\bot\worker.py`, "worker"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := ModuleName(tt.in); got != tt.want {
			t.Errorf("ModuleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuild(t *testing.T) {
	records := []*record.Record{
		withStack(t, "first", `{"call_stack":[
			{"file":"bot/main.py","function":"run"},
			{"file":"bot/handlers.py","function":"on_start"},
			{"file":"bot/db.py","function":"save"}]}`),
		withStack(t, "second", `{"call_stack":[
			{"file":"bot/main.py","function":"run"},
			{"file":"bot/handlers.py","function":"on_help"}]}`),
	}

	g := Build(records)

	assert.Equal(t, []string{
		"module:main", "module:handlers", "module:db",
		"main.run", "handlers.on_start", "db.save", "handlers.on_help",
	}, ids(g.Nodes))

	assert.Equal(t, []Edge{
		{From: "main.run", To: "module:main", Kind: EdgeBelongs},
		{From: "main.run", To: "handlers.on_start", Kind: EdgeCalls},
		{From: "handlers.on_start", To: "module:handlers", Kind: EdgeBelongs},
		{From: "handlers.on_start", To: "db.save", Kind: EdgeCalls},
		{From: "db.save", To: "module:db", Kind: EdgeBelongs},
		{From: "main.run", To: "handlers.on_help", Kind: EdgeCalls},
		{From: "handlers.on_help", To: "module:handlers", Kind: EdgeBelongs},
	}, g.Edges)

	main := g.Nodes[0]
	assert.Equal(t, TypeModule, main.Type)
	assert.Equal(t, 2, main.Calls)

	run := g.Nodes[3]
	assert.Equal(t, TypeFunction, run.Type)
	assert.Equal(t, "module:main", run.Module)
	require.Len(t, run.Messages, 2)
	assert.Equal(t, "first", run.Messages[0].Message)
	assert.Equal(t, "second", run.Messages[1].Message)
}

func TestBuild_StopsAtMalformedFrame(t *testing.T) {
	g := Build([]*record.Record{
		withStack(t, "x", `{"call_stack":[
			{"file":"a.py","function":"one"},
			{"file":"b.py"},
			{"file":"c.py","function":"three"}]}`),
	})

	assert.Equal(t, []string{"module:a", "a.one"}, ids(g.Nodes))
	assert.Equal(t, []Edge{{From: "a.one", To: "module:a", Kind: EdgeBelongs}}, g.Edges)
}

func TestBuild_ModuleAndFunctionIDsDoNotCollide(t *testing.T) {
	g := Build([]*record.Record{
		withStack(t, "a", `{"call_stack":[{"file":"module.py","function":"foo"}]}`),
		withStack(t, "b", `{"call_stack":[{"file":"foo.py","function":"bar"}]}`),
	})

	assert.Equal(t, []string{"module:module", "module:foo", "module.foo", "foo.bar"}, ids(g.Nodes))

	foo := g.Nodes[1]
	assert.Equal(t, TypeModule, foo.Type)
	assert.Equal(t, "foo", foo.Label)
	assert.Equal(t, 1, foo.Calls)
	assert.Empty(t, foo.Messages)

	fn := g.Nodes[2]
	assert.Equal(t, TypeFunction, fn.Type)
	assert.Equal(t, "module:module", fn.Module)
	require.Len(t, fn.Messages, 1)
	assert.Equal(t, "a", fn.Messages[0].Message)
}

func TestBuild_IgnoresRecordsWithoutStack(t *testing.T) {
	records := []*record.Record{
		{Message: "no metadata"},
		withStack(t, "not an array", `{"call_stack":"main.py"}`),
		withStack(t, "array metadata", `[1,2,3]`),
		withStack(t, "number file", `{"call_stack":[{"file":1,"function":"f"}]}`),
	}

	g := Build(records)
	assert.Empty(t, g.Nodes)

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))
}
