// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delta "github.com/delta-go/delta-go"
	"github.com/delta-go/delta-go/config"
	"github.com/delta-go/delta-go/engine"
	"github.com/delta-go/delta-go/scan"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestPruneFiles(t *testing.T) {
	tableSchema := delta.NewStructType(
		delta.StructField{Name: "a", Type: delta.PrimitiveTypes.Int64, Nullable: true},
	)
	filter, err := scan.NewDataSkippingFilter(engine.New(nil), tableSchema,
		delta.GreaterThan("a", int64(15)))
	require.NoError(t, err)
	require.NotNil(t, filter)

	low := writeFile(t, "low.jsonl",
		`{"add": {"path": "f1", "stats": "{\"minValues\":{\"a\":1},\"maxValues\":{\"a\":5}}"}}
{"add": {"path": "f2", "stats": "{\"minValues\":{\"a\":10},\"maxValues\":{\"a\":20}}"}}
`)
	high := writeFile(t, "high.jsonl",
		`{"add": {"path": "f3", "stats": "{\"minValues\":{\"a\":30},\"maxValues\":{\"a\":40}}"}}
`)

	pruned, err := pruneFiles(context.Background(), filter, []string{low, high}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"f2"}, {"f3"}}, pruned)
}

func TestPruneFilesNilFilterKeepsAll(t *testing.T) {
	actions := writeFile(t, "all.jsonl",
		`{"add": {"path": "f1", "stats": null}}
{"add": {"path": "f2", "stats": null}}
`)

	pruned, err := pruneFiles(context.Background(), nil, []string{actions}, 1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"f1", "f2"}}, pruned)
}

func TestPruneFilesMissingFile(t *testing.T) {
	_, err := pruneFiles(context.Background(), nil, []string{"no-such-file.jsonl"}, 1)
	assert.ErrorContains(t, err, "no-such-file.jsonl")
}

func TestTableLookupFromConfig(t *testing.T) {
	cfgPath := writeFile(t, ".delta-go.yaml", `
max-workers: 3
table:
  events:
    schema: events-schema.json
    actions: events.jsonl
`)

	tbl := config.ParseTable(config.LoadConfig(cfgPath), "events")
	require.NotNil(t, tbl)
	assert.Equal(t, "events-schema.json", tbl.Schema)
	assert.Equal(t, "events.jsonl", tbl.Actions)

	assert.Nil(t, config.ParseTable(config.LoadConfig(cfgPath), "missing"))
}
