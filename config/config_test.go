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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testArgs = []struct {
	file      []byte
	tableName string
	expected  *TableConfig
}{
	// config file does not exist
	{nil, "events", nil},
	// config does not have the requested table
	{[]byte(`
table:
  other:
    schema: /data/other/schema.json
`), "events", nil},
	// requested table present
	{
		[]byte(`
log-level: debug
table:
  events:
    schema: /data/events/schema.json
    actions: /data/events/actions.jsonl
`), "events",
		&TableConfig{
			Schema:  "/data/events/schema.json",
			Actions: "/data/events/actions.jsonl",
		},
	},
	// actions is optional
	{
		[]byte(`
table:
  events:
    schema: /data/events/schema.json
`), "events",
		&TableConfig{Schema: "/data/events/schema.json"},
	},
}

func TestParseTable(t *testing.T) {
	for _, tt := range testArgs {
		actual := ParseTable(tt.file, tt.tableName)

		assert.Equal(t, tt.expected, actual)
	}
}
