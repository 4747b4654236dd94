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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/docopt/docopt-go"
	"golang.org/x/sync/errgroup"

	delta "github.com/delta-go/delta-go"
	"github.com/delta-go/delta-go/config"
	"github.com/delta-go/delta-go/engine"
	"github.com/delta-go/delta-go/scan"
)

const usage = `delta-skip.

Evaluates a scan predicate against per-file statistics and reports which
data files a scan would have to read.

Usage:
  delta-skip prune --predicate TEXT (--table NAME | --table-schema FILE) [ACTIONS ...]
  delta-skip rewrite --predicate TEXT
  delta-skip -h | --help | --version

Commands:
  prune    Print the paths of the files a scan must keep, one per line.
  rewrite  Print the statistics predicate derived from the scan predicate.

Arguments:
  ACTIONS  files of newline-delimited JSON add actions, each line of the form
           {"add": {"path": "...", "stats": "..."}}. Files are pruned
           concurrently and their kept paths printed in argument order. May
           be omitted when --table names a config entry with a default
           actions file.

Options:
  -h --help            show this help message and exit
  --table NAME         table entry from the .delta-go.yaml config file
  --table-schema FILE  path to the table schema as Delta schema JSON
  --predicate TEXT     scan predicate, e.g. "a > 15 AND b = 'x'"
  --config PATH        path to the config file, instead of the default`

const version = "delta-skip 0.1.0"

type cliArgs struct {
	Prune   bool `docopt:"prune"`
	Rewrite bool `docopt:"rewrite"`

	Table      string   `docopt:"--table"`
	SchemaFile string   `docopt:"--table-schema"`
	Predicate  string   `docopt:"--predicate"`
	Config     string   `docopt:"--config"`
	Actions    []string `docopt:"ACTIONS"`
}

var actionsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "add", Type: arrow.StructOf(
		arrow.Field{Name: "path", Type: arrow.BinaryTypes.String, Nullable: true},
		arrow.Field{Name: "stats", Type: arrow.BinaryTypes.String, Nullable: true},
	), Nullable: true},
}, nil)

func main() {
	args, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatal(err)
	}

	cfg := cliArgs{}
	if err := args.Bind(&cfg); err != nil {
		log.Fatal(err)
	}

	slog.SetLogLoggerLevel(logLevel(config.EnvConfig.LogLevel))

	predicate, err := parsePredicate(cfg.Predicate)
	if err != nil {
		log.Fatalf("bad predicate: %s", err)
	}

	schemaFile, actionsFiles := cfg.SchemaFile, cfg.Actions
	if cfg.Table != "" {
		tbl := config.ParseTable(config.LoadConfig(cfg.Config), cfg.Table)
		if tbl == nil {
			log.Fatalf("table %q not found in config", cfg.Table)
		}
		schemaFile = tbl.Schema
		if len(actionsFiles) == 0 && tbl.Actions != "" {
			actionsFiles = []string{tbl.Actions}
		}
	}

	switch {
	case cfg.Rewrite:
		err = rewrite(predicate)
	case cfg.Prune:
		err = prune(schemaFile, predicate, actionsFiles)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func rewrite(predicate delta.Expression) error {
	skipping := scan.AsDataSkippingPredicate(delta.RewriteNot(predicate))
	if skipping == nil {
		return fmt.Errorf("predicate is not eligible for data skipping")
	}

	fmt.Println(skipping.String())

	return nil
}

func prune(schemaFile string, predicate delta.Expression, actionsFiles []string) error {
	if len(actionsFiles) == 0 {
		return fmt.Errorf("no actions file given")
	}

	schemaJSON, err := os.ReadFile(schemaFile)
	if err != nil {
		return err
	}
	tableSchema, err := delta.ParseSchema(schemaJSON)
	if err != nil {
		return err
	}

	filter, err := scan.NewDataSkippingFilter(engine.New(nil), tableSchema, predicate)
	if err != nil {
		return err
	}

	pruned, err := pruneFiles(context.Background(), filter, actionsFiles,
		config.EnvConfig.MaxWorkers)
	if err != nil {
		return err
	}

	for _, paths := range pruned {
		for _, path := range paths {
			fmt.Println(path)
		}
	}

	return nil
}

// pruneFiles applies the filter to each actions file, at most maxWorkers at
// a time, and returns the kept paths per file in argument order. A nil
// filter keeps every path.
func pruneFiles(ctx context.Context, filter *scan.DataSkippingFilter,
	actionsFiles []string, maxWorkers int) ([][]string, error) {
	pruned := make([][]string, len(actionsFiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, file := range actionsFiles {
		g.Go(func() error {
			actions, err := loadActions(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			defer actions.Release()

			kept := actions
			if filter != nil {
				kept, err = filter.Apply(ctx, actions)
				if err != nil {
					return fmt.Errorf("%s: %w", file, err)
				}
				defer kept.Release()
			}

			pruned[i] = addPaths(kept)

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pruned, nil
}

// loadActions reads newline-delimited JSON add actions into a record batch.
func loadActions(path string) (arrow.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) != "" {
			rows = append(rows, line)
		}
	}

	rec, _, err := array.RecordFromJSON(memory.DefaultAllocator, actionsSchema,
		strings.NewReader("["+strings.Join(rows, ",")+"]"))

	return rec, err
}

func addPaths(rec arrow.Record) []string {
	add, ok := rec.Column(0).(*array.Struct)
	if !ok {
		return nil
	}
	idx, ok := add.DataType().(*arrow.StructType).FieldIdx("path")
	if !ok {
		return nil
	}
	paths := add.Field(idx).(*array.String)

	out := make([]string, 0, paths.Len())
	for i := 0; i < paths.Len(); i++ {
		out = append(out, paths.Value(i))
	}

	return out
}
