// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/recordkeeper/pkg/merge"
	"github.com/NVIDIA/recordkeeper/pkg/record"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Diff two record files, or preview a patch against a stored record",
		ArgsUsage: "KEY | FILE FILE",
		Description: `With two files, print a line diff between the records they hold.

With a key, fetch the stored record and the server schema, merge the given
fields locally and print a line diff of the result. Nothing is written.

  rkctl diff before.yaml after.yaml
  rkctl diff --set age=36 --set email=null Lily`,
		Flags: []cli.Flag{
			setFlag(),
			fileFlag(),
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "preview a full replace instead of a patch",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 2 {
				return diffFiles(ctx, cmd.Root().Writer, cmd.Args().Get(0), cmd.Args().Get(1))
			}
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}
			p, err := loadPayload(ctx, cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			doc, err := c.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", key, err)
			}
			s, err := c.Schema(ctx)
			if err != nil {
				return fmt.Errorf("failed to get schema: %w", err)
			}

			eng := merge.New(s)
			var next record.Record
			if cmd.Bool("replace") {
				next, err = eng.Replace(doc.Record, p)
			} else {
				next, err = eng.Merge(doc.Record, p)
			}
			if err != nil {
				return err
			}
			return renderDiff(cmd.Root().Writer, doc.Record, next)
		},
	}
}

func diffFiles(ctx context.Context, w io.Writer, a, b string) error {
	before, err := loadDocument(ctx, a)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", a, err)
	}
	after, err := loadDocument(ctx, b)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", b, err)
	}
	return renderDiff(w, before, after)
}

// renderDiff writes a line diff of the indented JSON forms of before and after.
// Unchanged records print a single note.
func renderDiff(w io.Writer, before, after record.Record) error {
	a, err := indentRecord(before)
	if err != nil {
		return err
	}
	b, err := indentRecord(after)
	if err != nil {
		return err
	}
	if a == b {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				_, err = addedColor.Fprintf(w, "+ %s\n", line)
			case diffmatchpatch.DiffDelete:
				_, err = removedColor.Fprintf(w, "- %s\n", line)
			default:
				_, err = fmt.Fprintf(w, "  %s\n", line)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func indentRecord(r record.Record) (string, error) {
	if r == nil {
		r = record.Record{}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(data) + "\n", nil
}
