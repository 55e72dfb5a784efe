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
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/recordkeeper/pkg/merge"
	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
)

func schemaFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "schema",
		Usage:   "builtin schema name or schema file (default: item)",
		Sources: cli.EnvVars("RK_SCHEMA"),
	}
}

func mergeCmd() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge fields onto a record file offline",
		Description: `Apply --set and --file values to the record in --stored using the same
rules as the server, without contacting it. The result is validated against
--schema and written to --output.

  rkctl merge --stored lily.yaml --set age=36 --format yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "stored",
				Usage:    `record file to merge onto ("-" for stdin)`,
				Required: true,
			},
			setFlag(),
			fileFlag(),
			schemaFlag(),
			&cli.BoolFlag{
				Name:  "replace",
				Usage: "replace the record instead of merging",
			},
			&cli.BoolFlag{
				Name:  "diff",
				Usage: "print a diff instead of the merged record",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			stored, err := loadDocument(ctx, cmd.String("stored"))
			if err != nil {
				return fmt.Errorf("failed to load stored record: %w", err)
			}
			p, err := loadPayload(ctx, cmd)
			if err != nil {
				return err
			}
			s, err := schema.Resolve(cmd.String("schema"))
			if err != nil {
				return err
			}

			next, err := mergeOffline(merge.New(s), stored, p, cmd.Bool("replace"))
			if err != nil {
				return err
			}
			if cmd.Bool("diff") {
				return renderDiff(cmd.Root().Writer, stored, next)
			}
			return writeOutput(ctx, cmd, next)
		},
	}
}

func mergeOffline(eng *merge.Engine, stored record.Record, p record.Payload, replace bool) (record.Record, error) {
	if replace {
		return eng.Replace(stored, p)
	}
	return eng.Merge(stored, p)
}
