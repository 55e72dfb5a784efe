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

	"github.com/NVIDIA/recordkeeper/pkg/header"
	"github.com/NVIDIA/recordkeeper/pkg/schema"
)

type schemaDocument struct {
	header.Header `json:",inline" yaml:",inline"`
	schema.Schema `json:",inline" yaml:",inline"`
}

func schemaCmd() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Inspect schemas and check records against them",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the server schema, or a local one with --schema",
				Flags: []cli.Flag{schemaFlag(), outputFlag(), formatFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var (
						s   *schema.Schema
						err error
					)
					if ref := cmd.String("schema"); ref != "" {
						s, err = schema.Resolve(ref)
					} else {
						c, cerr := newClient(cmd)
						if cerr != nil {
							return cerr
						}
						s, err = c.Schema(ctx)
					}
					if err != nil {
						return fmt.Errorf("failed to load schema: %w", err)
					}
					return writeOutput(ctx, cmd, schemaDocument{
						Header: header.Header{Kind: header.KindSchema, APIVersion: header.APIVersion},
						Schema: *s,
					})
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate record files against a schema",
				ArgsUsage: "FILE...",
				Flags:     []cli.Flag{schemaFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("validate requires at least one record file")
					}
					s, err := schema.Resolve(cmd.String("schema"))
					if err != nil {
						return err
					}
					failed := 0
					for _, path := range cmd.Args().Slice() {
						if verr := validateFile(ctx, s, path); verr != nil {
							failed++
							fmt.Fprintf(cmd.Root().Writer, "%s: %v\n", path, verr)
							continue
						}
						fmt.Fprintf(cmd.Root().Writer, "%s: valid\n", path)
					}
					if failed > 0 {
						return fmt.Errorf("%d of %d records are invalid", failed, cmd.Args().Len())
					}
					return nil
				},
			},
		},
	}
}

// validateFile checks a record file as the server would store it: missing
// optional fields take their defaults before validation.
func validateFile(ctx context.Context, s *schema.Schema, path string) error {
	rec, err := loadDocument(ctx, path)
	if err != nil {
		return err
	}
	return s.ValidateRecord(s.Canonicalize(s.Complete(rec)))
}
