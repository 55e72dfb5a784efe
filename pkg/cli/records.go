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
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/recordkeeper/pkg/record"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
)

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one record",
		ArgsUsage: "KEY",
		Flags:     []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := requireKey(cmd)
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
			return writeOutput(ctx, cmd, doc)
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all records",
		Flags:   []cli.Flag{outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			list, err := c.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			return writeOutput(ctx, cmd, list)
		},
	}
}

func createCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a record",
		ArgsUsage: "KEY",
		Description: `Create a record from --file and --set values. Fields that are not
given take their schema defaults.

  rkctl create Ann --set name=Ann --set age=20`,
		Flags: []cli.Flag{setFlag(), fileFlag(), callbackFlag(), outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
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
			doc, err := c.Create(ctx, key, payloadRecord(p), writeOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", key, err)
			}
			return writeOutput(ctx, cmd, doc)
		},
	}
}

func patchCmd() *cli.Command {
	return &cli.Command{
		Name:      "patch",
		Usage:     "Update the given fields of a record",
		ArgsUsage: "KEY",
		Description: `Send a partial update. Only the named fields change; every other field
keeps its stored value. Set a field to null to clear it.

  rkctl patch Lily --set age=36
  rkctl patch Lily --set email=null
  rkctl patch Lily --json-patch ops.json`,
		Flags: []cli.Flag{
			setFlag(),
			fileFlag(),
			&cli.StringFlag{
				Name:  "json-patch",
				Usage: `file with an RFC 6902 operation list ("-" for stdin)`,
			},
			ifMatchFlag(),
			callbackFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			if path := cmd.String("json-patch"); path != "" {
				ops, err := readJSONPatch(path)
				if err != nil {
					return err
				}
				doc, err := c.JSONPatch(ctx, key, ops, writeOptions(cmd))
				if err != nil {
					return fmt.Errorf("failed to patch %s: %w", key, err)
				}
				return writeOutput(ctx, cmd, doc)
			}

			p, err := loadPayload(ctx, cmd)
			if err != nil {
				return err
			}
			doc, err := c.Patch(ctx, key, p, writeOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to patch %s: %w", key, err)
			}
			return writeOutput(ctx, cmd, doc)
		},
	}
}

func replaceCmd() *cli.Command {
	return &cli.Command{
		Name:      "replace",
		Usage:     "Replace a record",
		ArgsUsage: "KEY",
		Description: `Replace the whole record. Fields that are not given are reset to their
schema defaults.`,
		Flags: []cli.Flag{setFlag(), fileFlag(), ifMatchFlag(), callbackFlag(), outputFlag(), formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
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
			doc, err := c.Replace(ctx, key, payloadRecord(p), writeOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to replace %s: %w", key, err)
			}
			return writeOutput(ctx, cmd, doc)
		},
	}
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a record",
		ArgsUsage: "KEY",
		Flags:     []cli.Flag{ifMatchFlag(), callbackFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := requireKey(cmd)
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			doc, err := c.Delete(ctx, key, writeOptions(cmd))
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
			fmt.Fprintf(cmd.Root().Writer, "deleted %s\n", key)
			if doc.Callback != nil {
				fmt.Fprintf(cmd.Root().Writer, "callback status %d, acknowledged %t\n",
					doc.Callback.Status, doc.Callback.Acknowledged)
			}
			return nil
		},
	}
}

// readJSONPatch reads an operation list and checks that it is a JSON array.
func readJSONPatch(path string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == serializer.StdinPath {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read json patch %s: %w", path, err)
	}
	var ops []json.RawMessage
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("json patch %s must be an array of operations: %w", path, err)
	}
	return json.RawMessage(data), nil
}

// payloadRecord returns the present fields of p.
func payloadRecord(p record.Payload) record.Record {
	out := record.Record{}
	for _, f := range p.Presence.Sorted() {
		out[f] = p.Values[f]
	}
	return out
}
