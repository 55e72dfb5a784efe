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
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/recordkeeper/pkg/client"
	"github.com/NVIDIA/recordkeeper/pkg/records"
	"github.com/NVIDIA/recordkeeper/pkg/serializer"
)

const defaultServer = "http://localhost:8080"

// Flags are built per command so parsed values never leak between runs.

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "recordkeeper server URL",
		Value:   defaultServer,
		Sources: cli.EnvVars("RK_SERVER"),
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage: `output destination: file path, "-" for stdout, or ConfigMap URI (cm://namespace/name)
	(default: stdout)`,
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   fmt.Sprintf("output format (%s)", strings.Join(serializer.SupportedFormats(), ", ")),
		Value:   string(serializer.FormatJSON),
	}
}

func ifMatchFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "if-match",
		Usage: `only write when the record is at this revision ("*" requires that it exists)`,
	}
}

func callbackFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "callback-url",
		Usage: "URL notified with a RecordEvent after the write",
	}
}

func setFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "set",
		Usage: "field value as key=value, parsed as JSON when it can be; null clears the field (repeatable)",
	}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   `JSON or YAML document with field values: file path, http(s) URL or "-" for stdin`,
	}
}

// parseOutputFormat returns the --format value when it is supported.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	return serializer.ParseFormat(cmd.String("format"))
}

// newClient builds an API client for --server.
func newClient(cmd *cli.Command) (*client.Client, error) {
	return client.New(cmd.String("server"), client.WithUserAgent(name+"/"+version))
}

func writeOptions(cmd *cli.Command) records.Options {
	return records.Options{
		IfMatch:     cmd.String("if-match"),
		CallbackURL: cmd.String("callback-url"),
	}
}

// requireKey returns the single positional key argument.
func requireKey(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s requires exactly one record key", cmd.Name)
	}
	return cmd.Args().First(), nil
}

// writeOutput serializes v to --output in --format.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	outFormat, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}

	ser := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
	defer func() {
		if closer, ok := ser.(serializer.Closer); ok {
			if err := closer.Close(); err != nil {
				slog.Warn("failed to close serializer", "error", err)
			}
		}
	}()

	return ser.Serialize(ctx, v)
}
