package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	medmatch "github.com/kailas-cloud/medmatch/pkg/sdk"
)

func newResolveCmd() *cobra.Command {
	var (
		minConfidence float64
		maxResults    int
	)

	cmd := &cobra.Command{
		Use:   "resolve <text>...",
		Short: "Resolve a single medicine name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cc.withTimeout(cmd.Context())
			defer cancel()

			client, err := cc.client(ctx)
			if err != nil {
				return err
			}

			var opts []medmatch.LookupOption
			if cmd.Flags().Changed("min-confidence") {
				opts = append(opts, medmatch.MinConfidence(minConfidence))
			}
			if cmd.Flags().Changed("max-results") {
				opts = append(opts, medmatch.MaxResults(maxResults))
			}

			ms, err := client.Lookup(ctx, strings.Join(args, " "), opts...)
			if err != nil {
				return err
			}
			return printMatches(cmd.OutOrStdout(), cc.opts.output, ms)
		},
	}

	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 40, "minimum score (0-100)")
	cmd.Flags().IntVar(&maxResults, "max-results", 3, "number of matches returned")
	return cmd
}

// newDocumentCmd builds extract and strip, which share their input handling.
func newDocumentCmd(use, short string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   use + " [text]",
		Short: short,
		Long:  short + ".\nText comes from the argument, --file, or stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := getCLIContext(cmd)
			if err != nil {
				return err
			}
			text, err := readText(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}

			ctx, cancel := cc.withTimeout(cmd.Context())
			defer cancel()

			client, err := cc.client(ctx)
			if err != nil {
				return err
			}

			var ms []medmatch.Match
			if use == "strip" {
				ms, err = client.Strip(ctx, text)
			} else {
				ms, err = client.Extract(ctx, text)
			}
			if err != nil {
				return err
			}
			return printMatches(cmd.OutOrStdout(), cc.opts.output, ms)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from file")
	return cmd
}

func readText(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}

// client builds an SDK client over the configured catalog file.
func (cc *cliContext) client(ctx context.Context) (*medmatch.Client, error) {
	path := cc.opts.catalog
	if path == "" {
		path = cc.cfg.Catalog.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no catalog file: pass --catalog or set catalog.path")
	}

	r := cc.cfg.Resolver
	client, err := medmatch.New(ctx,
		medmatch.WithCatalogFile(path),
		medmatch.WithMinConfidence(r.MinConfidence),
		medmatch.WithMaxResults(r.LookupMaxResults),
		medmatch.WithParallelism(r.Parallelism),
		medmatch.WithMaxLines(r.MaxLinesScanned),
		medmatch.WithLogger(cc.sdkLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return client, nil
}

func printMatches(w io.Writer, format string, ms []medmatch.Match) error {
	if format == "table" {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Brand", "Generic", "Score", "Dosage", "Timing"})
		for _, m := range ms {
			row := []string{m.BrandName, m.Generic, fmt.Sprintf("%.3f", m.Score), m.Dosage, m.Timing}
			if err := table.Append(row); err != nil {
				return fmt.Errorf("append row: %w", err)
			}
		}
		return table.Render() //nolint:wrapcheck // terminal output
	}

	if ms == nil {
		ms = []medmatch.Match{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ms) //nolint:wrapcheck // terminal output
}
