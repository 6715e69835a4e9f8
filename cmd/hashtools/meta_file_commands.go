package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hashtools/internal/logging"
	"hashtools/internal/progress"
	"hashtools/internal/record"
	"hashtools/internal/selection"
)

func newMetaCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		deep       bool
		force      bool
		verbose    bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "clean FILES...",
		Short: "Drop records whose files are gone or changed on disk",
		Long: "Shallow mode drops records whose path is no longer a regular file; --deep also compares size,\n" +
			"modification time, and content type. With --force each file is backed up before being rewritten.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			showProgress := !noProgress && progress.IsTerminal(cmd.ErrOrStderr())

			for _, path := range args {
				opts := selection.CleanOptions{Deep: deep, Force: force}
				var bar *progressbar.ProgressBar
				if showProgress {
					opts.Progress = func(done, total int) {
						if bar == nil {
							bar = newCleanBar(cmd.ErrOrStderr(), path, total)
						}
						_ = bar.Set(done)
					}
				}
				result, err := engine.Clean(path, opts)
				if bar != nil {
					_ = bar.Finish()
				}
				if err != nil {
					return err
				}
				writeCleanResult(out, result, verbose)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Also compare size, timestamp, and content type")
	cmd.Flags().BoolVar(&force, "force", false, "Back up and rewrite the record files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every dropped record")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func newCleanBar(w io.Writer, path string, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("checking "+path),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func writeCleanResult(out io.Writer, result *selection.CleanResult, verbose bool) {
	if verbose {
		for _, r := range result.Removed {
			fmt.Fprintf(out, "  %-14s %s\n", r.Reason, r.Record.FullPath())
		}
	}
	status := "preview"
	if result.Rewritten {
		status = "rewritten, backup " + result.BackupPath
	} else if len(result.Removed) == 0 {
		status = "unchanged"
	}
	fmt.Fprintf(out, "%s: %s records, %s kept, %s stale (%s)\n",
		result.Path,
		logging.FormatCount(int64(result.Total)),
		logging.FormatCount(int64(len(result.Kept))),
		logging.FormatCount(int64(len(result.Removed))),
		status,
	)
	for _, r := range result.Unchecked {
		fmt.Fprintf(out, "  unchecked      %s: %s\n", r.Record.FullPath(), r.Reason)
	}
}

func newMetaSummaryCommand(ctx *commandContext) *cobra.Command {
	var (
		detail bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary FILES...",
		Short: "Aggregate counts, duplication, and size distribution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			summary, err := selection.SummarizeFiles(args, detail, logger)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, summary)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderSummary(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&detail, "detail", false, "Count full content types instead of major types")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func renderSummary(s selection.Summary) string {
	var b strings.Builder
	totals := [][]string{
		{"Records", logging.FormatCount(s.Total)},
		{"Unique hashes", logging.FormatCount(s.UniqueHashes)},
		{"Duplicates", fmt.Sprintf("%s (%.1f%%)", logging.FormatCount(s.Duplicates), s.DuplicateRatio*100)},
		{"Total size", logging.FormatBytes(s.TotalBytes)},
		{"Oldest", s.Oldest},
		{"Newest", s.Newest},
	}
	if s.Skipped > 0 {
		totals = append(totals, []string{"Skipped lines", logging.FormatCount(s.Skipped)})
	}
	b.WriteString(renderTable([]string{"Metric", "Value"}, totals, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	typeRows := make([][]string, 0, len(s.Types))
	for _, t := range s.Types {
		typeRows = append(typeRows, []string{t.Type, logging.FormatCount(t.Count)})
	}
	b.WriteString(renderTable([]string{"Type", "Records"}, typeRows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	sizeRows := make([][]string, 0, len(s.Sizes))
	for _, bucket := range s.Sizes {
		sizeRows = append(sizeRows, []string{bucket.Label, logging.FormatCount(bucket.Count)})
	}
	b.WriteString(renderTable([]string{"Size", "Records"}, sizeRows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")
	return b.String()
}

func newMetaIntersectCommand() *cobra.Command {
	var (
		types  []string
		output string
	)

	cmd := &cobra.Command{
		Use:         "intersect A B",
		Short:       "Emit the records of A whose hash also appears in B",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := record.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, err := record.ReadFile(args[1])
			if err != nil {
				return err
			}
			matches := selection.Intersect(a, b, record.NewTypeFilter(types...))

			target := strings.TrimSpace(output)
			if target == "" || target == "-" {
				w := bufio.NewWriter(cmd.OutOrStdout())
				if err := writeRecords(w, matches); err != nil {
					return err
				}
				return w.Flush()
			}
			if err := record.WriteFile(target, matches); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s records to %s\n", logging.FormatCount(int64(len(matches))), target)
			return nil
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, or - for stdout")
	return cmd
}

func writeRecords(out io.Writer, recs []record.FileRecord) error {
	w := record.NewWriter(out)
	for _, rec := range recs {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

func newMetaSplitCommand() *cobra.Command {
	var (
		types     []string
		dir       string
		prefix    string
		majorType bool
	)

	cmd := &cobra.Command{
		Use:         "split FILE",
		Short:       "Split a record file into one file per content type",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := record.ReadFile(args[0])
			if err != nil {
				return err
			}
			outputs, err := selection.Split(recs, selection.SplitOptions{
				Dir:       dir,
				Prefix:    prefix,
				MajorType: majorType,
				Types:     record.NewTypeFilter(types...),
			})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(outputs))
			for _, o := range outputs {
				rows = append(rows, []string{o.Type, strconv.Itoa(o.Count), o.Path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Type", "Records", "File"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().StringVarP(&dir, "output-dir", "o", ".", "Directory for the split files")
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "split", "File name prefix")
	cmd.Flags().BoolVar(&majorType, "major-type", false, "Split by major type instead of full content type")
	return cmd
}

func newMetaValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate FILES...",
		Short:       "Lint record files for malformed lines",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := selection.ValidateFiles(args)
			out := cmd.OutOrStdout()
			for _, issue := range issues {
				fmt.Fprintln(out, issue.String())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d file(s) valid\n", len(args))
			return nil
		},
	}
}
