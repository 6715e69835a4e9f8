package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hashtools/internal/logging"
	"hashtools/internal/record"
	"hashtools/internal/selection"
)

func newMetaCommand(ctx *commandContext) *cobra.Command {
	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Select, purge, and inspect record stream files",
	}

	metaCmd.AddCommand(newMetaSelectCommand(ctx))
	metaCmd.AddCommand(newMetaPruneCommand(ctx))
	metaCmd.AddCommand(newMetaPurgeCommand(ctx))
	metaCmd.AddCommand(newMetaRemoveCommand(ctx))
	metaCmd.AddCommand(newMetaCleanCommand(ctx))
	metaCmd.AddCommand(newMetaViewCommand(ctx))
	metaCmd.AddCommand(newMetaSummaryCommand(ctx))
	metaCmd.AddCommand(newMetaIntersectCommand())
	metaCmd.AddCommand(newMetaSplitCommand())
	metaCmd.AddCommand(newMetaValidateCommand())

	return metaCmd
}

func addTypeFilterFlag(cmd *cobra.Command, target *[]string) {
	cmd.Flags().StringSliceVarP(target, "mime-filter", "m", nil, "Restrict to these major content types (comma separated or repeated)")
}

// splitReference treats the first file as the reference set and the rest as
// data. A single file is both.
func splitReference(paths []string) ([]record.FileRecord, []record.FileRecord, error) {
	reference, err := record.ReadFile(paths[0])
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 1 {
		return reference, reference, nil
	}
	data, err := record.ReadFiles(paths[1:]...)
	if err != nil {
		return nil, nil, err
	}
	return reference, data, nil
}

func newMetaSelectCommand(ctx *commandContext) *cobra.Command {
	var (
		types       []string
		pathsOnly   bool
		summaryOnly bool
		copyTo      string
		prune       bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "select REFERENCE [DATA...]",
		Short: "Choose the canonical copy of every content group",
		Long: "Restrict DATA to hashes present in REFERENCE, group by content, and emit the primary of each group.\n" +
			"With a single file it is both reference and data.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			reference, data, err := splitReference(args)
			if err != nil {
				return err
			}
			result, err := engine.Select(reference, data, selection.SelectOptions{
				Types:  record.NewTypeFilter(types...),
				CopyTo: strings.TrimSpace(copyTo),
				Prune:  prune,
				Force:  force,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !summaryOnly {
				if err := writePrimaries(out, result.Groups, pathsOnly); err != nil {
					return err
				}
			}
			printSelectSummary(cmd.ErrOrStderr(), result, prune)
			return nil
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().BoolVar(&pathsOnly, "paths", false, "Print primary paths instead of records")
	cmd.Flags().BoolVar(&summaryOnly, "summary", false, "Print only the byte totals")
	cmd.Flags().StringVar(&copyTo, "copy", "", "Copy each primary under this directory, preserving relative paths")
	cmd.Flags().BoolVar(&prune, "prune", false, "Also delete redundant copies (preview unless --force)")
	cmd.Flags().BoolVar(&force, "force", false, "Apply deletions")
	return cmd
}

func newMetaPruneCommand(ctx *commandContext) *cobra.Command {
	var (
		types []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "prune FILES...",
		Short: "Delete every redundant copy, keeping one primary per group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			data, err := record.ReadFiles(args...)
			if err != nil {
				return err
			}
			result, err := engine.Prune(data, selection.SelectOptions{
				Types: record.NewTypeFilter(types...),
				Force: force,
			})
			if err != nil {
				return err
			}
			writeDeletions(cmd.OutOrStdout(), result.Deletions, result.Applied)
			printSelectSummary(cmd.ErrOrStderr(), result, true)
			return nil
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().BoolVar(&force, "force", false, "Apply deletions")
	return cmd
}

func newMetaPurgeCommand(ctx *commandContext) *cobra.Command {
	var (
		types  []string
		del    bool
		force  bool
		simple bool
	)

	cmd := &cobra.Command{
		Use:   "purge REFERENCE TARGET",
		Short: "Remove target records whose content already exists in the reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			reference, err := record.ReadFile(args[0])
			if err != nil {
				return err
			}
			target, err := record.ReadFile(args[1])
			if err != nil {
				return err
			}
			result, err := engine.Purge(reference, target, selection.PurgeOptions{
				Types:  record.NewTypeFilter(types...),
				Delete: del,
				Force:  force,
			})
			if result != nil {
				writePurge(cmd.OutOrStdout(), result, simple)
				printPurgeSummary(cmd.ErrOrStderr(), result, del)
			}
			return err
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().BoolVar(&del, "delete", false, "Delete matched files from disk (requires --force)")
	cmd.Flags().BoolVar(&force, "force", false, "Apply deletions")
	cmd.Flags().BoolVar(&simple, "simple", false, "Print only matched paths")
	return cmd
}

const removeLogTimestampLayout = "2006-01-02T15:04:05"

func newMetaRemoveCommand(ctx *commandContext) *cobra.Command {
	var (
		types     []string
		reference string
		logPath   string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "remove --reference FILE TARGET...",
		Short: "Delete every copy of the content held by the target files",
		Long: "Looks up each target file (directories are walked) in the reference record file and\n" +
			"lists every record sharing its hash and content type. Each line is also appended to\n" +
			"the removal log. Files are deleted only with --force.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			records, err := record.ReadFile(reference)
			if err != nil {
				return err
			}
			result, err := engine.Remove(records, args, selection.RemoveOptions{
				Types: record.NewTypeFilter(types...),
				Force: force,
			})
			if result == nil {
				return err
			}
			writeRemovals(cmd.OutOrStdout(), result.Entries)
			if logPath == "" {
				logPath = filepath.Join(cfg.Paths.LogDir, "meta-remove.log")
			}
			if logErr := appendRemoveLog(logPath, result.Entries, time.Now()); logErr != nil && err == nil {
				err = logErr
			}
			printRemoveSummary(cmd.ErrOrStderr(), result)
			return err
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().StringVarP(&reference, "reference", "r", "", "Reference record file to look targets up in")
	cmd.Flags().StringVar(&logPath, "log", "", "Removal log to append to (default <log_dir>/meta-remove.log)")
	cmd.Flags().BoolVar(&force, "force", false, "Delete the listed files")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func writeRemovals(out io.Writer, entries []selection.RemoveEntry) {
	for _, entry := range entries {
		fmt.Fprintf(out, "%s\t%s\n", entry.Status, entry.Path)
	}
}

func appendRemoveLog(path string, entries []selection.RemoveEntry, now time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create removal log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open removal log: %w", err)
	}
	w := bufio.NewWriter(f)
	ts := now.Format(removeLogTimestampLayout)
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ts, entry.Status, entry.Path)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write removal log: %w", err)
	}
	return f.Close()
}

func printRemoveSummary(out io.Writer, result *selection.RemoveResult) {
	fmt.Fprintf(out, "Targets: %s  matched: %s  listed: %s  reclaimable: %s\n",
		logging.FormatCount(int64(result.Targets)),
		logging.FormatCount(int64(result.Matched)),
		logging.FormatCount(int64(len(result.Entries))),
		logging.FormatBytes(result.ReclaimableBytes),
	)
	if result.Applied {
		fmt.Fprintf(out, "Deleted %s files\n", logging.FormatCount(int64(result.Deleted)))
		return
	}
	for _, entry := range result.Entries {
		if entry.Status == selection.RemoveDelete {
			fmt.Fprintln(out, "Preview only; re-run with --force to delete")
			return
		}
	}
}

func newMetaViewCommand(ctx *commandContext) *cobra.Command {
	var (
		types          []string
		duplicatesOnly bool
	)

	cmd := &cobra.Command{
		Use:   "view FILES...",
		Short: "List content groups with their primary and redundant members",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			skipped := 0
			data, err := record.ReadFilesLenient(func(perr *record.ParseError) {
				skipped++
				logger.Warn("malformed line skipped", logging.Error(perr))
			}, args...)
			if err != nil {
				return err
			}
			groups, err := engine.View(data, selection.ViewOptions{
				Types:          record.NewTypeFilter(types...),
				DuplicatesOnly: duplicatesOnly,
			})
			if err != nil {
				return err
			}
			writeGroups(cmd.OutOrStdout(), groups)
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %s malformed lines\n", logging.FormatCount(int64(skipped)))
			}
			return nil
		},
	}

	addTypeFilterFlag(cmd, &types)
	cmd.Flags().BoolVar(&duplicatesOnly, "duplicates-only", false, "Only show groups with more than one member")
	return cmd
}

func writePrimaries(out io.Writer, groups []selection.Group, pathsOnly bool) error {
	if pathsOnly {
		for _, g := range groups {
			fmt.Fprintln(out, g.Primary().FullPath())
		}
		return nil
	}
	w := record.NewWriter(out)
	for _, g := range groups {
		if err := w.Write(g.Primary()); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeGroups(out io.Writer, groups []selection.Group) {
	for _, g := range groups {
		fmt.Fprintf(out, "%s  %s  (%d, %s)\n", g.Key.Hash, g.Key.ContentType, len(g.Members), logging.FormatBytes(g.Size()))
		for i, m := range g.Members {
			fmt.Fprintf(out, "  %-9s  %s  %s\n", g.Disposition(i), m.ModifiedAt, m.FullPath())
		}
	}
}

func writeDeletions(out io.Writer, deletions []selection.Deletion, applied bool) {
	for _, d := range deletions {
		verb := "would delete"
		switch {
		case applied && d.Removed:
			verb = "deleted"
		case applied:
			verb = "not found"
		}
		fmt.Fprintf(out, "%s %s\n", verb, d.Record.FullPath())
	}
}

func writePurge(out io.Writer, result *selection.PurgeResult, simple bool) {
	for _, g := range result.Groups {
		if !simple {
			fmt.Fprintf(out, "%s  %s\n", g.Key.Hash, g.Key.ContentType)
		}
		for _, m := range g.Matches {
			if simple {
				fmt.Fprintln(out, m.Record.FullPath())
				continue
			}
			fmt.Fprintf(out, "  %-9s  %s\n", m.Status, m.Record.FullPath())
		}
	}
}

func printSelectSummary(out io.Writer, result *selection.SelectResult, prune bool) {
	fmt.Fprintf(out, "Groups: %s  selected: %s  unselected: %s\n",
		logging.FormatCount(int64(len(result.Groups))),
		logging.FormatBytes(result.SelectedBytes),
		logging.FormatBytes(result.UnselectedBytes),
	)
	if len(result.Copied) > 0 {
		fmt.Fprintf(out, "Copied %s primaries\n", logging.FormatCount(int64(len(result.Copied))))
	}
	if len(result.InPlace) > 0 {
		fmt.Fprintf(out, "Already in place: %s primaries\n", logging.FormatCount(int64(len(result.InPlace))))
	}
	if prune && !result.Applied && len(result.Deletions) > 0 {
		fmt.Fprintf(out, "Preview only: %s redundant files; re-run with --force to delete\n",
			logging.FormatCount(int64(len(result.Deletions))))
	}
}

func printPurgeSummary(out io.Writer, result *selection.PurgeResult, deleteRequested bool) {
	verb := "reclaimable"
	if result.Applied {
		verb = "reclaimed"
	}
	fmt.Fprintf(out, "Matched %s files in %s groups, %s %s\n",
		logging.FormatCount(int64(result.Matched)),
		logging.FormatCount(int64(len(result.Groups))),
		logging.FormatBytes(result.ReclaimableBytes),
		verb,
	)
	if result.NotFound > 0 {
		fmt.Fprintf(out, "%s files were already gone\n", logging.FormatCount(int64(result.NotFound)))
	}
	if !result.Applied && result.Matched > 0 {
		if deleteRequested {
			fmt.Fprintln(out, "Preview only; add --force to delete")
		} else {
			fmt.Fprintln(out, "Preview only; add --delete --force to delete")
		}
	}
}
