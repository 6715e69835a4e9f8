package main

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hashtools/internal/logging"
	"hashtools/internal/record"
	"hashtools/internal/store"
	"hashtools/internal/verify"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Load, rank, and verify the inventory store",
	}

	dbCmd.AddCommand(newDBImportCommand(ctx))
	dbCmd.AddCommand(newDBViewCommand(ctx))
	dbCmd.AddCommand(newDBConsistencyCommand(ctx))
	dbCmd.AddCommand(newDBDeleteStaleCommand(ctx))

	return dbCmd
}

func newDBImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILES...",
		Short: "Load record files into the store, ignoring paths already present",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "store")
			runCtx := ctx.runContext(cmd)
			return ctx.withStore(runCtx, func(st *store.Store) error {
				out := cmd.OutOrStdout()
				var total int64
				for _, path := range args {
					recs, err := record.ReadFile(path)
					if err != nil {
						return err
					}
					inserted, err := st.Import(runCtx, recs)
					if err != nil {
						return fmt.Errorf("import %s: %w", path, err)
					}
					total += inserted
					logger.Info("record file imported",
						logging.String(logging.FieldPath, path),
						logging.Int("records", len(recs)),
						logging.Int64("inserted", inserted),
					)
					fmt.Fprintf(out, "%s: %s records, %s new\n", path,
						logging.FormatCount(int64(len(recs))), logging.FormatCount(inserted))
				}
				count, err := st.Count(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %s records; store holds %s\n",
					logging.FormatCount(total), logging.FormatCount(count))
				return nil
			})
		},
	}
}

func newDBViewCommand(ctx *commandContext) *cobra.Command {
	var (
		redundant bool
		types     []string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Stream ranked content groups from the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx := ctx.runContext(cmd)
			return ctx.withStore(runCtx, func(st *store.Store) error {
				w := bufio.NewWriter(cmd.OutOrStdout())
				var current record.Key
				err := st.Ranked(runCtx, store.RankedOptions{
					RedundantOnly: redundant,
					Types:         record.NewTypeFilter(types...),
				}, func(rr store.RankedRecord) error {
					if key := rr.Record.Key(); key != current {
						current = key
						fmt.Fprintf(w, "%s  %s\n", key.Hash, key.ContentType)
					}
					vault := ""
					if rr.Vault {
						vault = " vault"
					}
					_, err := fmt.Fprintf(w, "  %3d  %-9s  p%-3d%s  %s  %s\n",
						rr.Rank, rr.Disposition(), rr.Priority, vault, rr.Record.ModifiedAt, rr.Record.FullPath())
					return err
				})
				if err != nil {
					return err
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&redundant, "redundant", false, "Only list redundant copies")
	addTypeFilterFlag(cmd, &types)
	return cmd
}

func newDBConsistencyCommand(ctx *commandContext) *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "consistency",
		Short: "Confirm every stored record still exists on disk",
		Long: "Checks every storage root in parallel and writes one missing_rows_<root>.tsv report per root\n" +
			"into the report directory. Reports feed `db delete-stale`.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			return ctx.withStore(runCtx, func(st *store.Store) error {
				opts := verify.Options{
					ReportDir:        cfg.Paths.ReportDir,
					MaxRuntime:       cfg.MaxRuntime(),
					ProgressInterval: cfg.ConsistencyProgressInterval(),
					Logger:           logger,
				}
				if !noProgress {
					opts.Progress = cmd.ErrOrStderr()
				}
				v, err := verify.New(st, opts)
				if err != nil {
					return err
				}
				reports, err := v.Run(runCtx)
				if len(reports) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), renderRootReports(reports))
				}
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the status line")
	return cmd
}

func renderRootReports(reports []verify.RootReport) string {
	rows := make([][]string, 0, len(reports))
	var checked, missing, failed int64
	for _, r := range reports {
		rows = append(rows, []string{
			r.Root,
			logging.FormatCount(r.Checked),
			logging.FormatCount(r.Missing),
			logging.FormatCount(r.Failed),
			r.ReportPath,
		})
		checked += r.Checked
		missing += r.Missing
		failed += r.Failed
	}
	return tableSpec{
		title:   "Consistency",
		headers: []string{"Root", "Checked", "Missing", "Errors", "Report"},
		rows:    rows,
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
		footer: []string{
			strconv.Itoa(len(reports)) + " roots",
			logging.FormatCount(checked),
			logging.FormatCount(missing),
			logging.FormatCount(failed),
		},
	}.render()
}

func newDBDeleteStaleCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-stale REPORTS...",
		Short: "Delete the rows listed in consistency reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := ctx.runContext(cmd)
			return ctx.withStore(runCtx, func(st *store.Store) error {
				result, err := verify.DeleteStale(runCtx, st, args, force, logger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !result.Applied {
					for _, e := range result.Entries {
						fmt.Fprintf(out, "would delete %d\t%s\n", e.ID, e.FullPath)
					}
					if len(result.Entries) > 0 {
						fmt.Fprintf(out, "Preview only: %s rows; re-run with --force to delete\n",
							logging.FormatCount(int64(len(result.Entries))))
					}
					return nil
				}
				fmt.Fprintf(out, "Deleted %s of %s listed rows\n",
					logging.FormatCount(result.Deleted), logging.FormatCount(int64(len(result.Entries))))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Apply deletions")
	return cmd
}
