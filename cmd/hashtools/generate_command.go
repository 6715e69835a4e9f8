package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hashtools/internal/config"
	"hashtools/internal/digest"
	"hashtools/internal/logging"
	"hashtools/internal/record"
)

const outputTimestampLayout = "20060102-150405"

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		threads   int
		queueSize int
		batchSize int
		output    string
		include   []string
		silent    bool
	)

	cmd := &cobra.Command{
		Use:   "generate ROOT",
		Short: "Fingerprint every regular file under ROOT into a record stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			target := strings.TrimSpace(output)
			if target == "" {
				target = time.Now().Format(outputTimestampLayout) + ".meta"
			}
			toStdout := target == "-"

			sink := &outputSink{w: cmd.OutOrStdout()}
			buffered := bufio.NewWriter(sink)

			opts := digest.Options{
				Root:             root,
				Threads:          pick(threads, cfg.Generate.Threads),
				QueueSize:        pick(queueSize, cfg.Generate.QueueSize),
				BatchSize:        pick(batchSize, cfg.Generate.BatchSize),
				ChunkSize:        cfg.Generate.ChunkSize,
				Types:            record.NewTypeFilter(include...),
				Output:           buffered,
				ProgressInterval: cfg.GenerateProgressInterval(),
				Logger:           logger,
			}
			if !silent && !toStdout {
				opts.Progress = cmd.ErrOrStderr()
			}
			pipeline, err := digest.New(opts)
			if err != nil {
				return err
			}

			var file *os.File
			if !toStdout {
				file, err = os.Create(target)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				sink.w = file
			}

			stats, runErr := pipeline.Run(ctx.runContext(cmd))
			if err := buffered.Flush(); err != nil && runErr == nil {
				runErr = fmt.Errorf("flush output: %w", err)
			}
			if file != nil {
				if err := file.Close(); err != nil && runErr == nil {
					runErr = fmt.Errorf("close output: %w", err)
				}
			}
			if runErr != nil {
				return runErr
			}

			if !toStdout && !silent {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s records to %s (%s skipped, %s failed) in %s\n",
					logging.FormatCount(stats.Processed),
					target,
					logging.FormatCount(stats.Skipped),
					logging.FormatCount(stats.Failed),
					logging.FormatDuration(stats.Elapsed),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "Fingerprint workers (default from config)")
	cmd.Flags().IntVarP(&queueSize, "queue-size", "q", 0, "Bounded queue capacity (default from config)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Records per output flush (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default <timestamp>.meta)")
	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "Only record these major content types (repeatable)")
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Suppress progress output")
	return cmd
}

func pick(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

// outputSink lets the output file be opened only after the pipeline has
// accepted its root.
type outputSink struct {
	w io.Writer
}

func (s *outputSink) Write(p []byte) (int, error) { return s.w.Write(p) }
