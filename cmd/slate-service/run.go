package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-news-slate/internal/entity"
	"golang-news-slate/internal/executor/strategy"
	"golang-news-slate/pkg/logger"

	"github.com/spf13/cobra"
)

var runParams strategy.Params

var runCmd = &cobra.Command{
	Use:       "run <collect|publish|metrics>",
	Short:     "Runs one pipeline stage immediately and exits",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(entity.StageCollect), string(entity.StagePublish), string(entity.StageMetrics)},
	RunE:      runStage,
}

func init() {
	runCmd.Flags().StringVar(&runParams.Phase, "phase", "", "Metrics phase: initial, day1, day3 or day10")
	runCmd.Flags().IntVar(&runParams.PostNumber, "post", 0, "Publish this post number (1-9) instead of the one due now")
	runCmd.Flags().BoolVar(&runParams.Retry, "retry", false, "Reset a failed post before publishing it (needs --post)")
}

func runStage(cmd *cobra.Command, args []string) error {
	stage := entity.Stage(args[0])
	if err := validateRunParams(stage, runParams); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	exec, err := a.executor.Run(ctx, stage, entity.TriggerCLI, runParams)
	if exec != nil && len(exec.Output) > 0 {
		var out any
		if json.Unmarshal(exec.Output, &out) == nil {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			_ = enc.Encode(out)
		}
	}
	if err != nil {
		a.logger.Error("Stage failed", logger.StringField("stage", string(stage)), logger.ErrorField(err))
		return err
	}
	return nil
}

func validateRunParams(stage entity.Stage, p strategy.Params) error {
	switch stage {
	case entity.StageMetrics:
		if p.Phase == "" {
			return fmt.Errorf("metrics needs --phase")
		}
	case entity.StagePublish:
		if p.PostNumber < 0 || p.PostNumber > entity.SlotCount {
			return fmt.Errorf("--post must be within 1..%d", entity.SlotCount)
		}
		if p.Retry && p.PostNumber == 0 {
			return fmt.Errorf("--retry needs --post")
		}
	}
	return nil
}
