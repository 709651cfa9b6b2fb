// flowsim drives the lesson-flow engine against an in-process fake backend.
// Development tool: lets you watch gating, resume and autosave behavior
// without a real server or UI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lumova/learnflow/internal/config"
	"github.com/lumova/learnflow/internal/engine"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		lessonCount int
		sections    int
		maxHearts   int
		answers     string
		configPath  string
	)

	cmd := &cobra.Command{
		Use:   "flowsim",
		Short: "Simulate a learner moving through a lesson flow",
		Long: "flowsim opens a flow session against a fake backend and replays a " +
			"scripted answer sequence ('c' correct, 'w' wrong), printing the " +
			"engine's view after each event.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			// Short debounce so the simulation's saves land before exit.
			cfg.SaveDebounce = 100 * time.Millisecond
			return run(cmd.Context(), cfg, lessonCount, sections, maxHearts, answers)
		},
	}

	cmd.Flags().IntVar(&lessonCount, "lessons", 2, "number of lessons in the fake course")
	cmd.Flags().IntVar(&sections, "sections", 2, "published sections per lesson (0 = legacy lessons)")
	cmd.Flags().IntVar(&maxHearts, "hearts", 3, "max hearts on the fake backend")
	cmd.Flags().StringVar(&answers, "answers", "", "scripted exercise outcomes, e.g. cwcc")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML engine config")
	return cmd
}

func run(ctx context.Context, cfg config.Config, lessonCount, sections, maxHearts int, answers string) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	backend := newFakeBackend(lessonCount, sections, maxHearts)
	deps := engine.Deps{Content: backend, Progress: backend, Hearts: backend, Log: log}

	session, err := engine.Open(ctx, "demo-course", deps, cfg)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	printView(session)

	next := 0
	for !session.Complete() {
		step := session.CurrentStep()
		if step == nil {
			break
		}

		if !step.HasExercise() {
			if err := session.Acknowledge(ctx); err != nil {
				fmt.Printf("  ! %v\n", err)
				break
			}
		} else {
			correct := true
			if next < len(answers) {
				correct = answers[next] == 'c'
				next++
			}
			if err := session.SubmitExercise(ctx, correct); err != nil {
				fmt.Printf("  ! %v\n", err)
				if session.Blocked() {
					fmt.Println("  refilling to continue the simulation")
					if err := session.RefillHearts(ctx); err != nil {
						return err
					}
					continue
				}
				break
			}
			if !correct && session.Blocked() {
				fmt.Println("  blocked: out of hearts")
			}
		}
		printView(session)
	}

	// Let the debounced save land so the fake backend shows the final index.
	time.Sleep(cfg.SaveDebounce + 50*time.Millisecond)
	fmt.Printf("backend saved positions: %v\n", backend.positions)
	return nil
}

func printView(s *engine.Session) {
	v := s.View()
	title := "(complete)"
	if v.Step != nil {
		title = fmt.Sprintf("%s [%s]", v.Step.Title, v.Step.Kind)
	}
	fmt.Printf("step %d/%d (%d%%) %s hearts=%d/%d blocked=%v countdown=%q\n",
		v.StepIndex, v.StepCount, v.ProgressPercent, title,
		v.Hearts, v.MaxHearts, v.Blocked, v.Countdown)
}
