package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"carousel/internal/app"
	"carousel/internal/app/model"
	"carousel/internal/reddit"
	"carousel/pkg/config"

	"github.com/spf13/cobra"
)

var (
	generateTopic   string
	generateSlides  int
	generateMode    string
	generateTheme   string
	generateContext string
	generateVisuals bool
	generateReddit  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single carousel",
	Long: `Plan a carousel for a topic and wait for it to finish.
Viral carousels also render their visuals when --visuals is set.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateTopic, "topic", "t", "", "Topic for the carousel")
	generateCmd.Flags().IntVarP(&generateSlides, "slides", "n", 0, "Number of slides (default from config)")
	generateCmd.Flags().StringVarP(&generateMode, "mode", "m", string(model.ModeStandard), "Generation mode: standard or viral")
	generateCmd.Flags().StringVar(&generateTheme, "theme", "", "Theme id")
	generateCmd.Flags().StringVarP(&generateContext, "context", "c", "", "Extra context for planning")
	generateCmd.Flags().BoolVar(&generateVisuals, "visuals", false, "Render viral visuals after planning")
	generateCmd.Flags().StringVarP(&generateReddit, "subreddit", "r", "", "Use the top hot post of a subreddit as the topic")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if generateTopic == "" && generateReddit == "" {
		return errors.New("please provide --topic or --subreddit")
	}

	ctx := cmd.Context()

	topic, extraContext := generateTopic, generateContext
	if topic == "" {
		slog.Info("Picking topic from Reddit...", "subreddit", generateReddit)
		picked, err := reddit.NewClient().PickTopic(ctx, generateReddit)
		if err != nil {
			return err
		}
		topic = picked.Title
		extraContext = strings.TrimSpace(picked.Context + " " + generateContext)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if generateVisuals {
		cfg.Pipeline.AutoVisuals = true
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	pipeline := app.NewPipeline(service)

	slog.Info("Generating carousel...", "topic", topic, "mode", generateMode)
	id, err := pipeline.Submit(ctx, app.Request{
		Topic:      topic,
		SlideCount: generateSlides,
		Mode:       model.Mode(generateMode),
		Theme:      generateTheme,
		Context:    extraContext,
	})
	if err != nil {
		return err
	}

	pipeline.Wait()

	gen, err := pipeline.Get(ctx, id)
	if err != nil {
		return err
	}

	printGeneration(gen)
	if gen.Status == model.StatusFailed {
		return fmt.Errorf("generation %s failed", id)
	}
	return nil
}
