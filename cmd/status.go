package cmd

import (
	"fmt"
	"strings"

	"carousel/internal/app"
	"carousel/internal/app/model"
	"carousel/pkg/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusLimit int

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusStyle = map[model.Status]lipgloss.Style{
		model.StatusPending:    mutedStyle,
		model.StatusProcessing: infoStyle,
		model.StatusDraft:      warnStyle,
		model.StatusCompleted:  successStyle,
		model.StatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

var statusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show generations",
	Long:  `List recent generations, or show the slides of one generation by id.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "l", 20, "Number of generations to list")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	store, err := app.BuildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if len(args) == 1 {
		gen, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		printGeneration(gen)
		return nil
	}

	gens, err := store.List(ctx, statusLimit)
	if err != nil {
		return err
	}
	if len(gens) == 0 {
		fmt.Println(mutedStyle.Render("No generations yet"))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-10s  %-8s  %-6s  %s", "ID", "STATUS", "MODE", "SLIDES", "TOPIC")))
	for _, gen := range gens {
		fmt.Printf("%-36s  %s  %-8s  %-6d  %s\n",
			gen.ID,
			renderStatus(gen.Status, 10),
			gen.Mode,
			len(gen.Slides),
			gen.Topic,
		)
	}
	return nil
}

func printGeneration(gen *model.Generation) {
	fmt.Println(titleStyle.Render(gen.Topic))
	fmt.Printf("%s %s\n", mutedStyle.Render("id:     "), gen.ID)
	fmt.Printf("%s %s\n", mutedStyle.Render("status: "), renderStatus(gen.Status, 0))
	fmt.Printf("%s %s / %s\n", mutedStyle.Render("mode:   "), gen.Mode, gen.Theme)
	fmt.Printf("%s %s\n", mutedStyle.Render("updated:"), gen.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Println()

	for i, s := range gen.Slides {
		fmt.Printf("%s %s\n", headerStyle.Render(fmt.Sprintf("%2d. [%s]", i+1, s.Type)), s.Title)
		if s.Content != "" {
			fmt.Println("    " + strings.ReplaceAll(s.Content, "\n", "\n    "))
		}
		if s.BackgroundURL != nil {
			fmt.Println("    " + infoStyle.Render(*s.BackgroundURL))
		}
	}
}

func renderStatus(status model.Status, width int) string {
	style, ok := statusStyle[status]
	if !ok {
		style = mutedStyle
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(string(status))
}
