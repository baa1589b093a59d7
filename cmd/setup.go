package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"carousel/internal/theme"
	"carousel/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Carousel",
	Long:  `Configure API keys, the record store and the asset mirror, then write .env and config.yaml.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// setupAnswers collects everything the wizard writes to config.yaml.
type setupAnswers struct {
	storeBackend  string
	assetsBackend string
	theme         string
	autoVisuals   bool
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎠 Carousel Setup"))

	answers := &setupAnswers{}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Configuring environment", func() error { return configureEnv(answers) }},
		{"Writing config", func() error { return configureYAML(answers) }},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps()
	return nil
}

func configureEnv(answers *setupAnswers) error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureRequiredKeys(env); err != nil {
		return err
	}

	if err := configureStore(env, answers); err != nil {
		return err
	}

	if err := configureGCP(env, answers); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureRequiredKeys(env map[string]string) error {
	var groqKey, kieKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GROQ API Key").
				Description("https://console.groq.com/keys").
				Value(&groqKey).
				Validate(required("GROQ API Key")),
			huh.NewInput().
				Title("kie.ai API Key").
				Description("https://kie.ai/api-key").
				EchoMode(huh.EchoModePassword).
				Value(&kieKey).
				Validate(required("kie.ai API Key")),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["GROQ_API_KEY"] = strings.TrimSpace(groqKey)
	env["KIE_API_KEY"] = strings.TrimSpace(kieKey)
	return nil
}

func configureStore(env map[string]string, answers *setupAnswers) error {
	if err := huh.NewSelect[string]().
		Title("Record store").
		Options(
			huh.NewOption("SQLite file (local)", config.StoreSQLite),
			huh.NewOption("MongoDB", config.StoreMongo),
			huh.NewOption("In memory (lost on restart)", config.StoreMemory),
		).
		Value(&answers.storeBackend).
		Run(); err != nil {
		return err
	}

	if answers.storeBackend != config.StoreMongo {
		return nil
	}

	var mongoURL string
	if err := huh.NewInput().
		Title("MongoDB URL").
		Placeholder("mongodb://localhost:27017").
		Value(&mongoURL).
		Validate(required("MongoDB URL")).
		Run(); err != nil {
		return err
	}

	env["MONGO_URL"] = strings.TrimSpace(mongoURL)
	return nil
}

func configureGCP(env map[string]string, answers *setupAnswers) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Used for Secret Manager keys and mirroring images to Cloud Storage").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return configureLocalAssets(answers)
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return configureLocalAssets(answers)
	}

	project, err := getGCPProject()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return configureLocalAssets(answers)
	}

	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	var bucket string
	if err := huh.NewInput().
		Title("Cloud Storage bucket").
		Description("Generated images are copied here. Leave empty to skip.").
		Placeholder(project + "-carousel").
		Value(&bucket).
		Run(); err != nil {
		return err
	}

	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return configureLocalAssets(answers)
	}

	if err := ensureBucket(project, bucket); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Bucket setup failed: %v", err)))
	}

	env["GCS_BUCKET"] = bucket
	answers.assetsBackend = config.AssetsGCS
	return nil
}

func configureLocalAssets(answers *setupAnswers) error {
	var local bool
	if err := huh.NewConfirm().
		Title("Mirror images to ./assets?").
		Description("Provider image URLs expire; local copies are served by the API").
		Value(&local).
		Run(); err != nil {
		return err
	}

	if local {
		answers.assetsBackend = config.AssetsLocal
	}
	return nil
}

func getGCPProject() (string, error) {
	project := getActiveProject()

	if err := huh.NewInput().
		Title("Google Cloud Project").
		Value(&project).
		Validate(required("Project ID")).
		Run(); err != nil {
		return "", err
	}

	return strings.TrimSpace(project), nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"secretmanager.googleapis.com",
		"storage.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func ensureBucket(project, bucket string) error {
	if runSetupCmd("gcloud", "storage", "buckets", "describe", "gs://"+bucket, "--project", project) == nil {
		fmt.Println(infoStyle.Render("Using existing bucket gs://" + bucket))
		return nil
	}

	return runWithSpinner("Creating bucket gs://"+bucket, func() error {
		return runSetupCmd("gcloud", "storage", "buckets", "create", "gs://"+bucket, "--project", project)
	})
}

func configureYAML(answers *setupAnswers) error {
	if _, err := os.Stat("config.yaml"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing config.yaml").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing config.yaml"))
			return nil
		}
	}

	themeOptions := make([]huh.Option[string], 0, len(theme.IDs()))
	for _, id := range theme.IDs() {
		t, _ := theme.Lookup(id)
		themeOptions = append(themeOptions, huh.NewOption(t.Name, id))
	}
	answers.theme = theme.Default

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default theme").
				Options(themeOptions...).
				Value(&answers.theme),
			huh.NewConfirm().
				Title("Render viral visuals automatically?").
				Description("Otherwise the editor triggers them after reviewing the draft").
				Value(&answers.autoVisuals),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	return writeConfigFile(answers)
}

func writeConfigFile(answers *setupAnswers) error {
	cfg := config.Default()
	if answers.storeBackend != "" {
		cfg.Store.Backend = answers.storeBackend
	}
	if answers.assetsBackend != "" {
		cfg.Assets.Backend = answers.assetsBackend
	}
	cfg.Pipeline.DefaultTheme = answers.theme
	cfg.Pipeline.AutoVisuals = answers.autoVisuals

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile("config.yaml", data, 0o644); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Created config.yaml"))
	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GROQ_API_KEY",
		"KIE_API_KEY",
		"MONGO_URL",
		"GOOGLE_CLOUD_PROJECT",
		"GCS_BUCKET",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Run: carousel generate -t \"your topic\"")
	fmt.Println("  2. Or start the API: carousel serve")
	fmt.Println("  3. Check progress: carousel status")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
