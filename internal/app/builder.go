package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"carousel/internal/design"
	"carousel/internal/kie"
	"carousel/internal/llm"
	"carousel/internal/llm/gemini"
	"carousel/internal/llm/groq"
	"carousel/internal/llm/openai"
	"carousel/internal/planner"
	"carousel/internal/records"
	"carousel/internal/storage"
	"carousel/pkg/config"
	"carousel/pkg/httputil"
	"carousel/pkg/prompts"
)

const assetDownloadTimeout = 60 * time.Second

func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := prompts.LoadFrom(cfg.Pipeline.PromptsPath)
	if err != nil {
		return nil, err
	}

	llmClient, err := BuildCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	kieClient := kie.NewClient(cfg.KieAPIKey, kie.Options{
		BaseURL:      cfg.Kie.BaseURL,
		Timeout:      cfg.Kie.Timeout,
		PollInterval: cfg.Kie.PollInterval,
		MaxAttempts:  cfg.Kie.PollAttempts,
	})

	store, err := BuildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service := NewService(ServiceOptions{
		Config:   cfg,
		Store:    store,
		Planner:  planner.New(llmClient, p),
		Designer: design.NewAnalyzer(llmClient, p),
		Images:   kieClient,
		HeroPrompt: func(topic, top, bottom string) (string, error) {
			return p.RenderHeroImage(prompts.HeroImageParams{Topic: topic, TopHeadline: top, BottomHeadline: bottom})
		},
	})
	service.closers = append(service.closers, store.Close)

	assets, closeAssets, err := buildAssetStore(ctx, cfg)
	if err != nil {
		_ = service.Close()
		return nil, err
	}
	if assets != nil {
		downloader := httputil.NewRetryClient(&http.Client{Timeout: assetDownloadTimeout}, httputil.DefaultRetryConfig())
		service.mirror = storage.NewMirror(assets, downloader)
	}
	if closeAssets != nil {
		service.closers = append(service.closers, closeAssets)
	}

	return service, nil
}

// BuildCompleter returns the text and vision client selected by llm.provider.
func BuildCompleter(ctx context.Context, cfg *config.Config) (llm.Completer, error) {
	switch cfg.LLM.Provider {
	case config.LLMGroq, "":
		return groq.NewClient(cfg.GroqAPIKey, groq.Options{
			Model:       cfg.Groq.Model,
			VisionModel: cfg.Groq.VisionModel,
			BaseURL:     cfg.Groq.BaseURL,
		})
	case config.LLMOpenAI:
		return openai.NewClient(cfg.OpenAIAPIKey, openai.Options{
			Model:       cfg.OpenAI.Model,
			VisionModel: cfg.OpenAI.VisionModel,
			BaseURL:     cfg.OpenAI.BaseURL,
			Timeout:     cfg.OpenAI.Timeout,
		}), nil
	case config.LLMGemini:
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("llm provider gemini requires GOOGLE_CLOUD_PROJECT")
		}
		return gemini.NewClient(ctx, gemini.Options{
			Project:    cfg.GCPProject,
			Location:   cfg.Gemini.Location,
			Model:      cfg.Gemini.Model,
			DailyLimit: cfg.Gemini.DailyLimit,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func BuildStore(ctx context.Context, cfg *config.Config) (records.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		return records.NewMemory(), nil
	case config.StoreSQLite, "":
		return records.NewSQLite(ctx, cfg.Store.SQLitePath)
	case config.StoreMongo:
		if cfg.MongoURL == "" {
			return nil, fmt.Errorf("store backend mongo requires MONGO_URL")
		}
		return records.NewMongo(ctx, cfg.MongoURL, cfg.Store.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildAssetStore(ctx context.Context, cfg *config.Config) (storage.AssetStore, func() error, error) {
	switch cfg.Assets.Backend {
	case config.AssetsNone, "":
		return nil, nil, nil
	case config.AssetsLocal:
		local := storage.NewLocalStorage(cfg.Assets.Dir, cfg.Assets.BaseURL)
		if err := local.EnsureDirectories(); err != nil {
			return nil, nil, err
		}
		return local, nil, nil
	case config.AssetsGCS:
		if cfg.GCSBucket == "" {
			return nil, nil, fmt.Errorf("assets backend gcs requires GCS_BUCKET")
		}
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.Assets.GCSPrefix, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return gcs, gcs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown assets backend %q", cfg.Assets.Backend)
	}
}
