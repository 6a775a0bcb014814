package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reelkit/reelkit/internal/ailink/driver/openai"
	"github.com/reelkit/reelkit/internal/catalog"
	"github.com/reelkit/reelkit/internal/content"
	"github.com/reelkit/reelkit/internal/generator"
	"github.com/reelkit/reelkit/internal/observability"
	"github.com/reelkit/reelkit/internal/output"
	"github.com/reelkit/reelkit/internal/prompt"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate video scripts for a catalog product",
	Long: `Generate short-video scripts, captions, and hashtags for a product from the
catalog and save them as a content batch.

Calls to the model go through the openai rate limit and the retry policy.`,
	Example: `  reelkit generate --product "Standing Desk" --count 5 --platform instagram`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("product", "p", "", "Product name from the catalog (required)")
	generateCmd.Flags().String("products", "", "Product catalog file (default content.products_file)")
	generateCmd.Flags().IntP("count", "n", generator.DefaultCount, "Number of videos to generate")
	generateCmd.Flags().String("platform", string(content.PlatformTikTok), "Target platform: tiktok|instagram|youtube")
	generateCmd.Flags().String("model", "", "Model override (default openai.model)")
	generateCmd.Flags().String("prompt-file", "", "Prompt markdown file override")
	generateCmd.Flags().Bool("no-save", false, "Print the batch without saving it")
	addOutputFlags(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig
	logger := observability.CLILogger

	productName, _ := cmd.Flags().GetString("product")
	productsFile, _ := cmd.Flags().GetString("products")
	count, _ := cmd.Flags().GetInt("count")
	platformName, _ := cmd.Flags().GetString("platform")
	modelOverride, _ := cmd.Flags().GetString("model")
	promptFile, _ := cmd.Flags().GetString("prompt-file")
	noSave, _ := cmd.Flags().GetBool("no-save")

	if strings.TrimSpace(productName) == "" {
		return errors.New("--product is required")
	}
	platform, ok := content.ParsePlatform(platformName)
	if !ok {
		return fmt.Errorf("invalid platform: %s", platformName)
	}
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return errors.New("openai.api_key is not configured (set REELKIT_OPENAI_API_KEY or OPENAI_API_KEY)")
	}

	if productsFile == "" {
		productsFile = cfg.Content.ProductsFile
	}
	products, err := catalog.Load(productsFile)
	if err != nil {
		return err
	}
	product, ok := products.Find(productName)
	if !ok {
		return fmt.Errorf("product %q not found in %s (known: %s)", productName, productsFile, strings.Join(products.Names(), ", "))
	}

	p, err := loadPrompt(promptFile, cfg.OpenAI.PromptFile)
	if err != nil {
		return err
	}

	model := strings.TrimSpace(modelOverride)
	if model == "" {
		model = cfg.OpenAI.Model
	}

	client := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey)
	client.Timeout = cfg.OpenAI.Timeout
	client.Tracer = tracer

	limiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	st := openStoreOptional(ctx, cfg, logger)
	if st != nil {
		defer st.Close() // nolint:errcheck // best-effort cleanup
		if err := restoreLimiter(ctx, st, limiter); err != nil {
			logger.Warn("Failed to restore rate limit history", zap.Error(err))
		}
	}

	gen := &generator.Generator{
		Driver:  client,
		Prompt:  p,
		Model:   model,
		Retrier: newRetrier(limiter, logger),
		Policy:  cfg.Retry.Policy(),
	}

	logger.Info("Generating content",
		zap.String("product", product.Name),
		zap.Int("count", count),
		zap.String("platform", string(platform)),
		zap.String("model", model))

	batch, genErr := gen.Generate(ctx, generator.Request{Product: product, Count: count, Platform: platform})
	if err := persistLimiter(ctx, st, limiter); err != nil {
		logger.Warn("Failed to persist rate limit history", zap.Error(err))
	}
	if genErr != nil {
		var respErr *generator.ResponseError
		if errors.As(genErr, &respErr) && respErr.Raw != "" {
			logger.Debug("Model response", zap.String("raw", respErr.Raw))
		}
		return genErr
	}

	if !noSave {
		path, err := content.NewStore(cfg.Content.Dir).Save(batch)
		if err != nil {
			return err
		}
		logger.Info("Saved content batch", zap.String("path", path), zap.Int("items", len(batch.Items)))
	}

	return emit(cmd, func(format output.Format) (string, error) {
		return output.FormatItems(format, batch.Items)
	})
}

// loadPrompt prefers the flag, then the configured file, then the embedded default.
func loadPrompt(flagPath, configPath string) (*prompt.Prompt, error) {
	for _, path := range []string{flagPath, configPath} {
		if strings.TrimSpace(path) != "" {
			return prompt.LoadFile(path)
		}
	}
	return prompt.Default(prompt.DefaultSlug)
}
