package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/odedia/translation-layer/internal/config"
	"github.com/odedia/translation-layer/internal/engine"
	"github.com/odedia/translation-layer/pkg/llms"
	"github.com/odedia/translation-layer/pkg/subs"
)

var (
	translateLang      string
	translateOutput    string
	translateBatchSize int
	translateProvider  string
	translateDump      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <subtitle-file>",
	Short: "Translate a local SRT or VTT file without going through the HTTP service",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranslate,
}

func init() {
	translateCmd.Flags().StringVarP(&translateLang, "lang", "l", "", "target language (required)")
	translateCmd.Flags().StringVarP(&translateOutput, "output", "o", "", "output file path (default: the input path with .<lang> inserted before its .srt/.vtt extension)")
	translateCmd.Flags().IntVarP(&translateBatchSize, "batch-size", "b", 0, "override the auto-tuned batch size")
	translateCmd.Flags().StringVarP(&translateProvider, "provider", "p", "", "LLM provider to use (default: the configured default provider)")
	translateCmd.Flags().BoolVar(&translateDump, "dump", false, "pretty-print the parsed document before translating (implies --verbose)")
	translateCmd.MarkFlagRequired("lang")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if translateDump {
		verbose = true
	}
	log := newLogger()
	inputPath := args[0]

	if err := config.InitConfig(cfgFile); err != nil {
		return fmt.Errorf("cannot load configuration: %w", err)
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("cannot read settings: %w", err)
	}

	client := llms.Initialize(log)
	var provider llms.Provider
	if translateProvider != "" {
		p, ok := client.GetProvider(translateProvider)
		if !ok {
			return fmt.Errorf("provider %q is not registered (check settings)", translateProvider)
		}
		provider = p
	} else {
		provider, err = client.GetDefaultProvider()
		if err != nil {
			return fmt.Errorf("no usable LLM provider is configured: %w", err)
		}
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", inputPath, err)
	}
	doc, err := subs.Parse(data)
	if err != nil {
		return fmt.Errorf("cannot parse %s: %w", inputPath, err)
	}

	if translateDump {
		pp.Println(doc)
	}

	batchSize := translateBatchSize
	if batchSize == 0 {
		batchSize = settings.TranslationBatchSize
	}
	eng := engine.New(provider, log, batchSize)
	eng.SkipHearingImpaired = settings.SkipHearingImpaired

	cues, err := eng.Translate(context.Background(), doc, translateLang, func(completed, total int) {
		log.Info().Int("completed", completed).Int("total", total).Msg("translation progress")
	})
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	doc.Cues = cues

	outputPath := translateOutput
	if outputPath == "" {
		outputPath = outputPathFor(inputPath, translateLang)
	}
	if err := os.WriteFile(outputPath, []byte(doc.Generate()), 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", outputPath, err)
	}

	log.Info().Str("output", outputPath).Msg("translation complete")
	return nil
}

func outputPathFor(inputPath, lang string) string {
	ext := ".srt"
	base := inputPath
	for _, candidate := range []string{".srt", ".vtt"} {
		if len(inputPath) > len(candidate) && inputPath[len(inputPath)-len(candidate):] == candidate {
			base = inputPath[:len(inputPath)-len(candidate)]
			ext = candidate
			break
		}
	}
	return base + "." + lang + ext
}
