package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"askd/internal/config"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string
	root := &cobra.Command{
		Use:           "askd",
		Short:         "Portfolio assistant: one small model, one question at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", os.Getenv("ASKD_CONFIG"), "Config file (.yaml, .yml, .json, .toml)")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("backend", "", "Model runtime: llama|openai")
	pf.String("model", "", "Model ID from the catalog")
	pf.String("catalog", "", "Model catalog file (.yaml or .json)")
	pf.String("models-dir", "", "Directory of local *.gguf models")
	pf.String("cache-dir", "", "Download cache directory")
	pf.String("openai-base-url", "", "Base URL of an OpenAI-compatible server (backend=openai)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve(cfgPath)
		if err != nil {
			return err
		}
		// Flags win over file and environment.
		fl := cmd.Flags()
		over := config.Config{}
		over.LogLevel, _ = fl.GetString("log-level")
		over.Backend, _ = fl.GetString("backend")
		over.ModelID, _ = fl.GetString("model")
		over.CatalogPath, _ = fl.GetString("catalog")
		over.ModelsDir, _ = fl.GetString("models-dir")
		over.CacheDir, _ = fl.GetString("cache-dir")
		over.OpenAIBaseURL, _ = fl.GetString("openai-base-url")
		if f := fl.Lookup("addr"); f != nil {
			over.Addr = f.Value.String()
		}
		if f := fl.Lookup("cors-origins"); f != nil {
			over.CORSOrigins = splitCSV(f.Value.String())
		}
		a.cfg = config.Merge(cfg, over)
		if err := a.cfg.Validate(); err != nil {
			return err
		}
		a.log = newLogger(a.cfg.LogLevel, os.Stderr)
		return nil
	}

	root.AddCommand(newServeCmd(a), newAskCmd(a), newVersionCmd())
	return root
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
