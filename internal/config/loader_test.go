package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nbackend: openai\nmodel: m1\ntoken_ceiling: 200\nwords_per_token: 0.5\ncors_origins: [https://thong.dev]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Backend != "openai" || cfg.ModelID != "m1" || cfg.TokenCeiling != 200 || cfg.WordsPerToken != 0.5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://thong.dev" {
		t.Fatalf("unexpected cors: %v", cfg.CORSOrigins)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","cache_dir":"/c","max_new_tokens":99,"temperature":0.2,"min_response_len":5}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.CacheDir != "/c" || cfg.MaxNewTokens != 99 || cfg.Temperature != 0.2 || cfg.MinResponseLen != 5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\nfetch_concurrency=2\nchat_timeout_seconds=30\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.FetchConcurrency != 2 || cfg.ChatTimeoutSeconds != 30 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	if _, err := Load(writeTempFile(t, d, "cfg.txt", "not supported")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.json", "{")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.toml", "addr = ")); err == nil {
		t.Fatalf("expected toml parse error")
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.Addr != ":8080" || d.Backend != BackendLlama || d.TokenCeiling != 400 || d.WordsPerToken != 0.75 ||
		d.MaxNewTokens != 150 || d.Temperature != 0.7 || d.MinResponseLen != 10 || d.FetchConcurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", d)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestMergeKeepsBaseForZeroFields(t *testing.T) {
	got := Merge(Defaults(), Config{Addr: ":1", Temperature: 0.1})
	if got.Addr != ":1" || got.Temperature != 0.1 {
		t.Fatalf("override not applied: %+v", got)
	}
	if got.TokenCeiling != 400 || got.Backend != BackendLlama {
		t.Fatalf("zero fields should keep base: %+v", got)
	}
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("ASKD_ADDR", ":6060")
	t.Setenv("ASKD_TOKEN_CEILING", "128")
	t.Setenv("ASKD_CORS_ORIGINS", "https://a.dev,https://b.dev")
	cfg := Defaults()
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("env: %v", err)
	}
	if cfg.Addr != ":6060" || cfg.TokenCeiling != 128 || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.MaxNewTokens != 150 {
		t.Fatalf("unset variables must not reset fields: %+v", cfg)
	}
}

func TestFromEnvBadValue(t *testing.T) {
	t.Setenv("ASKD_THREADS", "many")
	cfg := Defaults()
	if err := FromEnv(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestResolvePrecedence(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9000\nmodel: from-file\n")
	t.Setenv("ASKD_MODEL", "from-env")
	cfg, err := Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.ModelID != "from-env" || cfg.MaxNewTokens != 150 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	c := Defaults()
	c.Backend = "onnx"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected backend error")
	}
	c = Defaults()
	c.ModelID = " "
	if err := c.Validate(); err == nil {
		t.Fatalf("expected model error")
	}
	c = Defaults()
	c.TokenCeiling = -1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected negative limit error")
	}
}
