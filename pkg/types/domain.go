package types

// Model is a catalog entry describing where a model's assets come from.
type Model struct {
	// Stable identifier for the model.
	// example: qwen2.5-0.5b-instruct-q4_k_m
	ID string `json:"id" yaml:"id" example:"qwen2.5-0.5b-instruct-q4_k_m"`
	// Human-friendly name.
	// example: Qwen2.5 0.5B Instruct (Q4_K_M)
	Name string `json:"name" yaml:"name" example:"Qwen2.5 0.5B Instruct (Q4_K_M)"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" yaml:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., llama, qwen, phi).
	// example: qwen
	Family string `json:"family,omitempty" yaml:"family,omitempty" example:"qwen"`
	// Context window of the model in tokens.
	// example: 4096
	ContextWindow int `json:"context_window,omitempty" yaml:"context_window,omitempty" example:"4096"`
	// Dir, when set, holds the files locally and nothing is downloaded.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Files that make up the model. The first file is the one handed to the runtime.
	Files []ModelFile `json:"files" yaml:"files"`
}

// ModelFile is one downloadable asset (weights shard, tokenizer, ...).
type ModelFile struct {
	// File name inside the model's cache directory.
	// example: qwen2.5-0.5b-instruct-q4_k_m.gguf
	Name string `json:"name" yaml:"name" example:"qwen2.5-0.5b-instruct-q4_k_m.gguf"`
	// Source URL.
	URL string `json:"url" yaml:"url"`
	// Expected size in bytes; 0 when unknown.
	// example: 491400032
	Size int64 `json:"size,omitempty" yaml:"size,omitempty" example:"491400032"`
}
