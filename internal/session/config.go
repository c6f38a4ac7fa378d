package session

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultTokenCeiling   = 400
	DefaultWordsPerToken  = 0.75
	DefaultMaxNewTokens   = 150
	DefaultTemperature    = 0.7
	DefaultMinResponseLen = 10

	DefaultInstructionSuffix = "\n\nProvide a concise, professional answer based only on the information above."
	DefaultFallbackText      = "I'm sorry, I couldn't generate a proper response. Please try asking in a different way."
)

// Config encapsulates all tunables for Session construction.
type Config struct {
	ModelID  string
	Acquirer Acquirer
	// SystemContext is the fixed document every answer is grounded on.
	SystemContext string

	TokenCeiling      int
	WordsPerToken     float64
	InstructionSuffix string
	MaxNewTokens      int
	Temperature       float32
	// MinResponseLen is measured in runes after trimming.
	MinResponseLen int
	FallbackText   string

	Logger    *zerolog.Logger
	Publisher EventPublisher
}

// New constructs a Session from Config.
func New(cfg Config) *Session {
	if cfg.TokenCeiling <= 0 {
		cfg.TokenCeiling = DefaultTokenCeiling
	}
	if cfg.WordsPerToken <= 0 {
		cfg.WordsPerToken = DefaultWordsPerToken
	}
	if cfg.InstructionSuffix == "" {
		cfg.InstructionSuffix = DefaultInstructionSuffix
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MinResponseLen <= 0 {
		cfg.MinResponseLen = DefaultMinResponseLen
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	var pub EventPublisher = noopPublisher{}
	if cfg.Publisher != nil {
		pub = cfg.Publisher
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		state:    StateUnloaded,
		modelID:  cfg.ModelID,
		acquirer: cfg.Acquirer,
		prompt: &PromptBuilder{
			systemContext: cfg.SystemContext,
			tokenCeiling:  cfg.TokenCeiling,
			wordsPerToken: cfg.WordsPerToken,
			suffix:        cfg.InstructionSuffix,
			maxTokens:     cfg.MaxNewTokens,
			temperature:   cfg.Temperature,
		},
		minResponseLen: cfg.MinResponseLen,
		fallbackText:   cfg.FallbackText,
		genCh:          make(chan struct{}, 1),
		group:          &singleflight.Group{},
		log:            log.With().Str("session", id).Str("model", cfg.ModelID).Logger(),
		publisher:      pub,
	}
}
