package insight

import (
	"context"
	"strings"

	"google.golang.org/api/option"

	"clinica/internal/core"
	"clinica/internal/log"
)

// Config selects and authenticates a provider.
type Config struct {
	Provider string // gemini or openai
	APIKey   string
	Model    string
	BaseURL  string
}

// Service wraps a Requester so callers always get displayable text.
type Service struct {
	requester Requester
	logger    *log.Logger
}

func NewService(requester Requester, logger *log.Logger) *Service {
	if requester == nil {
		requester = Unconfigured{}
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentInsight)
	}
	return &Service{requester: requester, logger: logger}
}

// FromConfig builds the configured provider. A missing key, or a provider
// that cannot be constructed, yields an Unconfigured requester and a
// warning; it never fails the process.
func FromConfig(ctx context.Context, cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentInsight)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.WarnContext(ctx, "API_KEY not set, insights will return the placeholder")
		return NewService(Unconfigured{}, logger)
	}

	var (
		r   Requester
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		r, err = NewOpenAIRequester(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		var opts []option.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithEndpoint(cfg.BaseURL))
		}
		r, err = NewGeminiRequester(ctx, cfg.APIKey, cfg.Model, opts...)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize insight provider",
			log.FieldProvider, cfg.Provider,
			log.FieldError, err)
		return NewService(Unconfigured{}, logger)
	}
	logger.InfoContext(ctx, "Insight provider ready", log.FieldProvider, cfg.Provider)
	return NewService(r, logger)
}

// Request returns the provider's analysis of list. Provider errors are
// logged and replaced by Placeholder; only an empty collection is refused.
func (s *Service) Request(ctx context.Context, list []core.Transaction) (string, error) {
	if len(list) == 0 {
		return "", ErrNothingToAnalyze
	}
	text, err := s.requester.Analyze(ctx, list)
	if err != nil {
		s.logger.ErrorContext(ctx, "Insight request failed",
			log.NewFields().
				WithOperation(log.OpAnalyze).
				WithError(err).
				ToSlice()...)
		return Placeholder, nil
	}
	if strings.TrimSpace(text) == "" {
		return EmptyAnswer, nil
	}
	s.logger.InfoContext(ctx, "Insight generated", log.FieldCount, len(list))
	return text, nil
}
