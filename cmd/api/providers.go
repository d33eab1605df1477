package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/nyashahama/carefund-backend/internal/ai"
	"github.com/nyashahama/carefund-backend/internal/config"
	"github.com/nyashahama/carefund-backend/internal/environment"
	"github.com/nyashahama/carefund-backend/internal/refdata"
)

func loadReference(path string) (*refdata.Provider, error) {
	if path != "" {
		return refdata.LoadFile(path)
	}
	return refdata.Default()
}

// buildEnvironment wires the optional AQICN, Open-Meteo and Valkey
// collaborators. The returned func closes the Valkey client, if any.
func buildEnvironment(cfg *config.Config, ref *refdata.Provider, logger *slog.Logger) (*environment.Service, func()) {
	var opts []environment.Option
	closeFn := func() {}

	if cfg.AQICNAPIKey != "" {
		opts = append(opts, environment.WithAirQuality(environment.NewAQICNClient(cfg.AQICNAPIKey, "")))
	} else {
		logger.Info("environment: AQICN_API_KEY not set, using AQI estimates")
	}
	if cfg.WeatherEnabled {
		opts = append(opts, environment.WithWeather(environment.NewOpenMeteoClient("")))
	}

	if cfg.ValkeyAddr != "" {
		client, err := newValkeyClient(cfg.ValkeyAddr)
		if err != nil {
			logger.Error("environment: valkey unavailable, caching disabled", "error", err)
		} else {
			opts = append(opts, environment.WithCache(environment.NewValkeyCache(client, environment.DefaultCachePrefix), cfg.EnvCacheTTL))
			closeFn = client.Close
			logger.Info("environment: valkey cache enabled", "ttl", cfg.EnvCacheTTL)
		}
	}

	return environment.NewService(ref, logger, opts...), closeFn
}

func newValkeyClient(addr string) (valkey.Client, error) {
	opt, err := buildValkeyOptions(addr)
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// buildValkeyOptions accepts either a bare host:port or a redis:// URL.
func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

// buildGenerator chains every configured provider, Gemini first. It returns
// nil when no key is set, which leaves narratives on their fallbacks.
func buildGenerator(cfg *config.Config, logger *slog.Logger) ai.Generator {
	var chain []ai.Generator
	var names []string

	timeout := ai.WithTimeout(cfg.EnrichTimeout)
	if cfg.GeminiAPIKey != "" {
		chain = append(chain, ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, timeout))
		names = append(names, "gemini")
	}
	if cfg.AnthropicAPIKey != "" {
		chain = append(chain, ai.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, timeout))
		names = append(names, "anthropic")
	}
	if cfg.DeepSeekAPIKey != "" {
		chain = append(chain, ai.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, timeout))
		names = append(names, "deepseek")
	}

	if len(chain) == 0 {
		logger.Info("ai: no provider configured, narratives use fallbacks")
		return nil
	}

	gen := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		gen = ai.NewFallbackGenerator(chain[i], gen, logger)
	}
	logger.Info("ai: providers configured", "order", strings.Join(names, " -> "))
	return gen
}
