package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/dikas-orlando/agent/agents/itinerary"
	orchestratorx "github.com/tanpawarit/dikas-orlando/agent/agents/orchestrator"
	"github.com/tanpawarit/dikas-orlando/agent/agents/queue"
	"github.com/tanpawarit/dikas-orlando/agent/agents/websearch"
	classifierx "github.com/tanpawarit/dikas-orlando/agent/classifier"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	"github.com/tanpawarit/dikas-orlando/agent/conversation"
	llmx "github.com/tanpawarit/dikas-orlando/agent/llm"
	promptx "github.com/tanpawarit/dikas-orlando/agent/prompt"
	registryx "github.com/tanpawarit/dikas-orlando/agent/registry"
	"github.com/tanpawarit/dikas-orlando/agent/repository"
	sessionx "github.com/tanpawarit/dikas-orlando/agent/session"
	statex "github.com/tanpawarit/dikas-orlando/agent/state"
	"github.com/tanpawarit/dikas-orlando/agent/transport/webhook"
	configx "github.com/tanpawarit/dikas-orlando/pkg/config"
	_ "github.com/tanpawarit/dikas-orlando/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/dikas-orlando/pkg/openrouter"
	"github.com/tanpawarit/dikas-orlando/pkg/zapi"
)

type AppConfig struct {
	StateStore      string        `envconfig:"STATE_STORE" default:"memory"`
	DefaultAgent    string        `envconfig:"DEFAULT_AGENT" default:"#1"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	dbCfg := configx.MustNew[repository.Config]("DATABASE")
	zapiCfg := configx.MustNew[zapi.Config]("ZAPI")
	queueCfg := configx.MustNew[queue.Config]("QUEUE_TIMES")
	convCfg := configx.MustNew[conversation.Config]("")
	webhookCfg := configx.MustNew[webhook.Config]("HTTP")

	prompts := promptx.LoadPromptSet()

	db, err := repository.Open(*dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}
	store := repository.NewStore(db)

	states := mustStateStore(appCfg.StateStore)
	messenger := zapi.MustNew(*zapiCfg)

	classifierLLM := mustChatCompleter(ctx, *llmCfg, llmx.RoleClassifier)
	itineraryLLM := mustChatCompleter(ctx, *llmCfg, llmx.RoleItinerary)
	generatorLLM := mustChatCompleter(ctx, *llmCfg, llmx.RoleGenerator)
	webLLM := mustWebCompleter(*llmCfg)

	generatorSettings := llmCfg.SettingsFor(llmx.RoleGenerator)
	generator, err := itinerary.NewLLMGenerator(generatorLLM, prompts.Generator, generatorSettings.Temperature, generatorSettings.MaxTokens)
	if err != nil {
		log.Fatal().Err(err).Msg("build itinerary generator")
	}

	itinerarySettings := llmCfg.SettingsFor(llmx.RoleItinerary)
	itineraryAgent, err := itinerary.New(states, itineraryLLM, generator, itinerary.NewPDFRenderer(), messenger, itinerary.Options{
		Template:    prompts.Itinerary,
		Temperature: itinerarySettings.Temperature,
		MaxTokens:   itinerarySettings.MaxTokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build itinerary agent")
	}

	waitTimes, err := queue.NewQueueTimesClient(queueCfg.BaseURL, queueCfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("build queue-times client")
	}
	queueAgent, err := queue.New(states, waitTimes, messenger, queueCfg.DenyList)
	if err != nil {
		log.Fatal().Err(err).Msg("build queue agent")
	}

	webSettings := llmCfg.SettingsFor(llmx.RoleWebSearch)
	webAgent, err := websearch.New(webLLM, websearch.Options{
		SystemPrompt: prompts.WebSearch,
		Temperature:  webSettings.Temperature,
		MaxTokens:    webSettings.MaxTokens,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build web search agent")
	}

	registry := registryx.New(contractx.AgentID(strings.TrimSpace(appCfg.DefaultAgent))).
		MustRegister(itineraryAgent, webAgent, queueAgent)

	classifierSettings := llmCfg.SettingsFor(llmx.RoleClassifier)
	classifier, err := classifierx.New(classifierLLM, registry, prompts.Classifier,
		classifierx.WithTemperature(classifierSettings.Temperature),
		classifierx.WithMaxTokens(classifierSettings.MaxTokens),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build classifier")
	}

	orchestrator, err := orchestratorx.New(registry, classifier, store, sessionx.NewLocker())
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	conversations, err := conversation.New(store, store, orchestrator, messenger, sessionx.NewLocker(), *convCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build conversation service")
	}

	jobs := sessionx.NewQueue(context.Background())
	handler, err := webhook.NewHandler(conversations, jobs, *webhookCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build webhook handler")
	}

	srv := &http.Server{
		Addr:              webhookCfg.Addr,
		Handler:           handler.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Int("agents", registry.Len()).Msg("webhook server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("webhook server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown webhook server")
	}
	if err := jobs.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("drain session queue")
	}
}

func mustStateStore(kind string) statex.Store {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return statex.NewMemoryStore()
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build upstash state store")
		}
		return store
	default:
		log.Fatal().Str("state_store", kind).Msg("unknown state store")
		return nil
	}
}

func mustChatCompleter(ctx context.Context, cfg llmx.Config, role llmx.Role) contractx.Completer {
	orCfg := cfg.OpenRouterFor(role)
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("role", string(role)).Msg("build chat model")
	}
	completer, err := llmx.NewChatCompleter(string(role), chatModel, cfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Str("role", string(role)).Msg("build completer")
	}
	return llmx.NewBreakerCompleter(string(role), completer, cfg.Breaker())
}

func mustWebCompleter(cfg llmx.Config) contractx.Completer {
	orCfg := cfg.OpenRouterFor(llmx.RoleWebSearch)
	client := openrouterx.NewClient(orCfg)
	if client == nil {
		log.Fatal().Msg("failed to initialize openrouter client")
	}
	completer, err := llmx.NewSDKCompleter(string(llmx.RoleWebSearch), client, orCfg.Model, cfg.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("build web search completer")
	}
	return llmx.NewBreakerCompleter(string(llmx.RoleWebSearch), completer, cfg.Breaker())
}
