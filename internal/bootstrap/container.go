package bootstrap

import (
	"context"
	"log"
	"os"

	"voicepilot-be/internal/config"
	"voicepilot-be/internal/controller"
	"voicepilot-be/internal/handler"
	"voicepilot-be/internal/model"
	"voicepilot-be/internal/pkg/logger"
	"voicepilot-be/internal/pkg/mailer"
	"voicepilot-be/internal/repository/contract"
	"voicepilot-be/internal/repository/implementation"
	"voicepilot-be/internal/service"
	"voicepilot-be/internal/websocket"
	"voicepilot-be/pkg/blobstore"
	"voicepilot-be/pkg/database"
	"voicepilot-be/pkg/embedding"
	"voicepilot-be/pkg/embedding/jina"
	"voicepilot-be/pkg/llm/factory"
	"voicepilot-be/pkg/retrieval"
	"voicepilot-be/pkg/speech"
	"voicepilot-be/pkg/voice/orchestrator"
	"voicepilot-be/pkg/voice/recovery"
	"voicepilot-be/pkg/voice/response"
	"voicepilot-be/pkg/voice/session"
	"voicepilot-be/pkg/voice/turn"

	pktNats "voicepilot-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController   controller.ISessionController
	KnowledgeController controller.IKnowledgeController

	// WebSockets
	UIChannelHandler *handler.UIChannelHandler
	WebSocketHub     *websocket.Hub

	// Background Services (Exposed for main.go to run)
	DispatcherService service.IDispatcherService

	// Exposed for graceful shutdown
	Orchestrator *orchestrator.Orchestrator
	NatsPub      *pktNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.New(os.Stdout, "", log.LstdFlags)

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = jina.NewJinaProvider(cfg.Ai.JinaApiKey)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}
	embeddingCache := embedding.NewCache(embeddingProvider)

	llmProvider, err := factory.NewCompletionProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceApiKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var synth speech.Synthesizer
	if cfg.Ai.TTSBaseURL != "" {
		synth = speech.NewHTTPSynthesizer(cfg.Ai.TTSBaseURL, "", cfg.Ai.TTSModel)
		log.Printf("[INFO] Speech synthesis enabled (%s)", cfg.Ai.TTSModel)
	} else {
		log.Printf("[INFO] Speech synthesis disabled, responses are text-only")
	}

	// 4. Retrieval
	blobs, err := blobstore.NewFileStore(cfg.Retrieval.SnapshotDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open snapshot store at %s: %v", cfg.Retrieval.SnapshotDir, err)
	}
	store := retrieval.NewStore(blobs, embeddingCache, cfg.Ai.EmbeddingDims, stdLogger)
	if err := store.Load(context.Background()); err != nil {
		log.Printf("[WARN] Failed to load retrieval snapshots, starting empty: %v", err)
	}
	engine := retrieval.NewEngine(store, embeddingCache, stdLogger)

	// 5. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/ui_channel.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 6. Session Archive (Optional: the server runs memory-only without a DB)
	var archiveRepo contract.SessionArchiveRepository
	var archiver orchestrator.Archiver
	if cfg.Database.Connection != "" {
		gormDB, err := database.Open(database.Config{
			DSN:             cfg.Database.Connection,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			LogQueries:      cfg.Database.LogQueries,
		})
		if err != nil {
			log.Fatalf("[FATAL] Unable to connect to GORM DB: %v", err)
		}
		if err := migrate(gormDB); err != nil {
			log.Fatalf("[FATAL] Failed to migrate archive schema: %v", err)
		}
		archiveRepo = implementation.NewSessionArchiveRepository(gormDB)
		archiver = service.NewArchiveService(archiveRepo, embeddingCache, sysLogger)
	} else {
		log.Printf("[INFO] No DB_CONNECTION_STRING, session archive disabled")
	}

	// 7. Voice Pipeline
	tracker := recovery.NewTracker()
	policy := recovery.NewPolicy(tracker, stdLogger)
	turns := turn.NewManager(cfg.Session.MaxTurnDuration)
	registry := session.NewRegistry()
	replies := response.NewBuilder(llmProvider, stdLogger)

	uiNotifier := service.NewUIEventNotifier(pubSub)
	escalation := service.NewEscalationService(emailService, cfg.SMTP.EscalationTo, tracker, sysLogger)

	var eventsPub orchestrator.EventPublisher
	if natsPub != nil {
		eventsPub = service.NewSessionEventPublisher(natsPub)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Registry:  registry,
		Turns:     turns,
		Engine:    engine,
		Replies:   replies,
		Synth:     synth,
		Policy:    policy,
		Notifier:  uiNotifier,
		Archiver:  archiver,
		Events:    eventsPub,
		Escalator: escalation,
		Logger:    stdLogger,
	}, orchestrator.Config{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: float32(cfg.Retrieval.MinSimilarity),
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
	})
	orch.StartSweeper()

	// 8. Services
	sessionService := service.NewSessionService(orch, archiveRepo, sysLogger)
	knowledgeService := service.NewKnowledgeService(engine, natsPub, sysLogger)
	dispatcherService := service.NewDispatcherService(pubSub, wsHub)

	// 9. Controllers & Handlers
	return &Container{
		SessionController:   controller.NewSessionController(sessionService),
		KnowledgeController: controller.NewKnowledgeController(knowledgeService),
		UIChannelHandler:    handler.NewUIChannelHandler(sessionService, wsHub, wsLogger),
		WebSocketHub:        wsHub,
		DispatcherService:   dispatcherService,
		Orchestrator:        orch,
		NatsPub:             natsPub,
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.SessionRecord{},
		&model.TurnRecord{},
	)
}
