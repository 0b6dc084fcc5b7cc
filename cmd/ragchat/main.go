package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/jfrchan18/rag-chatbot/internal/ai"
	"github.com/jfrchan18/rag-chatbot/internal/config"
	"github.com/jfrchan18/rag-chatbot/internal/db"
	"github.com/jfrchan18/rag-chatbot/internal/extract"
	"github.com/jfrchan18/rag-chatbot/internal/filestore"
	"github.com/jfrchan18/rag-chatbot/internal/handler"
	"github.com/jfrchan18/rag-chatbot/internal/job"
	"github.com/jfrchan18/rag-chatbot/internal/middleware"
	"github.com/jfrchan18/rag-chatbot/internal/repo"
	"github.com/jfrchan18/rag-chatbot/internal/schedule"
	"github.com/jfrchan18/rag-chatbot/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "ragchat",
		Short:        "retrieval augmented chat backend",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (optional)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the http api",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return runServer(a)
		},
	}

	ingestCmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "ingest .pdf, .md and .txt files or folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return runIngest(cmd.Context(), a, args)
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "delete all documents, chunks and chat history",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.close()
			_, err = a.documents.Reset(cmd.Context())
			return err
		},
	}

	rootCmd.AddCommand(runCmd, ingestCmd, resetCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

type app struct {
	cfg       *config.Config
	db        *sql.DB
	store     *repo.Store
	files     filestore.Store
	retrieval *service.RetrievalService
	answers   *service.AnswerService
	documents *service.DocumentService
	chats     *service.ChatService
	ingest    *service.IngestService
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	log := logutil.GetLogger(ctx)
	log.Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	dim := cfg.AI.EmbeddingDimension
	if err := db.ApplySchema(ctx, conn, dim); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := db.EnsureDimension(ctx, conn, dim); err != nil {
		_ = conn.Close()
		return nil, err
	}

	chatProvider, err := ai.NewChatProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.Data)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init embed provider: %w", err)
	}
	timeout := time.Duration(cfg.AI.Timeout) * time.Second
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbeddingModel, dim, timeout)
	generator := ai.NewGenerator(chatProvider, cfg.AI.ChatModel, cfg.AI.ChatTemperature(), timeout)
	chunker, err := ai.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.Overlap())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init file store: %w", err)
	}

	store := repo.NewStore(conn, dim)
	retrieval := service.NewRetrievalService(store, embedder, cfg.RAG)
	log.Info("services ready",
		zap.String("chat_provider", chatProvider.Name()),
		zap.String("chat_model", cfg.AI.ChatModel),
		zap.String("embed_provider", embedProvider.Name()),
		zap.String("embedding_model", cfg.AI.EmbeddingModel),
		zap.Int("dimension", dim),
		zap.String("file_store", files.Type()),
		zap.Bool("atomic_ingest", cfg.RAG.Atomic()),
	)
	return &app{
		cfg:       cfg,
		db:        conn,
		store:     store,
		files:     files,
		retrieval: retrieval,
		answers:   service.NewAnswerService(retrieval, embedder, generator),
		documents: service.NewDocumentService(store, embedder),
		chats:     service.NewChatService(store),
		ingest:    service.NewIngestService(store, embedder, chunker, cfg.RAG, service.WithFileStore(files)),
	}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

func runServer(a *app) error {
	cfg := a.cfg
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(a.documents),
		Search:    handler.NewSearchHandler(a.retrieval, a.answers),
		Chat:      handler.NewChatHandler(a.chats),
		Upload:    handler.NewUploadHandler(a.ingest, cfg.MaxUploadMB*1024*1024),
	}
	engine, err := webapi.NewEngine(
		"/",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.Recovery(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Inbox.Dir != "" {
		sched := schedule.NewCronScheduler()
		inbox := job.NewInboxIngestJob(cfg.Inbox.Dir, a.ingest)
		if err := sched.AddJob(inbox, cfg.Inbox.Spec); err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
		go func() {
			_, _ = sched.RunNow(inbox.Name())
		}()
	}

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIngest(ctx context.Context, a *app, paths []string) error {
	files, err := extract.Collect(paths)
	if err != nil {
		return err
	}
	log := logutil.GetLogger(ctx)
	if len(files) == 0 {
		log.Info("no documents found for ingestion")
		return nil
	}
	var failed, chunks int
	for _, f := range files {
		res, err := a.ingest.IngestFile(ctx, f)
		if err != nil {
			failed++
			log.Error("ingest file failed", zap.String("file", f), zap.Error(err))
			continue
		}
		chunks += res.ChunksCreated
		log.Info("file ingested", zap.String("file", f), zap.Int64("doc_id", res.DocID), zap.Int("chunks", res.ChunksCreated))
	}
	log.Info("ingestion finished", zap.Int("files", len(files)-failed), zap.Int("chunks", chunks), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
