package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kmit-fdms/fdms/config"
	"github.com/kmit-fdms/fdms/internal/api/handlers"
	"github.com/kmit-fdms/fdms/internal/api/middleware"
	"github.com/kmit-fdms/fdms/internal/api/routes"
	"github.com/kmit-fdms/fdms/internal/cache"
	"github.com/kmit-fdms/fdms/internal/events"
	"github.com/kmit-fdms/fdms/internal/providers/llm"
	mongorepo "github.com/kmit-fdms/fdms/internal/repositories/mongo"
	pgrepo "github.com/kmit-fdms/fdms/internal/repositories/postgres"
	"github.com/kmit-fdms/fdms/internal/services"
	"github.com/kmit-fdms/fdms/internal/storage"
	"github.com/kmit-fdms/fdms/internal/utils"
)

// Server owns the HTTP server and every external handle it was built with.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *logrus.Logger
	closers         []closer
}

type closer struct {
	name string
	fn   func() error
}

// bootTimeout bounds the connection checks made while starting.
const bootTimeout = 30 * time.Second

// Google SDK client constructors keep their context for token refresh.
var (
	newGCSUploader  = storage.NewGCSUploader
	newVertexGemini = llm.NewVertexGemini
)

// New connects to MongoDB (required) and to the optional backends, then wires
// repositories, services and routes. Optional backends that fail are logged
// and left out. ctx must live as long as the server: long-lived clients are
// built on it, while pings use a bounded child context.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Server, error) {
	s := &Server{shutdownTimeout: cfg.Server.ShutdownTimeout, log: log}
	ok := false
	defer func() {
		if !ok {
			s.closeAll()
		}
	}()

	boot, cancelBoot := context.WithTimeout(ctx, bootTimeout)
	defer cancelBoot()

	// MongoDB
	mc, err := config.NewMongo(boot, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	s.onClose("mongodb", func() error {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return mc.Disconnect(cctx)
	})
	db := mc.Database(cfg.Mongo.Database)
	// the unique email indexes carry the duplicate signup and profile rules
	if err := config.EnsureMongoIndexes(boot, db); err != nil {
		return nil, fmt.Errorf("mongodb indexes: %w", err)
	}
	log.WithField("database", cfg.Mongo.Database).Info("mongodb connected")

	// PostgreSQL
	var gdb *gorm.DB
	if cfg.Postgres.URI != "" {
		gdb, err = config.NewPostgres(cfg.Postgres.URI)
		if err != nil {
			log.WithError(err).Warn("postgres unavailable; document ledger and chat logs disabled")
			gdb = nil
		} else {
			s.onClose("postgres", func() error { return config.ClosePostgres(gdb) })
			log.Info("postgres connected")
		}
	} else {
		log.Info("postgres not configured; document ledger and chat logs disabled")
	}

	// Redis
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = config.NewRedis(boot, cfg.Redis.Addr)
		if err != nil {
			log.WithError(err).Warn("redis unavailable; chat history disabled")
			rdb = nil
		} else {
			s.onClose("redis", rdb.Close)
			log.Info("redis connected")
		}
	} else {
		log.Info("redis not configured; chat history disabled")
	}

	uploader, staticDir, err := s.newUploader(ctx, boot, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	// RabbitMQ
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URI != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			log.WithError(err).Warn("rabbitmq unavailable; profile events will not be published")
		} else {
			publisher = rp
			s.onClose("rabbitmq", rp.Close)
		}
	} else {
		log.Info("rabbitmq not configured; profile events will not be published")
	}

	// Vertex AI
	var model llm.Provider
	if cfg.LLM.ProjectID != "" {
		vg, err := newVertexGemini(ctx, cfg.LLM.ProjectID, cfg.LLM.Location, cfg.LLM.Model)
		if err != nil {
			log.WithError(err).Warn("language model unavailable; chat falls back to canned replies")
		} else {
			model = vg
			s.onClose("vertexai", vg.Close)
		}
	} else {
		log.Info("language model not configured; chat falls back to canned replies")
	}

	// Repositories
	profileRepo := mongorepo.NewProfileRepo(db)
	accountRepo := mongorepo.NewAccountRepo(db)
	contactRepo := mongorepo.NewContactRepo(db)
	var (
		documentRepo pgrepo.DocumentRepository
		chatLogRepo  pgrepo.ChatLogRepository
	)
	if gdb != nil {
		documentRepo = pgrepo.NewDocumentRepo(gdb)
		chatLogRepo = pgrepo.NewChatLogRepo(gdb)
	}
	var history cache.Cache
	if rdb != nil {
		history = cache.NewRedisCache(rdb, "fdms:")
	}

	// Services
	profileSvc := services.NewProfileService(services.ProfileDeps{
		Profiles:       profileRepo,
		Documents:      documentRepo,
		Uploader:       uploader,
		Events:         publisher,
		Logger:         log,
		MaxUploadBytes: cfg.Storage.MaxBytes,
	})
	accountSvc := services.NewAccountService(services.AccountDeps{
		Accounts:     accountRepo,
		PasswordMode: utils.ParsePasswordMode(cfg.Auth.PasswordMode),
		JWTSecret:    cfg.Auth.JWTSecret,
		TokenTTL:     cfg.Auth.TokenTTL,
	})
	contactSvc := services.NewContactService(contactRepo)
	chatSvc := services.NewChatService(services.ChatDeps{
		Profiles: profileRepo,
		History:  history,
		LLM:      model,
		Logs:     chatLogRepo,
		Logger:   log,
	})

	if cfg.Auth.Required && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_REQUIRED=true needs JWT_SECRET")
	}

	engine := NewEngine(log, routes.Deps{
		Profile:        handlers.NewProfileHandler(profileSvc, cfg.Storage.MaxBytes),
		Account:        handlers.NewAccountHandler(accountSvc),
		Contact:        handlers.NewContactHandler(contactSvc),
		Chat:           handlers.NewChatHandler(chatSvc),
		WS:             handlers.NewWSHandler(chatSvc, log, cfg.Server.AllowedOrigins),
		AuthRequired:   cfg.Auth.Required,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      staticDir,
	})

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ok = true
	return s, nil
}

// NewEngine builds the gin engine with recovery, request logging and routes.
func NewEngine(log *logrus.Logger, d routes.Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, d)
	return r
}

// newUploader builds the document store on ctx; boot bounds setup calls such as
// bucket creation.
func (s *Server) newUploader(ctx, boot context.Context, cfg config.StorageConfig) (storage.Uploader, string, error) {
	switch cfg.Backend {
	case "", "local":
		u, err := storage.NewLocalUploader(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		s.log.WithField("dir", u.Dir()).Info("storing documents on local disk")
		return u, u.Dir(), nil

	case "gcs":
		u, err := newGCSUploader(ctx, cfg.GCSBucket, "documents")
		if err != nil {
			return nil, "", err
		}
		s.onClose("gcs", u.Close)
		s.log.WithField("bucket", cfg.GCSBucket).Info("storing documents in GCS")
		return u, "", nil

	case "minio":
		u, err := storage.NewMinioUploader(storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Prefix:    "documents",
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, "", err
		}
		if err := u.EnsureBucket(boot); err != nil {
			return nil, "", err
		}
		s.log.WithField("bucket", cfg.MinioBucket).Info("storing documents in MinIO")
		return u, "", nil
	}
	return nil, "", fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Backend)
}

func (s *Server) onClose(name string, fn func() error) {
	s.closers = append(s.closers, closer{name: name, fn: fn})
}

// Run serves until ctx is cancelled, then shuts down gracefully and releases
// every handle.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
	case err := <-errCh:
		runErr = err
	}

	timeout := s.shutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.httpServer.Shutdown(sctx); err != nil {
		s.log.WithError(err).Error("http shutdown")
	}

	s.closeAll()
	return runErr
}

// closeAll releases handles in reverse order of creation.
func (s *Server) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.fn(); err != nil {
			s.log.WithError(err).WithField("handle", c.name).Warn("close failed")
		}
	}
	s.closers = nil
}
