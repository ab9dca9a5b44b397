package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-interview/backend/internal/config"
	"github.com/zhouzirui/z-interview/backend/internal/handler"
	"github.com/zhouzirui/z-interview/backend/internal/handler/voice"
	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	"github.com/zhouzirui/z-interview/backend/internal/script"
	"github.com/zhouzirui/z-interview/backend/internal/service/ai"
	"github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/speech"
	"github.com/zhouzirui/z-interview/backend/internal/service/status"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	resolve, err := script.NewResolver(cfg.Interview.ScriptPath)
	if err != nil {
		log.Fatalf("failed to load interview script: %v", err)
	}
	if _, err := resolve(cfg.Interview.Variant); err != nil {
		log.Fatalf("invalid interview script variant %q: %v", cfg.Interview.Variant, err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	tracker := status.NewTracker()
	recorder := metrics.New()
	registry := interview.NewRegistry()
	runner := interview.NewRunner(registry, tracker, recorder, resolve)

	voiceOpts := voice.Options{
		Runner:             runner,
		Personas:           personaStore,
		Metrics:            recorder,
		DefaultInterviewer: cfg.Interview.DefaultInterviewer,
		DefaultVariant:     cfg.Interview.Variant,
		Language:           cfg.Interview.Language,
		MaxDuration:        cfg.Interview.MaxDuration,
	}

	// 语音后端
	speechService, err := speech.NewService(cfg.Speech.Backend, cfg.Speech.Model())
	if err != nil {
		log.Fatalf("failed to initialize speech backend: %v", err)
	}
	if speechService.Enabled() {
		voiceOpts.Recognizer = speechService
		voiceOpts.Synthesizer = speechService
		log.Printf("Speech backend %s initialized successfully", speechService.Backend())
	} else {
		log.Println("语音服务未启用，参与者通过文本帧作答")
	}

	// 脚本未等待回答时由 LLM 简短回应
	if cfg.AI.Enabled() && cfg.AI.ResponderEnabled {
		responder, err := ai.NewResponder(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI responder: %v", err)
			log.Println("continuing without AI replies - 请检查 Ark 模型相关环境变量")
		} else {
			voiceOpts.Responder = responder
			log.Println("AI responder initialized successfully")
		}
	} else {
		log.Println("Ark 凭证未配置或回应器已关闭，跳过 AI 回应初始化")
	}

	voiceHandler := voice.New(voiceOpts)
	defer voiceHandler.Connections().CloseAll()

	apiRouter := handler.NewRouter(handler.API{
		Personas: personaStore,
		Registry: registry,
		Voice:    voiceHandler,
	})
	statusRouter := handler.NewStatusRouter(tracker, recorder)

	startServers(ctx, stop, cfg.Server, apiRouter, statusRouter)
}

func startServers(ctx context.Context, stop context.CancelFunc, serverCfg config.ServerConfig, apiRouter, statusRouter http.Handler) {
	servers := []struct {
		name string
		srv  *http.Server
	}{
		{"interview api", newServer(serverCfg.Addr, apiRouter)},
		{"status", newServer(serverCfg.StatusAddr, statusRouter)},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(servers))
	for i, s := range servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Z Interview %s server listening on %s", s.name, s.srv.Addr)
			if err := runServer(ctx, s.srv); err != nil {
				errs[i] = err
				// 一个服务失败时关闭另一个
				stop()
			}
		}()
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
