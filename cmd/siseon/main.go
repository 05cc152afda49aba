package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/go-kratos/kratos/v2"

	"github.com/noeunkim/black-white-siseon/internal/config"
	"github.com/noeunkim/black-white-siseon/internal/logger"
	"github.com/noeunkim/black-white-siseon/internal/oracle"
	"github.com/noeunkim/black-white-siseon/internal/pipeline"
	"github.com/noeunkim/black-white-siseon/internal/scraper"
	"github.com/noeunkim/black-white-siseon/internal/search/factory"
	"github.com/noeunkim/black-white-siseon/internal/server"
	"github.com/noeunkim/black-white-siseon/internal/storage"
	"github.com/noeunkim/black-white-siseon/internal/storage/memory"
	"github.com/noeunkim/black-white-siseon/internal/storage/postgres"
	"github.com/noeunkim/black-white-siseon/internal/youtube"
)

const serviceName = "black-white-siseon"

var confPath = flag.String("conf", "configs/config.yaml", "config file path")

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("설정 파일을 불러올 수 없습니다: %v", err)
	}
	if cfg.LLM.APIKey == "" {
		log.Fatal("설정 오류: llm.api_key가 없습니다")
	}

	if err = logger.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		log.Fatalf("로거 초기화 실패: %v", err)
	}
	logger.Log.Infof("%s 시작...", serviceName)

	ctx := context.Background()

	store, err := newStore(cfg)
	if err != nil {
		logger.Log.Fatalf("저장소 초기화 실패: %v", err)
	}
	defer store.Close()

	searcher, err := factory.NewSearcher(cfg)
	if err != nil {
		logger.Log.Fatalf("검색 클라이언트 초기화 실패: %v", err)
	}

	llm, err := oracle.New(ctx, cfg.LLM, cfg.Concurrency)
	if err != nil {
		logger.Log.Fatalf("LLM 초기화 실패: %v", err)
	}

	p := pipeline.New(scraper.New(), youtube.NewClient(), llm, searcher, store, cfg.Pipeline)

	svc := server.NewService(p, store, cfg.Pipeline)
	httpSrv := server.NewHTTPServer(cfg.Server, svc)

	hostname, _ := os.Hostname()
	app := kratos.New(
		kratos.ID(hostname),
		kratos.Name(serviceName),
		kratos.Server(httpSrv),
	)

	if err := app.Run(); err != nil {
		logger.Log.Fatalf("서버 실행 실패: %v", err)
	}
}

// newStore picks the persistence backend. "memory" keeps everything
// in-process; anything else goes through postgres.
func newStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DB.Driver == "memory" {
		logger.Log.Warn("메모리 저장소 사용 중: 재시작 시 검색 기록이 사라집니다")
		return memory.New(), nil
	}
	return postgres.New(cfg.DB)
}
