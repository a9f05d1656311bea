package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/database"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/repository"
)

var (
	dryRun     = flag.Bool("dry-run", true, "Dry run mode, don't actually cancel reservations")
	holdExpire = flag.Int("hold-expire", 24, "Hours a pending reservation may wait for payment")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewSQLite(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	resRepo := repository.NewReservationRepository(db)

	// 超时未支付的占用，取消后时段立即释放
	before := time.Now().Add(-time.Duration(*holdExpire) * time.Hour)
	log.Printf("\n📦 Scanning pending reservations held before %s...",
		before.Format("2006-01-02 15:04"))

	stale, err := resRepo.ListStalePending(before)
	if err != nil {
		log.Fatalf("Failed to query stale reservations: %v", err)
	}

	cancelled := 0
	for i := range stale {
		res := &stale[i]
		log.Printf("  - reservation #%d (user %d, slot %s, held %s)",
			res.ID, res.UserID,
			res.ReservedAt.Format("2006-01-02 15:04"),
			time.Since(res.CreatedAt).Round(time.Hour))

		if *dryRun {
			cancelled++
			continue
		}

		err := resRepo.Transition(res.ID,
			model.ReservationPendingPayment, model.ReservationCancelled)
		if err != nil {
			// 可能恰好刚被审批，跳过即可
			log.Printf("    ❌ Failed to cancel: %v", err)
			continue
		}
		cancelled++
	}

	// 输出统计
	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("📊 Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Stale reservations found: %d", len(stale))
	log.Printf("Cancelled: %d", cancelled)
	if *dryRun {
		log.Println("\n⚠️  DRY RUN MODE - No reservations were actually cancelled")
		log.Println("   Run with -dry-run=false to actually cancel them")
	} else {
		log.Println("\n✅ Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}
