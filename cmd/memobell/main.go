package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memo-bell/internal/api"
	"memo-bell/internal/config"
	"memo-bell/internal/model"
	"memo-bell/internal/music"
	"memo-bell/internal/scheduler"
	"memo-bell/internal/store"
)

func main() {
	// 1. Parse Flags
	// Flags override config.yaml / environment values
	addr := flag.String("addr", "", "Override listen address (e.g. :18080)")
	dataFile := flag.String("data", "", "Override schedule file path")
	tick := flag.Int("tick", 0, "Override reminder tick interval in seconds")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// 2. Load Config
	cfg := config.Load()

	// 3. Apply Flag Overrides
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataFile != "" {
		cfg.Server.DataFile = *dataFile
	}
	if *tick > 0 {
		cfg.Server.TickSeconds = *tick
	}

	log.Println("🔔 Starting memo-bell...")

	// 4. Init Infrastructure
	st := store.New(cfg.Server.DataFile)
	if err := st.Load(); err != nil {
		log.Printf("⚠️ Load failed, starting empty: %v", err)
	} else {
		log.Printf("📋 Loaded %d schedule(s) from %s", st.Count(), cfg.Server.DataFile)
	}

	mus := music.New(cfg.Music.PrimaryBase, cfg.Music.FallbackBase, cfg.Server.MusicDir)

	// Retry audio downloads that failed on a previous run.
	if refreshMusicCache(st, mus) {
		if err := st.Save(); err != nil {
			log.Printf("⚠️ Save after cache refresh failed: %v", err)
		}
	}

	scheduler.RegisterMetrics()
	music.RegisterMetrics()

	// 5. Reminder Loop
	runner := scheduler.NewRunner(st, scheduler.RealClock{}, time.Duration(cfg.Server.TickSeconds)*time.Second)
	runner.OnEntryDue = func(e model.ScheduleEntry) {
		// Hook point for the tray/audio shell; headless builds just log.
		log.Printf("🔔 Reminder: %s", e.Title)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go runner.Run(ctx)

	// 6. HTTP API
	server := api.New(cfg, st, mus)
	httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: server.Handler()}

	go func() {
		log.Printf("🌍 Dashboard API at http://localhost%s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// 7. Wait for shutdown, then stop ticks, drain HTTP, save once.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}

	if err := st.Save(); err != nil {
		log.Printf("⚠️ Final save failed: %v", err)
	} else {
		log.Println("💾 Final save complete")
	}
}

// refreshMusicCache downloads audio for entries whose cached file is
// missing. Network calls run outside the store lock; only the path
// write-back goes through Mutate.
func refreshMusicCache(st *store.Store, mus *music.Service) bool {
	changed := false
	for _, e := range st.List() {
		if e.MusicURL == "" || music.CachedFile(e.MusicFile) != "" {
			continue
		}
		if saved := mus.Download(e.MusicURL, e.ID); saved != "" {
			st.Mutate(e.ID, func(entry *model.ScheduleEntry) {
				entry.MusicFile = saved
			})
			changed = true
		}
	}
	return changed
}
