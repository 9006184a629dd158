package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asiste.org/internal/httpapi"
	"asiste.org/internal/obs"
	"asiste.org/internal/store/pg"
	"asiste.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Open Postgres when a DSN is configured: the same pool backs the
	// membership provider, the delegation oracle and /readyz. Without a DSN
	// the server still starts; resolution degrades to empty option sets.
	var store *pg.Store
	if dsn := os.Getenv("ASISTE_PG_DSN"); dsn != "" {
		var err error
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	} else {
		store = pg.NewStore(nil)
		log.Println("ASISTE_PG_DSN not set; running without a database")
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, version, store, store, store, stream.New())

	addr := os.Getenv("ASISTE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting asiste-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
