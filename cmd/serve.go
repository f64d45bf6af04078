package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenthud/hud/internal/api"
	"github.com/agenthud/hud/internal/events"
	"github.com/agenthud/hud/internal/resolver"
	"github.com/agenthud/hud/internal/store"
	"github.com/agenthud/hud/internal/watch"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard query API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, or 127.0.0.1:7447)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	loadStore := func() *store.Store { return store.Load(store.DefaultPath(dataRoot)) }
	win := resolver.WindowsFromSeconds(cfg.Resolver.LockStaleSeconds, cfg.Resolver.FallbackFreshSeconds)
	srv := api.NewServer(dataRoot, loadStore, win)

	w, err := watch.New(dataRoot, 200*time.Millisecond, func() {
		msg, _ := json.Marshal(map[string]string{"type": "changed"})
		srv.Hub.Broadcast(msg)
	})
	if err != nil {
		events.Warnf("serve: watcher unavailable, clients will not receive push updates: %v", err)
	} else {
		defer w.Close()
	}

	fmt.Printf("hud serve listening on %s\n", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
