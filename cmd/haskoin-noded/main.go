package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kvhnuke/haskoin-node/config"
	"github.com/kvhnuke/haskoin-node/peermgr"
	"github.com/kvhnuke/haskoin-node/plog"
)

var log = plog.NewSubLogger("SRVR")

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		config.Exit(err)
		return
	}

	mgrCfg, err := cfg.ToManagerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mgrCfg.Dialer = newTCPDialer()
	mgrCfg.Events = &loggingEvents{}
	mgrCfg.Messages = &discardMessages{}

	mgr := peermgr.NewManager(mgrCfg)

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	mgr.Run(ctx, 0)
}
