package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/colegio/client"
	"github.com/trezcool/colegio/core"
	logsvc "github.com/trezcool/colegio/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "PANEL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	c := client.New(
		conf.Panel.APIURL,
		client.WithHTTPClient(&http.Client{Timeout: conf.Panel.RequestTimeout}),
		client.WithCacheTTL(conf.Panel.CacheTTL),
		client.WithLogger(logger),
	)
	cli := newCommandLine(c, client.NewFileTokenStore(conf.Panel.TokenFile), os.Stdin, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.run(ctx, os.Args)
	stop()
	if err != nil && err != errHelp {
		fmt.Fprintf(os.Stderr, "error: %s\n", errorText(err))
	}
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
