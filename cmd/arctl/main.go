package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/receivables/cmd/arctl/cli"
	"github.com/odyssey-erp/receivables/internal/app"
)

func main() {
	if err := app.LoadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, "arctl:", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg *app.Config
	loadConfig := func() (*app.Config, error) {
		if cfg != nil {
			return cfg, nil
		}
		c, err := app.LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = c
		return cfg, nil
	}

	root := cli.NewRootCommand(cli.Deps{
		Service: func() (cli.ReportService, error) {
			c, err := loadConfig()
			if err != nil {
				return nil, err
			}
			_, service := app.NewReceivables(c, app.NewLoggerTo(os.Stderr, c))
			return service, nil
		},
		Jobs: func() (*cli.JobsCLI, error) {
			c, err := loadConfig()
			if err != nil {
				return nil, err
			}
			return cli.NewJobsCLI(c.RedisAddr), nil
		},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "arctl:", err)
		os.Exit(1)
	}
}
