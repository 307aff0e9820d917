package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawgate/internal/api"
	"github.com/ppiankov/clawgate/internal/config"
	"github.com/ppiankov/clawgate/internal/denylist"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the clawgate daemon",
	Long:  "Starts the jobs/status HTTP API, the executor worker, and the config\nwatcher. The deny-list reloads on file change without a restart.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.queue.Run(ctx)

	reloader, err := config.NewReloader(func() error {
		dl, err := denylist.Load(a.cfg.Paths.DenylistPath)
		if err != nil {
			return err
		}
		a.dispatcher.SwapDenylist(dl)
		return nil
	}, []string{a.cfg.Paths.DenylistPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve: hot reload disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	srv := api.NewServer(api.Config{
		Host:  a.cfg.API.Host,
		Port:  a.cfg.API.Port,
		Token: a.cfg.API.Token,
	}, a.queue, a.confirms, a.counters, a.statusFn)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "clawgate serving on %s:%d (level %s)\n",
		a.cfg.API.Host, a.cfg.API.Port, a.level)
	return srv.Start(ctx)
}
