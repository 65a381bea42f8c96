package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lwmacct/251015-go-mod-vlogs/pkg/mlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := newApp(os.Stdout)
	err := newRootCommand(a).ExecuteContext(ctx)
	a.close()
	stop()
	mlog.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vlogs",
		Short:         "Query VictoriaLogs and resolve dashboard variables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyEnv(cmd.Flags(), lookupEnv); err != nil {
				return err
			}
			a.setupLogger()
			return nil
		},
	}
	bindFlags(cmd.PersistentFlags(), a.opts)

	cmd.AddCommand(
		a.logsCommand(),
		a.fieldsCommand(),
		a.valuesCommand(),
		a.depsCommand(),
		a.pluginsCommand(),
		a.exploreCommand(),
	)
	return cmd
}
