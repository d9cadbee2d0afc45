package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"picstore/internal/config"
	"picstore/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		logLevel     string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:           "picstore",
		Short:         "Picstore stores user images and profile pictures behind a session gate",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			formatter, err := format.New(outputFormat)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format (text, json, yaml)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg),
		newUserCmd(cfg),
		newImageCmd(cfg),
		newConfigCmd(cfg),
	)

	return cmd
}
