package cmd

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/pipegate/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the pipeline event log.",
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Show a report of recorded runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeReport(cmd)
	},
}

func writeReport(cmd *cobra.Command) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	fd, err := config.ReadEventLog()
	if err != nil {
		return err
	}
	if fd == nil {
		return errors.New("no event_log configured")
	}
	defer fd.Close()

	report := logger.NewReport()
	if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
		return err
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(out))

	return nil
}

func init() {
	builtinCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
}
