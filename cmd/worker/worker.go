package worker

import (
	"github.com/spf13/cobra"
)

// NewWorkerCmd groups the background workers: the reaper sweeps expired
// sessions, retention, and stuck webhook events; the events worker consumes
// the Kafka event stream.
func NewWorkerCmd() *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	workerCmd.AddCommand(reaperCmd)
	workerCmd.AddCommand(eventsCmd)
	return workerCmd
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
