package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/medtriage/internal/monitor"
)

var (
	dashboardServer   string
	dashboardInterval time.Duration
)

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dashboardServer, "server", "http://localhost:9090", "medtriage server URL")
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", 5*time.Second, "refresh interval")
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live terminal dashboard of a running server's corpus statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p := tea.NewProgram(
			monitor.NewModel(dashboardServer, dashboardInterval),
			tea.WithAltScreen(),
			tea.WithContext(cmd.Context()),
		)
		_, err := p.Run()
		return err
	},
}
