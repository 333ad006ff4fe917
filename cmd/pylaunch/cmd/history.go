package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pylaunch/pylaunch/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent launches",
	Long:  `History lists recent launches recorded in the local history database, newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of launches to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if cfg.HistoryPath == "" {
		return fmt.Errorf("history_path is not set")
	}

	st, err := store.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer st.Close()

	launches, err := st.Recent(historyLimit)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, err := json.MarshalIndent(launches, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(launches) == 0 {
		fmt.Println("No launches recorded")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Started", "Module", "Args", "PID", "Exit", "Duration", "Venv")

	for _, l := range launches {
		venvUsed := "no"
		if l.VenvUsed {
			venvUsed = "yes"
		}
		table.Append(
			l.StartTime.Format(time.RFC3339),
			l.Module,
			strings.Join(l.Args, " "),
			fmt.Sprintf("%d", l.PID),
			fmt.Sprintf("%d", l.ExitCode),
			l.Duration.String(),
			venvUsed,
		)
	}

	table.Render()
	return nil
}
