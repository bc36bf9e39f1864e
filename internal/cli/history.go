package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent claim decisions",
	Long: `History lists the most recent terminal decisions from the audit log,
newest first.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of decisions to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	// History only reads the audit log; no provider or embedder needed
	path := model.DefaultConfig().Store.Path
	if v := viper.GetString("store.path"); v != "" {
		path = v
	}

	st, err := store.NewSQLiteStore(path, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	rows, err := st.RecentDecisions(historyLimit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No decisions recorded yet.")
		return nil
	}

	if historyJSON {
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCLAIM\tDECISION\tPROVIDER\tREASONING")
	for _, d := range rows {
		reasoning := d.FinalReasoning
		if len(reasoning) > 60 {
			reasoning = reasoning[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
			d.CreatedAt.Format("2006-01-02 15:04"),
			d.ClaimID, d.FinalDecision, d.LLMProvider, d.LLMModel, reasoning)
	}
	return w.Flush()
}
