package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mathvoice/mathvoice/internal/client"
	"github.com/mathvoice/mathvoice/internal/protocol"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent question/answer exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s/api/history?limit=%d", cfg.Client.ServerURL, historyLimit)
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if cfg.Client.AuthCookie != "" {
			req.Header.Set("Cookie", cfg.Client.AuthCookie)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return fmt.Errorf("server returned %s: %s", resp.Status, body)
		}

		var parsed struct {
			Total     int `json:"total"`
			Exchanges []struct {
				Transcript string                  `json:"transcript"`
				Text       string                  `json:"text_response"`
				MathOp     *protocol.MathOperation `json:"math_operation"`
				CreatedAt  time.Time               `json:"created_at"`
			} `json:"exchanges"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("decode history: %w", err)
		}

		if parsed.Total == 0 {
			fmt.Println("No exchanges recorded yet.")
			return nil
		}
		for _, ex := range parsed.Exchanges {
			fmt.Printf("%s  %q -> %q\n", ex.CreatedAt.Local().Format("2006-01-02 15:04"), ex.Transcript, ex.Text)
			if ex.MathOp != nil {
				fmt.Println(client.ComparisonPanel(*ex.MathOp))
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of exchanges to list")
	rootCmd.AddCommand(historyCmd)
}
