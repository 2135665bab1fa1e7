package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mathvoice/mathvoice/internal/client"
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Record a question and get the answer",
	Long: `Interactively record a spoken question. Press Enter to start recording,
Enter again to stop, then confirm to send the audio. The answer is printed
and, when playback is configured, read aloud.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		recorder, err := client.NewExecRecorder(cfg.Client.RecordCommand)
		if err != nil {
			return err
		}
		speaker, err := client.SpeakerFromConfig(cfg.Client)
		if err != nil {
			return err
		}
		session := client.NewSession(cfg.Client, recorder, speaker, logger)
		return runAskLoop(cmd.Context(), session, os.Stdin, os.Stdout)
	},
}

func runAskLoop(ctx context.Context, session *client.Session, in *os.File, out *os.File) error {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprintln(out, "Press Enter to start recording (or type q to quit).")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if strings.TrimSpace(line) == "q" {
			break
		}

		session.StartRecording()
		if !session.State().Recording {
			fmt.Fprintln(out, "Could not access the microphone. Check the record command and try again.")
			continue
		}

		fmt.Fprintln(out, "Recording... press Enter to stop.")
		if _, err := reader.ReadString('\n'); err != nil {
			session.StopRecording()
			break
		}
		session.StopRecording()

		if !session.CanSubmit() {
			fmt.Fprintln(out, "Nothing was recorded.")
			continue
		}

		fmt.Fprint(out, "Send recording? [Y/n] ")
		answer, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a == "n" || a == "no" {
			continue
		}

		fmt.Fprintln(out, client.RenderState(client.State{Processing: true}))
		if err := session.Submit(ctx); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, client.RenderState(session.State()))
	}

	session.Wait()
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
}
