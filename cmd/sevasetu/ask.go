package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-go-golems/sevasetu/pkg/turns"
	"github.com/go-go-golems/sevasetu/pkg/turns/serde"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	var (
		language   string
		printTurns string
		withSpeech bool
		audioOut   string
	)
	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask one question and print the answer",
		Example: `  sevasetu ask --language hindi "I am a farmer with 2 acres, what schemes can I get?"
  sevasetu ask --print-turns yaml "documents for PM Kisan"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch printTurns {
			case "", "text", "yaml":
			default:
				return errors.Errorf("unknown --print-turns format %q", printTurns)
			}

			s, err := loadSettings()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), s, appOptions{speech: withSpeech || audioOut != "", history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			reply, err := a.assistant.HandleText(cmd.Context(), strings.Join(args, " "), language)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch printTurns {
			case "text":
				if reply.Conversation != nil {
					turns.FprintConversation(out, reply.Conversation, turns.WithToolDetail(true))
					fmt.Fprintln(out)
				}
			case "yaml":
				if reply.Conversation != nil {
					b, err := serde.ToYAML(reply.Conversation)
					if err != nil {
						return err
					}
					_, _ = out.Write(b)
					fmt.Fprintln(out, "---")
				}
			}
			fmt.Fprintln(out, reply.AgentText)

			if audioOut != "" {
				if len(reply.Audio) == 0 {
					return errors.New("no audio was synthesized for the answer")
				}
				if err := os.WriteFile(audioOut, reply.Audio, 0o644); err != nil {
					return errors.Wrap(err, "write audio")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "hindi", "Answer language key, or auto to detect it")
	cmd.Flags().StringVar(&printTurns, "print-turns", "", "Print the conversation before the answer (text, yaml)")
	cmd.Flags().BoolVar(&withSpeech, "speech", false, "Configure the speech provider")
	cmd.Flags().StringVar(&audioOut, "audio-out", "", "Write the spoken answer to this file")
	return cmd
}
