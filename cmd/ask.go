package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/finlens/internal/assistant"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask the solvency assistant a question (answers in Spanish)",
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")
		w := cmd.OutOrStdout()
		// Validate before building a client so an empty question never needs credentials.
		if strings.TrimSpace(prompt) == "" {
			fmt.Fprintln(w, assistant.EmptyPromptMessage)
			return nil
		}
		gw, err := newGateway()
		if err != nil {
			return err
		}
		answer, err := gw.Ask(cmd.Context(), prompt)
		if errors.Is(err, assistant.ErrEmptyPrompt) {
			fmt.Fprintln(w, assistant.EmptyPromptMessage)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
