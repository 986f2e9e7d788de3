package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/database"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the advisor a question about a stored identity",
	Long: `Send a question about a stored identity to the configured advisor
(ADVISOR_PROVIDER) and print the answer.

Examples:
  faceid ask --dni 12345678A "¿Qué asignatura enseña?"
  faceid ask --id 6f1c... "¿Dónde trabaja?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().String("dni", "", "Identifier number of the identity")
	askCmd.Flags().String("id", "", "ID of the identity")
	askCmd.MarkFlagsMutuallyExclusive("dni", "id")
	askCmd.MarkFlagsOneRequired("dni", "id")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	a, err := newApp(ctx, loadConfig(), app.Options{Advisor: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var identity *database.Identity
	if dni := mustGetString(cmd, "dni"); dni != "" {
		identity, err = a.Store.GetByDNI(ctx, dni)
	} else {
		identity, err = a.Store.Get(ctx, mustGetString(cmd, "id"))
	}
	if err != nil {
		return fmt.Errorf("failed to find identity: %w", err)
	}

	answer, err := a.Advisor.Ask(ctx, advisor.Profile{
		Name:        identity.Name,
		Lastname:    identity.Lastname,
		Description: identity.Description,
	}, question)
	if errors.Is(err, advisor.ErrMissingParameter) {
		return errors.New("question must not be empty")
	}
	if err != nil {
		return err
	}

	fmt.Println(answer)
	return nil
}
