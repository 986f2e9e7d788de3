package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
)

var identityEnrollCmd = &cobra.Command{
	Use:   "enroll <id> <image>",
	Short: "Store the face embedding of an identity",
	Long: `Extract the first face from an image and store it as the identity's embedding,
replacing any previous one.

The enrollment is refused when the face is within MATCH_THRESHOLD of another
enrolled identity, unless --force is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runIdentityEnroll,
}

func init() {
	identityCmd.AddCommand(identityEnrollCmd)

	identityEnrollCmd.Flags().Bool("force", false, "Enroll even if the face is close to another identity")
}

func runIdentityEnroll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, imagePath := args[0], args[1]

	a, err := newApp(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	identity, err := a.Store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get identity %s: %w", id, err)
	}

	e, err := newEnroller(ctx, a, mustGetBool(cmd, "force"))
	if err != nil {
		return err
	}
	emb, err := e.extract(ctx, imagePath)
	if err != nil {
		return err
	}
	if err := e.check(emb, identity.ID); err != nil {
		return err
	}

	if err := a.Store.UpdateEmbedding(ctx, identity.ID, emb); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	fmt.Printf("Enrolled face for %s (%s)\n", identity.FullName(), identity.ID)
	return nil
}
