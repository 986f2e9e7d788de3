package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/database"
)

var identityCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an identity",
	Long: `Create an identity, optionally enrolling the face from an image file.

Examples:
  faceid identity create --name Ana --lastname García --dni 12345678A \
    --description "Profesora de física" --image ana.jpg`,
	Args: cobra.NoArgs,
	RunE: runIdentityCreate,
}

func init() {
	identityCmd.AddCommand(identityCreateCmd)

	identityCreateCmd.Flags().String("name", "", "First name")
	identityCreateCmd.Flags().String("lastname", "", "Last name")
	identityCreateCmd.Flags().String("dni", "", "Identifier number")
	identityCreateCmd.Flags().String("description", "", "Free text passed to the advisor as context")
	identityCreateCmd.Flags().String("image", "", "Image file to enroll the face from")
	identityCreateCmd.Flags().Bool("force", false, "Enroll even if the face is close to another identity")
}

func runIdentityCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	identity := &database.Identity{
		Name:        mustGetString(cmd, "name"),
		Lastname:    mustGetString(cmd, "lastname"),
		DNI:         mustGetString(cmd, "dni"),
		Description: mustGetString(cmd, "description"),
	}
	if identity.Name == "" && identity.Lastname == "" {
		return errors.New("--name or --lastname is required")
	}

	a, err := newApp(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if image := mustGetString(cmd, "image"); image != "" {
		e, err := newEnroller(ctx, a, mustGetBool(cmd, "force"))
		if err != nil {
			return err
		}
		emb, err := e.extract(ctx, image)
		if err != nil {
			return err
		}
		if err := e.check(emb, ""); err != nil {
			return err
		}
		identity.Embedding = emb
	}

	if err := a.Store.Create(ctx, identity); err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	fmt.Printf("Created identity %s (%s)\n", identity.ID, identity.FullName())
	if identity.Enrolled() {
		fmt.Println("Face enrolled")
	}
	return nil
}
