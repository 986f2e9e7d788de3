package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/database"
)

var identityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List identities and their enrollment state",
	Long: `List identities in scan order, which is also the order the recognizer
compares them in.

Examples:
  faceid identity list
  faceid identity list --q garcia
  faceid identity list --json`,
	Args: cobra.NoArgs,
	RunE: runIdentityList,
}

func init() {
	identityCmd.AddCommand(identityListCmd)

	identityListCmd.Flags().String("q", "", "Filter by name, ignoring case and accents")
	identityListCmd.Flags().Bool("json", false, "Output as JSON")
}

type identityListItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Lastname    string `json:"lastname"`
	DNI         string `json:"dni,omitempty"`
	Description string `json:"description,omitempty"`
	Enrolled    bool   `json:"enrolled"`
}

func runIdentityList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := mustGetString(cmd, "q")

	a, err := newApp(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	identities, err := a.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	items := make([]identityListItem, 0, len(identities))
	for i := range identities {
		identity := &identities[i]
		if query != "" && !database.MatchesQuery(identity, query) {
			continue
		}
		items = append(items, identityListItem{
			ID:          identity.ID,
			Name:        identity.Name,
			Lastname:    identity.Lastname,
			DNI:         identity.DNI,
			Description: identity.Description,
			Enrolled:    identity.Enrolled(),
		})
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	printIdentityTable(items)
	return nil
}

func printIdentityTable(items []identityListItem) {
	if len(items) == 0 {
		fmt.Println("No identities found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLASTNAME\tDNI\tENROLLED")
	enrolled := 0
	for _, item := range items {
		mark := "no"
		if item.Enrolled {
			mark = "yes"
			enrolled++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Lastname, item.DNI, mark)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d identities, %d enrolled\n", len(items), enrolled)
}
