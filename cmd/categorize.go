package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/llm"
	"github.com/samsaffron/chatstream/internal/ui"
)

var categorizeAll bool

var categorizeCmd = &cobra.Command{
	Use:   "categorize [text]",
	Short: "Show which mock category a message falls into",
	Long: `Run text through the mock backend's categorizer and print the category
it resolves to along with the number of canned replies in that pool.

Examples:
  chatstream categorize "my useEffect runs twice"
  chatstream categorize --all`,
	Annotations: map[string]string{skipSetup: "true"},
	RunE:        runCategorize,
}

func init() {
	categorizeCmd.Flags().BoolVar(&categorizeAll, "all", false, "List every category in evaluation order")
	rootCmd.AddCommand(categorizeCmd)
}

func runCategorize(cmd *cobra.Command, args []string) error {
	c := llm.DefaultCategorizer()
	styles := ui.NewStyles(cmd.OutOrStdout())
	if categorizeAll {
		printCategories(cmd.OutOrStdout(), styles, c)
		return nil
	}
	if len(args) == 0 {
		return errors.New("nothing to categorize (pass text or --all)")
	}
	text := strings.Join(args, " ")
	cat := c.Categorize(text)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", styles.Category.Render(string(cat)),
		styles.Muted.Render(fmt.Sprintf("(%d responses)", len(c.Responses(cat)))))
	return nil
}

func printCategories(w io.Writer, styles *ui.Styles, c *llm.Categorizer) {
	for i, cat := range c.Categories() {
		fmt.Fprintf(w, "%2d. %s %s\n", i+1, styles.Category.Render(string(cat)),
			styles.Muted.Render(fmt.Sprintf("(%d responses)", len(c.Responses(cat)))))
	}
}
