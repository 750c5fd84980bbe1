package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/session"
	"github.com/samsaffron/chatstream/internal/ui"
)

var (
	sessionsBackend string
	sessionsLimit   int
	sessionsSystem  bool
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "List and show stored chat sessions",
	Long: `Sessions are stored when chat runs with --session.

Examples:
  chatstream sessions
  chatstream sessions list --backend mock
  chatstream sessions show 240115-1430`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a session as markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

func init() {
	for _, c := range []*cobra.Command{sessionsCmd, sessionsListCmd} {
		c.Flags().StringVar(&sessionsBackend, "backend", "", "Only sessions for this backend (openai, mock)")
		c.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions")
	}
	sessionsShowCmd.Flags().BoolVar(&sessionsSystem, "system", false, "Include system messages")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func openSessionStore() (session.Store, error) {
	if !app.cfg.Session.Enabled {
		return nil, fmt.Errorf("sessions are disabled in the config (session.enabled)")
	}
	return session.Open(app.cfg.Session)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(cmd.Context(), session.ListOptions{Backend: sessionsBackend, Limit: sessionsLimit})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	styles := ui.NewStyles(out)
	if len(summaries) == 0 {
		fmt.Fprintln(out, styles.Muted.Render("No sessions yet. Start one with: chatstream chat --session new"))
		return nil
	}
	for _, s := range summaries {
		title := s.Name
		if title == "" {
			title = styles.Muted.Render("(untitled)")
		}
		fmt.Fprintf(out, "%s  %-6s %-14s %3d msgs  %s\n",
			styles.Bold.Render(session.ShortID(s.ID)),
			s.Backend,
			ui.Truncate(s.Model, 14),
			s.MessageCount,
			title)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openSessionStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := store.Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	messages, err := store.Messages(cmd.Context(), sess.ID)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), session.ExportToMarkdown(sess, messages, session.ExportOptions{IncludeSystem: sessionsSystem}))
	return nil
}
