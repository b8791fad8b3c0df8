package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Create sessions and record turns",
	}

	var user, name string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Start a session",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			sess, err := s.CreateSession(user, name)
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), sess)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		}),
	}
	newCmd.Flags().StringVar(&user, "user", "", "Owning user ID")
	newCmd.Flags().StringVar(&name, "name", "", "Session name")

	var speaker string
	addCmd := &cobra.Command{
		Use:   "add <session-id> <text>",
		Short: "Score a turn and append it to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			sp, err := dialogue.ParseSpeaker(speaker)
			if err != nil {
				return err
			}
			e, err := a.openEngine(cmd.Context(), true)
			if err != nil {
				return err
			}
			turn, err := e.AddTurn(cmd.Context(), args[0], strings.Join(args[1:], " "), sp)
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), turn)
			}
			printTurn(cmd.OutOrStdout(), turn)
			return nil
		}),
	}
	addCmd.Flags().StringVar(&speaker, "speaker", "self", "Speaker: self or counterpart")

	var listUser string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, oldest first",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			sessions, err := s.ListSessions(listUser)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonOut {
				return printJSON(out, sessions)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no sessions found")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-12s  %-20s  %s\n", "Session", "User", "Updated", "Name")
			for _, sess := range sessions {
				fmt.Fprintf(out, "%-36s  %-12s  %-20s  %s\n",
					sess.ID, sess.UserID, sess.UpdatedAt.Format("2006-01-02T15:04:05Z"), sess.Name)
			}
			return nil
		}),
	}
	listCmd.Flags().StringVar(&listUser, "user", "", "Only this user's sessions")

	cmd.AddCommand(newCmd, addCmd, listCmd)
	return cmd
}
