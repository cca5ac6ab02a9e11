package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiawesome/wes-io-live/listener-client/internal/session"
)

func newRoomIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "room-id <page-url>",
		Short: "Print the room id discovered from an embedded page url",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := session.RoomIDFromURL(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}
