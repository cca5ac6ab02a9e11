package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "listener",
		Short:         "Radio listener: joins a room's presence channel and announces playback",
		Long:          "listener attaches to a room's presence channel, starts playback and announces the join once per session to connected peers and to the room's discussion thread.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newListenCmd(),
		newRoomIDCmd(),
	)

	return rootCmd
}
