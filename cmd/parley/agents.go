package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the agents the backend exposes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newSDKClient()
		agents, err := client.Agents.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(agents) == 0 {
			fmt.Println("(no agents)")
			return nil
		}
		for _, agent := range agents {
			fmt.Printf("%s\t%s\n", agent.Name, agent.DisplayName)
		}
		return nil
	},
}
