package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the datasets of all configured providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		for _, listing := range env.Registry.List() {
			fmt.Printf("%s  %-10s  %s\n",
				listing.ID, listing.ResultDescriptor.DataType, listing.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
