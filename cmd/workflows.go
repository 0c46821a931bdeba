package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/workflow"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage stored workflows",
}

var workflowsRegisterCmd = &cobra.Command{
	Use:   "register <file>",
	Short: "Register a workflow definition from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		wf, err := readWorkflowFile(args[0])
		if err != nil {
			return err
		}

		id, err := env.Store.Register(cmd.Context(), wf)
		if err != nil {
			return err
		}

		zap.L().Info("workflow registered", zap.String("id", id.String()))
		fmt.Println(id)
		return nil
	},
}

var (
	workflowsListLimit  int
	workflowsListOffset int
)

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored workflows, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		listings, err := env.Store.List(cmd.Context(), workflowsListLimit, workflowsListOffset)
		if err != nil {
			return err
		}

		for _, l := range listings {
			fmt.Printf("%s  %-6s  %s\n", l.ID, l.Type, l.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func readWorkflowFile(path string) (workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.Workflow{}, eris.Wrapf(err, "read workflow file %s", path)
	}
	var wf workflow.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return workflow.Workflow{}, eris.Wrapf(err, "decode workflow file %s", path)
	}
	return wf, nil
}

func init() {
	workflowsListCmd.Flags().IntVar(&workflowsListLimit, "limit", 50, "maximum listings to print")
	workflowsListCmd.Flags().IntVar(&workflowsListOffset, "offset", 0, "listings to skip")
	workflowsCmd.AddCommand(workflowsRegisterCmd)
	workflowsCmd.AddCommand(workflowsListCmd)
	rootCmd.AddCommand(workflowsCmd)
}
