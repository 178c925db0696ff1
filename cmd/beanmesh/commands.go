package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/beanmesh/bootstrap"
	"github.com/hupe1980/beanmesh/config"
	"github.com/hupe1980/beanmesh/dispatch"
	"github.com/hupe1980/beanmesh/engine"
	"github.com/hupe1980/beanmesh/server"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "beanmesh",
		Short:        "Agent dispatch and research workflows",
		Long:         "beanmesh classifies queries and answers them directly or through a planner, supervisor and web scraper pipeline.",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("env", "", "path to .env file (default: ./.env when present)")

	root.AddCommand(newRunCommand())
	root.AddCommand(newServeCommand())
	root.AddCommand(newAgentsCommand())
	root.AddCommand(newWorkflowsCommand())

	return root
}

// loadApp loads configuration and assembles the app for a command.
func loadApp(cmd *cobra.Command) (*bootstrap.App, error) {
	envFile, _ := cmd.Flags().GetString("env")

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return bootstrap.New(cmd.Context(), cfg)
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run a workflow for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID, _ := cmd.Flags().GetString("workflow")
			conversationID, _ := cmd.Flags().GetString("conversation")

			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if timeout := app.Config.Engine.RunTimeout; timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			input := dispatch.Query{Query: strings.Join(args, " ")}
			res, err := app.Mesh.Run(ctx, workflowID, input, func(o *engine.RunOptions) {
				o.ConversationID = conversationID
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringP("workflow", "w", dispatch.AgenticWorkflowID, "workflow id to run")
	cmd.Flags().StringP("conversation", "c", "", "conversation id for memory (default: new conversation)")

	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workflows over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			srv := server.New(app.Mesh.Engine(), func(o *server.Options) {
				o.Addr = addr
				o.RunTimeout = app.Config.Engine.RunTimeout
				o.ShutdownTimeout = app.Config.Server.ShutdownTimeout
				o.Logger = app.Logger
			})

			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address (default: BEANMESH_SERVER_ADDR)")

	return cmd
}

func newAgentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			for _, a := range app.Mesh.Engine().Agents() {
				fmt.Fprintf(out, "%-24s %s\n", a.Name(), a.Description())
				if tools := a.ToolNames(); len(tools) > 0 {
					fmt.Fprintf(out, "%-24s tools: %s\n", "", strings.Join(tools, ", "))
				}
			}
			return nil
		},
	}
}

func newWorkflowsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "workflows",
		Short: "List registered workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			for _, wf := range app.Mesh.Engine().Workflows() {
				fmt.Fprintf(out, "%-24s %s\n", wf.ID(), wf.Description())
				fmt.Fprintf(out, "%-24s steps: %s\n", "", strings.Join(wf.StepIDs(), " -> "))
			}
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
