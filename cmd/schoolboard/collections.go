package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/config"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/listsync"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/remote"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const fieldFlag = "field"

// openController builds a controller bound to the configured API and performs the initial load.
func openController[R records.Record](ctx context.Context, kind records.Kind) (*listsync.Controller[R], *zap.Logger, error) {
	appConfig, logger, err := loadRuntime(config.LoadClient)
	if err != nil {
		return nil, nil, err
	}
	schema, ok := records.SchemaFor(kind)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", records.ErrUnknownKind, kind)
	}
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: appConfig.APIBaseURL,
		Timeout: appConfig.APITimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	controller, err := listsync.NewController(listsync.Config[R]{
		Schema:   schema,
		Endpoint: remote.NewEndpoint[R](client, kind),
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := controller.Load(ctx); err != nil {
		controller.Close()
		return nil, nil, err
	}
	return controller, logger, nil
}

func newCollectionCommand[R records.Record](kind records.Kind, use, short string) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, logger, err := openController[R](cmd.Context(), kind)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer controller.Close()
			return printRecords(cmd.OutOrStdout(), controller.State().Records)
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record from --field name=value pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := fieldAssignments(cmd)
			if err != nil {
				return err
			}
			controller, logger, err := openController[R](cmd.Context(), kind)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer controller.Close()

			if err := applyFields(controller, assignments); err != nil {
				return err
			}
			if err := controller.Submit(cmd.Context()); err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), controller.State().Records)
		},
	}
	createCmd.Flags().StringArray(fieldFlag, nil, "Field assignment as name=value (repeatable)")

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a record; fields not given keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignments, err := fieldAssignments(cmd)
			if err != nil {
				return err
			}
			controller, logger, err := openController[R](cmd.Context(), kind)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer controller.Close()

			record, ok := controller.Find(args[0])
			if !ok {
				return fmt.Errorf("%s %q not found", kind, args[0])
			}
			controller.Edit(record)
			if err := applyFields(controller, assignments); err != nil {
				return err
			}
			if err := controller.Submit(cmd.Context()); err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), controller.State().Records)
		},
	}
	updateCmd.Flags().StringArray(fieldFlag, nil, "Field assignment as name=value (repeatable)")

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			controller, logger, err := openController[R](cmd.Context(), kind)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer controller.Close()

			if err := controller.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), controller.State().Records)
		},
	}

	collectionCmd.AddCommand(listCmd, createCmd, updateCmd, deleteCmd)
	return collectionCmd
}

type assignment struct {
	field string
	value string
}

func fieldAssignments(cmd *cobra.Command) ([]assignment, error) {
	raw, err := cmd.Flags().GetStringArray(fieldFlag)
	if err != nil {
		return nil, err
	}
	return parseAssignments(raw)
}

func parseAssignments(raw []string) ([]assignment, error) {
	assignments := make([]assignment, 0, len(raw))
	for _, entry := range raw {
		field, value, found := strings.Cut(entry, "=")
		if !found || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("invalid field assignment %q, expected name=value", entry)
		}
		assignments = append(assignments, assignment{field: strings.TrimSpace(field), value: value})
	}
	return assignments, nil
}

func applyFields[R records.Record](controller *listsync.Controller[R], assignments []assignment) error {
	for _, item := range assignments {
		if err := controller.SetField(item.field, item.value); err != nil {
			return err
		}
	}
	return nil
}

func printRecords[R records.Record](out io.Writer, items []R) error {
	for _, item := range items {
		if _, err := fmt.Fprintf(out, "%s\t%s\n", item.RecordID(), item.Summary()); err != nil {
			return err
		}
	}
	return nil
}
