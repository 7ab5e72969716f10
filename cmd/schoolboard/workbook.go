package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/schoolboard/internal/records"
	"github.com/MarcoPoloResearchLab/schoolboard/internal/sheets"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCommand() *cobra.Command {
	var output string
	exportCmd := &cobra.Command{
		Use:   "export <students|notices|announcements>",
		Short: "Write a collection snapshot to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = kind.Collection() + ".xlsx"
			}
			switch kind {
			case records.KindStudent:
				return exportCollection[records.Student](cmd.Context(), kind, output)
			case records.KindNotice:
				return exportCollection[records.Notice](cmd.Context(), kind, output)
			default:
				return exportCollection[records.Announcement](cmd.Context(), kind, output)
			}
		},
	}
	exportCmd.Flags().StringVar(&output, "output", "", "Destination workbook (defaults to <collection>.xlsx)")
	return exportCmd
}

func newImportCommand() *cobra.Command {
	var input string
	importCmd := &cobra.Command{
		Use:   "import <students|notices|announcements>",
		Short: "Submit every row of an XLSX workbook as a new record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			var imported, failed int
			switch kind {
			case records.KindStudent:
				imported, failed, err = importCollection[records.Student](cmd.Context(), kind, input)
			case records.KindNotice:
				imported, failed, err = importCollection[records.Notice](cmd.Context(), kind, input)
			default:
				imported, failed, err = importCollection[records.Announcement](cmd.Context(), kind, input)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, failed %d\n", imported, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d rows failed", failed, imported+failed)
			}
			return nil
		},
	}
	importCmd.Flags().StringVar(&input, "input", "", "Source workbook")
	_ = importCmd.MarkFlagRequired("input")
	return importCmd
}

func exportCollection[R records.Record](ctx context.Context, kind records.Kind, path string) error {
	controller, logger, err := openController[R](ctx, kind)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	defer controller.Close()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	state := controller.State()
	if err := sheets.Export(file, controller.Schema(), state.Records); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	logger.Info("collection exported",
		zap.String("collection", kind.Collection()),
		zap.Int("records", len(state.Records)),
		zap.String("path", path))
	return nil
}

// importCollection drafts each row into the form and submits it; a failed row is
// logged and skipped so the remaining rows still go through.
func importCollection[R records.Record](ctx context.Context, kind records.Kind, path string) (int, int, error) {
	controller, logger, err := openController[R](ctx, kind)
	if err != nil {
		return 0, 0, err
	}
	defer logger.Sync() //nolint:errcheck
	defer controller.Close()

	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	rows, err := sheets.ReadRows(file, controller.Schema())
	if err != nil {
		return 0, 0, err
	}

	imported, failed := 0, 0
	for _, row := range rows {
		controller.Cancel()
		if err := submitRow(ctx, controller.SetField, controller.Submit, row); err != nil {
			failed++
			logger.Warn("row import failed",
				zap.String("collection", kind.Collection()),
				zap.Int("row", row.Number),
				zap.Error(err))
			continue
		}
		imported++
	}
	controller.Cancel()
	return imported, failed, nil
}

func submitRow(ctx context.Context, setField func(string, string) error, submit func(context.Context) error, row sheets.Row) error {
	for field, value := range row.Fields {
		if err := setField(field, value); err != nil {
			return err
		}
	}
	return submit(ctx)
}
