package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/eintrusts/MahacapV2/internal/app"
	"github.com/eintrusts/MahacapV2/internal/service"
	"github.com/eintrusts/MahacapV2/internal/statefile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// appFactory builds the wired application for one command invocation.
type appFactory func(ctx context.Context) (*app.App, *zap.Logger, error)

func newRootCmd(newApp appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "capctl",
		Short:         "Operate on MahaCAP city records and cloud snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newResolveCmd(newApp),
		newPushCmd(newApp),
		newPullCmd(newApp),
		newSaveCmd(newApp),
		newLoadCmd(newApp),
	)
	return root
}

// withApp runs fn against a freshly wired App and closes it afterwards.
func withApp(cmd *cobra.Command, newApp appFactory, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, log, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()
	return fn(ctx, a)
}

func newResolveCmd(newApp appFactory) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Find or create a folder and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, newApp, func(ctx context.Context, a *app.App) error {
				id, err := a.Resolver.Resolve(ctx, args[0], parent)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent folder id (empty for top level)")
	return cmd
}

func newPushCmd(newApp appFactory) *cobra.Command {
	var city string
	cmd := &cobra.Command{
		Use:   "push <state.json>",
		Short: "Upload a local snapshot file to the root or a city folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			recs, err := statefile.Decode(raw)
			if err != nil {
				return err
			}
			return withApp(cmd, newApp, func(ctx context.Context, a *app.App) error {
				folderID, err := snapshotFolder(ctx, a, city)
				if err != nil {
					return err
				}
				res, err := a.Sync.Save(ctx, folderID, recs, a.StateFilename)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d cities as %s\n", len(recs), res.FileID)
				if !res.Cleanup.OK() {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", res.Cleanup.Err())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "upload to this city's folder instead of the root")
	return cmd
}

func newPullCmd(newApp appFactory) *cobra.Command {
	var city, out string
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the current snapshot as state.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, newApp, func(ctx context.Context, a *app.App) error {
				folderID, err := snapshotFolder(ctx, a, city)
				if err != nil {
					return err
				}
				recs, found, err := a.Sync.Load(ctx, folderID, a.StateFilename)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("no snapshot in folder %s", folderID)
				}
				raw, err := statefile.Encode(recs)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
					return err
				}
				return os.WriteFile(out, raw, 0o644)
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "read this city's folder instead of the root")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newSaveCmd(newApp appFactory) *cobra.Command {
	var city string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the configured record store to the cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, newApp, func(ctx context.Context, a *app.App) error {
				var (
					report service.SaveReport
					err    error
				)
				if city != "" {
					report, err = a.Cloud.SaveCity(ctx, city)
				} else {
					report, err = a.Cloud.SaveAll(ctx)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "save only this city")
	return cmd
}

func newLoadCmd(newApp appFactory) *cobra.Command {
	var city, mode string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the cloud snapshot into the configured record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := service.ParseLoadMode(mode)
			if err != nil {
				return err
			}
			return withApp(cmd, newApp, func(ctx context.Context, a *app.App) error {
				var report service.LoadReport
				if city != "" {
					report, err = a.Cloud.LoadCity(ctx, city, m)
				} else {
					report, err = a.Cloud.LoadAll(ctx, m)
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "load only this city")
	cmd.Flags().StringVar(&mode, "mode", string(service.LoadReplace), "replace or merge")
	return cmd
}

func snapshotFolder(ctx context.Context, a *app.App, city string) (string, error) {
	if city != "" {
		return a.Cloud.CityFolder(ctx, city)
	}
	return a.Cloud.RootFolder(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
