package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"front50store/internal/objects"
)

func newEnsureBucketCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-bucket",
		Short: "Create the configured bucket if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, opts, func(ctx context.Context, svc *objects.Service) error {
				if err := svc.EnsureBucketExists(ctx); err != nil {
					return err
				}
				backend, bucket := svc.Describe()
				fmt.Fprintf(cmd.OutOrStdout(), "bucket %s ready (%s)\n", bucket, backend)
				return nil
			})
		},
	}
}

func newTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the known object types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, t := range objects.DefaultRegistry().Types() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.Name, t.Group, t.MetadataFilename)
			}
			return nil
		},
	}
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List object keys of a type with their last-modified times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := objects.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *objects.Service) error {
				keys, err := svc.ListObjectKeys(ctx, t)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(keys))
				for k := range keys {
					names = append(names, k)
				}
				sort.Strings(names)
				for _, k := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, time.UnixMilli(keys[k]).UTC().Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <key>",
		Short: "Print an object as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := objects.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *objects.Service) error {
				item, err := svc.LoadObject(ctx, t, args[1])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(item)
			})
		},
	}
}

func newPutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <type> <key> [file|-]",
		Short: "Store a JSON object read from a file or stdin",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := objects.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[2:])
			if err != nil {
				return fmt.Errorf("read object: %w", err)
			}
			item := t.NewValue()
			if err := json.NewDecoder(bytes.NewReader(data)).Decode(item); err != nil {
				return fmt.Errorf("decode object: %w", err)
			}
			return withService(cmd, opts, func(ctx context.Context, svc *objects.Service) error {
				if err := svc.StoreObject(ctx, t, args[1], item); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", svc.PhysicalKey(t, args[1]))
				return nil
			})
		},
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <key>",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := objects.DefaultRegistry().Lookup(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, opts, func(ctx context.Context, svc *objects.Service) error {
				if err := svc.DeleteObject(ctx, t, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", svc.PhysicalKey(t, args[1]))
				return nil
			})
		},
	}
}
