package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/client"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/seed"
)

func newClient() *client.Client {
	return client.New(cfg.Client.ServerURL, cfg.Client.Token)
}

func newBagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bags",
		Short: "Manage bags on a running server",
	}
	cmd.AddCommand(
		newBagsListCmd(),
		newBagsGetCmd(),
		newBagsCreateCmd(),
		newBagsUpdateCmd(),
		newBagsDeleteCmd(),
		newBagsImportCmd(),
	)
	return cmd
}

func newBagsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all bags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bags, err := newClient().GetBags(cmd.Context())
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), bags)
			}
			printTable(cmd.OutOrStdout(), bags)
			s := model.Summarize(bags)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d records, %d bags in stock\n", s.Records, s.TotalQuantity)
			return nil
		},
	}
}

func newBagsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			bag, err := newClient().GetBag(cmd.Context(), id)
			if err != nil {
				return err
			}
			if bag == nil {
				return fmt.Errorf("bag %d not found", id)
			}
			return printBag(cmd.OutOrStdout(), bag)
		},
	}
}

func newBagsCreateCmd() *cobra.Command {
	var in model.CreateBagInput
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a bag",
		Example: `  bagfactory bags create --type Backpack --color Blue --material Canvas --quantity 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"type", "color", "material", "quantity"} {
				if !cmd.Flags().Changed(name) {
					return fmt.Errorf("--%s is required", name)
				}
			}
			bag, err := newClient().CreateBag(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printBag(cmd.OutOrStdout(), bag)
		},
	}
	cmd.Flags().StringVar(&in.Type, "type", "", "bag type")
	cmd.Flags().StringVar(&in.Color, "color", "", "bag color")
	cmd.Flags().StringVar(&in.Material, "material", "", "bag material")
	cmd.Flags().IntVar(&in.Quantity, "quantity", 0, "units in stock")
	return cmd
}

func newBagsUpdateCmd() *cobra.Command {
	var (
		bagType, color, material string
		quantity                 int
	)
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update the given fields of a bag",
		Example: `  bagfactory bags update 3 --quantity 0`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			in := model.UpdateBagInput{ID: id}
			flags := cmd.Flags()
			if flags.Changed("type") {
				in.Type = model.Some(bagType)
			}
			if flags.Changed("color") {
				in.Color = model.Some(color)
			}
			if flags.Changed("material") {
				in.Material = model.Some(material)
			}
			if flags.Changed("quantity") {
				in.Quantity = model.Some(quantity)
			}

			bag, err := newClient().UpdateBag(cmd.Context(), in)
			if err != nil {
				return err
			}
			if bag == nil {
				return fmt.Errorf("bag %d not found", id)
			}
			return printBag(cmd.OutOrStdout(), bag)
		},
	}
	cmd.Flags().StringVar(&bagType, "type", "", "new type")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().StringVar(&material, "material", "", "new material")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "new quantity")
	return cmd
}

func newBagsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			deleted, err := newClient().DeleteBag(cmd.Context(), id)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(cmd.OutOrStdout(), deleted)
			}
			if !deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Bag %d did not exist.\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted bag %d.\n", id)
			return nil
		},
	}
}

func newBagsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.toml>",
		Short: "Create the bags listed in a TOML seed file",
		Long: `Import reads [[bag]] tables with type, color, material and quantity
keys and creates them in file order. The whole file is validated first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			created, err := seed.Import(cmd.Context(), newClient(), inputs)
			if flagJSON && err == nil {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d bags.\n", len(created), len(inputs))
			return err
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func printBag(w io.Writer, bag *model.Bag) error {
	if flagJSON {
		return printJSON(w, bag)
	}
	printTable(w, []model.Bag{*bag})
	return nil
}

func printTable(w io.Writer, bags []model.Bag) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCOLOR\tMATERIAL\tQUANTITY\tCREATED")
	for _, b := range bags {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			b.ID, b.Type, b.Color, b.Material, b.Quantity, b.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
