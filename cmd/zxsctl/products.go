package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"zxsgit/internal/models"
	"zxsgit/internal/services"
	"zxsgit/internal/termui"
)

func (c *cli) printProducts(list []models.Product) error {
	return c.print(list, []string{"ID", "NAME", "CATEGORY", "PRICE", "STOCK"}, func(t *termui.Table) {
		for _, p := range list {
			stock := strconv.Itoa(p.Stock)
			if !p.InStock {
				stock = "sold out"
			}
			t.AddRow(p.ID, p.Name, p.Category, strconv.FormatInt(p.Price, 10), stock)
		}
	})
}

func (c *cli) printOrders(list []models.Order) error {
	return c.print(list, []string{"ID", "PRODUCT", "QTY", "TOTAL", "PAYMENT", "STATUS"}, func(t *termui.Table) {
		for _, o := range list {
			t.AddRow(o.ID, o.ProductName, strconv.Itoa(o.Quantity), strconv.FormatInt(o.Total, 10),
				string(o.PaymentMethod), o.Status)
		}
	})
}

func (c *cli) productsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "products", Aliases: []string{"product"}, Short: "Truck catalog and orders"}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Products.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.printProducts(models.InCategory(list, category))
		},
	}
	list.Flags().StringVar(&category, "category", "", "only show this category")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a product with its specifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Products.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.printProducts([]models.Product{p}); err != nil || c.asJSON {
				return err
			}
			keys := make([]string, 0, len(p.Specifications))
			for k := range p.Specifications {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			specs := termui.NewTable("SPEC", "VALUE")
			for _, k := range keys {
				specs.AddRow(k, p.Specifications[k])
			}
			c.say("\n%s", p.Description)
			return specs.Render(c.out)
		},
	}

	var in services.Purchase
	var payment string
	buy := &cobra.Command{
		Use:   "buy <id>",
		Short: "Order a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ProductID = args[0]
			in.PaymentMethod = models.PaymentMethod(payment)
			o, err := c.app.Products.Purchase(cmd.Context(), in)
			if err != nil {
				return err
			}
			c.say("Order confirmed, total %d", o.Total)
			return c.printOrders([]models.Order{o})
		},
	}
	buy.Flags().IntVarP(&in.Quantity, "quantity", "q", 1, "units to buy")
	buy.Flags().StringVar(&payment, "payment", string(models.PayCredit), "credit, bank, cash or installment")

	orders := &cobra.Command{
		Use:   "orders",
		Short: "List orders placed from this client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Products.Orders(cmd.Context())
			if err != nil {
				return err
			}
			return c.printOrders(list)
		},
	}

	cmd.AddCommand(list, get, buy, orders)
	return cmd
}
