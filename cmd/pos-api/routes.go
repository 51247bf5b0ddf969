package main

import (
	"database/sql"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/pos/orders"
	"github.com/saurabh1e/pos-api/internal/pos/products"
	"github.com/saurabh1e/pos-api/internal/pos/users"
	"github.com/saurabh1e/pos-api/internal/resource"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the registered API routes",
	Long:  "Print the route table generated from the resource descriptors, without connecting to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := resource.NewRegistry()
		log := zap.NewNop()

		// Descriptors validate at registration; no database handle is
		// needed to walk the route table.
		for _, register := range []func(*resource.Registry, *sql.DB, *zap.Logger) error{
			users.Register,
			products.Register,
			orders.Register,
		} {
			if err := register(reg, nil, log); err != nil {
				return err
			}
		}

		bold := color.New(color.Bold, color.FgCyan)
		gray := color.New(color.FgHiBlack)

		bold.Println("METHOD  PATH")
		for _, route := range reg.Routes() {
			fmt.Printf("%-7s /api/v1%s ", route.Method, route.Path)
			gray.Printf("(%s)\n", route.Resource)
		}
		return nil
	},
}
