package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/sweet-shop/internal/client"
)

// options are the persistent flags shared by every command.
type options struct {
	api      string
	email    string
	password string
	timeout  time.Duration
	asJSON   bool
	out      io.Writer
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}

	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "CLI client for the sweet-shop API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&opts.api, "api", "a", envOr("SHOP_API", "http://localhost:8080"), "sweet-shop server base URL")
	root.PersistentFlags().StringVarP(&opts.email, "email", "e", os.Getenv("SHOP_EMAIL"), "account email (or SHOP_EMAIL)")
	root.PersistentFlags().StringVarP(&opts.password, "password", "p", os.Getenv("SHOP_PASSWORD"), "account password (or SHOP_PASSWORD)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON instead of tables")

	root.AddCommand(
		newSignupCmd(opts),
		newItemsCmd(opts),
		newFavoriteCmd(opts),
		newCartCmd(opts),
		newBuyCmd(opts),
		newOrdersCmd(opts),
	)
	return root
}

// signedIn returns a client signed in with the configured credentials.
func (o *options) signedIn(ctx context.Context) (*client.Client, error) {
	if o.email == "" || o.password == "" {
		return nil, errors.New("credentials required: set --email/--password or SHOP_EMAIL/SHOP_PASSWORD")
	}
	c := client.New(o.api, o.timeout)
	if err := c.SignIn(ctx, o.email, o.password); err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return c, nil
}

func newSignupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an account with --email and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.email == "" || opts.password == "" {
				return errors.New("--email and --password required")
			}
			c := client.New(opts.api, opts.timeout)
			if err := c.SignUp(cmd.Context(), opts.email, opts.password); err != nil {
				return err
			}
			user, _ := c.User()
			return opts.print(user, func(w io.Writer) {
				fmt.Fprintf(w, "created account %s (%s)\n", user.Email, user.ID)
			})
		},
	}
}

func newItemsCmd(opts *options) *cobra.Command {
	var (
		search    string
		favorites bool
	)
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// Signing in is optional here; it only fills in favorites.
			c := client.New(opts.api, opts.timeout)
			if opts.email != "" || favorites {
				var err error
				if c, err = opts.signedIn(ctx); err != nil {
					return err
				}
			}

			items, err := c.Items(ctx, search, favorites)
			if err != nil {
				return err
			}
			return opts.print(items, func(w io.Writer) { printItems(w, items) })
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only items whose title contains this text")
	cmd.Flags().BoolVarP(&favorites, "favorites", "f", false, "only liked items (requires sign-in)")
	return cmd
}

func newFavoriteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite ITEM_ID",
		Short: "Like or unlike an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			liked, err := c.ToggleFavorite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(map[string]any{"itemId": args[0], "liked": liked}, func(w io.Writer) {
				if liked {
					fmt.Fprintf(w, "%s added to favorites\n", args[0])
				} else {
					fmt.Fprintf(w, "%s removed from favorites\n", args[0])
				}
			})
		},
	}
}

func newCartCmd(opts *options) *cobra.Command {
	cart := &cobra.Command{Use: "cart", Short: "Cart operations"}

	var qty int
	add := &cobra.Command{
		Use:   "add ITEM_ID",
		Short: "Add an item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			lines, err := c.AddToCart(cmd.Context(), args[0], qty)
			if err != nil {
				return err
			}
			return opts.print(lines, func(w io.Writer) { printCart(w, lines) })
		},
	}
	add.Flags().IntVarP(&qty, "qty", "q", 1, "quantity to add")

	set := &cobra.Command{
		Use:   "set ITEM_ID QUANTITY",
		Short: "Change the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity %q is not a number", args[1])
			}
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			lines, err := c.SetCartQuantity(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			return opts.print(lines, func(w io.Writer) { printCart(w, lines) })
		},
	}

	rm := &cobra.Command{
		Use:     "rm ITEM_ID",
		Aliases: []string{"remove"},
		Short:   "Remove a line from the cart",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			lines, err := c.RemoveFromCart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.print(lines, func(w io.Writer) { printCart(w, lines) })
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			p, err := c.Profile(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(p.Cart, func(w io.Writer) { printCart(w, p.Cart) })
		},
	}

	cart.AddCommand(add, set, rm, show)
	return cart
}

func newBuyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "buy",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			order, err := c.PlaceOrder(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(order, func(w io.Writer) {
				fmt.Fprintf(w, "order %s placed: %d line(s), total %s\n",
					order.ID, len(order.Items), formatPrice(order.Total()))
			})
		},
	}
}

func newOrdersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show order history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			orders, err := c.Orders(cmd.Context())
			if err != nil {
				return err
			}
			return opts.print(orders, func(w io.Writer) { printOrders(w, orders) })
		},
	}
}
